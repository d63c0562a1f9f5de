package metrics

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/AngelCh415/searchterm-insights/internal/aggregate"
	"github.com/AngelCh415/searchterm-insights/internal/config"
	"github.com/AngelCh415/searchterm-insights/internal/filter"
	"github.com/AngelCh415/searchterm-insights/internal/models"
	"github.com/AngelCh415/searchterm-insights/internal/store"
	"github.com/AngelCh415/searchterm-insights/internal/suggest"
)

var ErrInvalidQuery = errors.New("invalid query")

type View string

const (
	ViewRaw        View = "raw"
	ViewAggregated View = "aggregated"
)

type Service struct {
	st    *store.MemoryStore
	tag   language.Tag
	rules models.SuggestionRules
	col   *Collectors
}

func NewService(st *store.MemoryStore, tag language.Tag, rules models.SuggestionRules, col *Collectors) *Service {
	return &Service{st: st, tag: tag, rules: rules, col: col}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func csvList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type RecordsPage struct {
	ReportID string                             `json:"report_id"`
	View     View                               `json:"view"`
	Total    int                                `json:"total"`
	Limit    int                                `json:"limit"`
	Offset   int                                `json:"offset"`
	Records  []models.AdRecord                  `json:"records"`
	Details  map[string]models.AggregateDetails `json:"details,omitempty"`
}

// QueryRecords returns one page of the current record stream of a report.
func (s *Service) QueryRecords(id string, v url.Values) (RecordsPage, error) {
	rep, err := s.st.Get(id)
	if err != nil {
		return RecordsPage{}, err
	}
	view, err := parseView(v.Get("view"))
	if err != nil {
		return RecordsPage{}, err
	}
	set, err := ParseFilter(v)
	if err != nil {
		return RecordsPage{}, err
	}
	rows, details := s.current(rep.Records, view, set)

	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	page := paginate(rows, limit, offset)

	out := RecordsPage{ReportID: id, View: view, Total: len(rows), Limit: limit, Offset: offset, Records: page}
	if view == ViewAggregated {
		out.Details = make(map[string]models.AggregateDetails, len(page))
		for _, r := range page {
			out.Details[r.ID] = details[r.ID]
		}
	}
	return out, nil
}

// QuerySuggestions runs the rule engine over the current record stream.
// Threshold parameters override the configured rules for this call only.
func (s *Service) QuerySuggestions(id string, v url.Values) (models.Suggestions, error) {
	rep, err := s.st.Get(id)
	if err != nil {
		return models.Suggestions{}, err
	}
	view, err := parseView(v.Get("view"))
	if err != nil {
		return models.Suggestions{}, err
	}
	set, err := ParseFilter(v)
	if err != nil {
		return models.Suggestions{}, err
	}
	rules, err := ParseRules(v, s.rules)
	if err != nil {
		return models.Suggestions{}, err
	}
	rows, _ := s.current(rep.Records, view, set)
	out := suggest.New(rules).Evaluate(rows)
	if s.col != nil {
		s.col.ObserveSuggestions(out)
	}
	if top := atoiDef(v.Get("top"), 0); top > 0 {
		out.Negation = paginate(out.Negation, top, 0)
		out.Harvest = paginate(out.Harvest, top, 0)
		out.BidUp = paginate(out.BidUp, top, 0)
		out.BidDown = paginate(out.BidDown, top, 0)
	}
	return out, nil
}

type Facets struct {
	CampaignNames []string `json:"campaign_names"`
	AdGroupNames  []string `json:"ad_group_names"`
	MatchTypes    []string `json:"match_types"`
	DateFrom      string   `json:"date_from,omitempty"`
	DateTo        string   `json:"date_to,omitempty"`
}

// Facets lists the distinct dimension values of a report, for allow-set pickers.
func (s *Service) Facets(id string) (Facets, error) {
	rep, err := s.st.Get(id)
	if err != nil {
		return Facets{}, err
	}
	camp, group, match := map[string]struct{}{}, map[string]struct{}{}, map[string]struct{}{}
	var f Facets
	for _, r := range rep.Records {
		camp[r.CampaignName] = struct{}{}
		group[r.AdGroupName] = struct{}{}
		match[r.MatchType] = struct{}{}
		if r.Date == "" {
			continue
		}
		if f.DateFrom == "" || r.Date < f.DateFrom {
			f.DateFrom = r.Date
		}
		if r.Date > f.DateTo {
			f.DateTo = r.Date
		}
	}
	coll := collate.New(s.tag)
	f.CampaignNames = sortedKeys(coll, camp)
	f.AdGroupNames = sortedKeys(coll, group)
	f.MatchTypes = sortedKeys(coll, match)
	return f, nil
}

// current filters records and, in the aggregated view, collapses them by
// search term. Row-level constraints apply before aggregation and metric
// constraints after it.
func (s *Service) current(records []models.AdRecord, view View, set models.FilterPredicateSet) ([]models.AdRecord, map[string]models.AggregateDetails) {
	if view != ViewAggregated {
		return filter.Apply(records, set), nil
	}
	pre, post := filter.SplitForAggregation(set)
	res := aggregate.New(s.tag).Aggregate(filter.Apply(records, pre))
	return filter.Apply(res.Records, post), res.Details
}

func parseView(s string) (View, error) {
	switch View(norm(s)) {
	case "", ViewRaw:
		return ViewRaw, nil
	case ViewAggregated, "aggregate":
		return ViewAggregated, nil
	}
	return "", fmt.Errorf("%w: view %q", ErrInvalidQuery, s)
}

var rangeParams = []struct {
	name string
	get  func(*models.FilterPredicateSet) *models.Range
}{
	{"impressions", func(f *models.FilterPredicateSet) *models.Range { return &f.Impressions }},
	{"clicks", func(f *models.FilterPredicateSet) *models.Range { return &f.Clicks }},
	{"spend", func(f *models.FilterPredicateSet) *models.Range { return &f.Spend }},
	{"sales", func(f *models.FilterPredicateSet) *models.Range { return &f.Sales }},
	{"orders", func(f *models.FilterPredicateSet) *models.Range { return &f.Orders }},
	{"ctr", func(f *models.FilterPredicateSet) *models.Range { return &f.CTR }},
	{"cpc", func(f *models.FilterPredicateSet) *models.Range { return &f.CPC }},
	{"acos", func(f *models.FilterPredicateSet) *models.Range { return &f.ACOS }},
	{"roas", func(f *models.FilterPredicateSet) *models.Range { return &f.ROAS }},
	{"cvr", func(f *models.FilterPredicateSet) *models.Range { return &f.ConversionRate }},
}

// ParseFilter reads a FilterPredicateSet from query parameters.
func ParseFilter(v url.Values) (models.FilterPredicateSet, error) {
	var set models.FilterPredicateSet
	for _, p := range rangeParams {
		r := p.get(&set)
		var err error
		if r.Min, err = floatParam(v, p.name+"_min"); err != nil {
			return set, err
		}
		if r.Max, err = floatParam(v, p.name+"_max"); err != nil {
			return set, err
		}
	}
	set.DateFrom = strings.TrimSpace(v.Get("from"))
	set.DateTo = strings.TrimSpace(v.Get("to"))
	set.CampaignNames = csvList(v.Get("campaign"))
	set.AdGroupNames = csvList(v.Get("ad_group"))
	set.MatchTypes = csvList(v.Get("match_type"))
	set.Include = v.Get("include")
	set.Exclude = v.Get("exclude")
	set.Conversion = models.Conversion(norm(v.Get("conversion")))
	if err := config.ValidateFilter(set); err != nil {
		return set, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return set, nil
}

var ruleParams = []struct {
	name string
	get  func(*models.SuggestionRules) *float64
}{
	{"target_acos", func(r *models.SuggestionRules) *float64 { return &r.TargetAcos }},
	{"negative_min_clicks", func(r *models.SuggestionRules) *float64 { return &r.NegativeMinClicks }},
	{"negative_min_spend", func(r *models.SuggestionRules) *float64 { return &r.NegativeMinSpend }},
	{"harvest_min_clicks", func(r *models.SuggestionRules) *float64 { return &r.HarvestMinClicks }},
	{"harvest_min_orders", func(r *models.SuggestionRules) *float64 { return &r.HarvestMinOrders }},
	{"harvest_min_cvr", func(r *models.SuggestionRules) *float64 { return &r.HarvestMinCvrPct }},
	{"bid_min_clicks", func(r *models.SuggestionRules) *float64 { return &r.BidMinClicks }},
	{"bid_up_factor", func(r *models.SuggestionRules) *float64 { return &r.BidUpAcosFactor }},
	{"bid_down_factor", func(r *models.SuggestionRules) *float64 { return &r.BidDownAcosFactor }},
}

// ParseRules overlays threshold query parameters on base.
func ParseRules(v url.Values, base models.SuggestionRules) (models.SuggestionRules, error) {
	rules := base
	for _, p := range ruleParams {
		f, err := floatParam(v, p.name)
		if err != nil {
			return base, err
		}
		if f != nil {
			*p.get(&rules) = *f
		}
	}
	if err := config.ValidateRules(rules); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return rules, nil
}

func floatParam(v url.Values, name string) (*float64, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidQuery, name, s)
	}
	return &f, nil
}

func sortedKeys(coll *collate.Collator, m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Strings the collator ranks equal fall back to byte order.
	sort.Slice(out, func(i, j int) bool {
		if c := coll.CompareString(out[i], out[j]); c != 0 {
			return c < 0
		}
		return out[i] < out[j]
	})
	return out
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // page cap
	if offset > n {
		offset = n
	}
	return limit, offset
}
