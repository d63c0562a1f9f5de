package suggest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/AngelCh415/searchterm-insights/internal/filter"
	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// Engine classifies records against a fixed set of rules. Rules are copied
// at construction and never modified.
type Engine struct {
	rules models.SuggestionRules
}

func New(rules models.SuggestionRules) *Engine {
	return &Engine{rules: rules}
}

func (e *Engine) Rules() models.SuggestionRules { return e.rules }

// Evaluate builds the four suggestion lists for records.
func (e *Engine) Evaluate(records []models.AdRecord) models.Suggestions {
	out := models.Suggestions{
		Negation: []models.SuggestionRow{},
		Harvest:  []models.SuggestionRow{},
		BidUp:    []models.SuggestionRow{},
		BidDown:  []models.SuggestionRow{},
	}
	var spend, clicks float64
	for _, r := range records {
		spend += r.Spend
		clicks += r.Clicks
		if row, ok := e.negation(r); ok {
			out.Negation = append(out.Negation, row)
		}
		if row, ok := e.harvest(r); ok {
			out.Harvest = append(out.Harvest, row)
		}
		if row, ok := e.bidUp(r); ok {
			out.BidUp = append(out.BidUp, row)
		}
		if row, ok := e.bidDown(r); ok {
			out.BidDown = append(out.BidDown, row)
		}
	}

	sortBy(out.Negation, func(r models.SuggestionRow) float64 { return r.Spend })
	sortBy(out.Harvest,
		func(r models.SuggestionRow) float64 { return r.Sales },
		func(r models.SuggestionRow) float64 { return r.Orders },
		func(r models.SuggestionRow) float64 { return r.Clicks })
	sortBy(out.BidUp,
		func(r models.SuggestionRow) float64 { return r.Sales },
		func(r models.SuggestionRow) float64 { return r.Orders })
	sortBy(out.BidDown,
		func(r models.SuggestionRow) float64 { return r.Spend },
		func(r models.SuggestionRow) float64 { return deref(r.ACOS) })

	out.Meta = models.SuggestionMeta{Rules: e.rules, Evaluated: len(records)}
	if clicks > 0 {
		out.Meta.AverageCPC = spend / clicks
	}
	return out
}

func (e *Engine) negation(r models.AdRecord) (models.SuggestionRow, bool) {
	if !(r.Spend > 0 && r.Sales <= 0 && r.Orders <= 0) {
		return models.SuggestionRow{}, false
	}
	var reason string
	switch {
	case r.Clicks >= e.rules.NegativeMinClicks:
		reason = fmt.Sprintf("clicks ≥ %s with no conversions", num(e.rules.NegativeMinClicks))
	case r.Spend >= e.rules.NegativeMinSpend:
		reason = fmt.Sprintf("spend ≥ %s with no conversions", num(e.rules.NegativeMinSpend))
	default:
		return models.SuggestionRow{}, false
	}
	return newRow(models.CategoryNegation, r, pick(r.SearchTerm, models.MatchNegativePhrase, models.MatchNegativeExact), reason), true
}

func (e *Engine) harvest(r models.AdRecord) (models.SuggestionRow, bool) {
	if !(r.Orders > 0 && r.Sales > 0 && r.Clicks >= e.rules.HarvestMinClicks && r.ACOS <= e.rules.TargetAcos) {
		return models.SuggestionRow{}, false
	}
	cvr := r.ConversionRate * 100
	var reason string
	switch {
	case cvr >= e.rules.HarvestMinCvrPct:
		reason = fmt.Sprintf("CVR %s%% ≥ %s%%", pct(cvr), num(e.rules.HarvestMinCvrPct))
	case r.Orders >= e.rules.HarvestMinOrders:
		reason = fmt.Sprintf("orders %s ≥ %s", num(r.Orders), num(e.rules.HarvestMinOrders))
	default:
		return models.SuggestionRow{}, false
	}
	return newRow(models.CategoryHarvest, r, pick(r.SearchTerm, models.MatchPhrase, models.MatchExact), reason), true
}

func (e *Engine) bidGate(r models.AdRecord) bool {
	return r.Orders > 0 && r.Sales > 0 && r.Clicks >= e.rules.BidMinClicks
}

func (e *Engine) bidUp(r models.AdRecord) (models.SuggestionRow, bool) {
	limit := e.rules.TargetAcos * e.rules.BidUpAcosFactor
	if !e.bidGate(r) || r.ACOS > limit {
		return models.SuggestionRow{}, false
	}
	reason := fmt.Sprintf("ACOS %s%% ≤ %s%% (target × %s)", pct(r.ACOS), pct(limit), num(e.rules.BidUpAcosFactor))
	return newRow(models.CategoryBidUp, r, pick(r.SearchTerm, models.MatchPhrase, models.MatchExact), reason), true
}

// bidDown requires sales > 0, so the +Inf branch of ComparableACOS can never
// qualify a row here.
func (e *Engine) bidDown(r models.AdRecord) (models.SuggestionRow, bool) {
	upLimit := e.rules.TargetAcos * e.rules.BidUpAcosFactor
	downLimit := e.rules.TargetAcos * e.rules.BidDownAcosFactor
	if !e.bidGate(r) || r.ACOS <= upLimit || filter.ComparableACOS(r) < downLimit || r.Sales <= 0 {
		return models.SuggestionRow{}, false
	}
	reason := fmt.Sprintf("ACOS %s%% ≥ %s%% (target × %s)", pct(r.ACOS), pct(downLimit), num(e.rules.BidDownAcosFactor))
	return newRow(models.CategoryBidDown, r, pick(r.SearchTerm, models.MatchPhrase, models.MatchExact), reason), true
}

func newRow(cat models.Category, r models.AdRecord, suggested, reason string) models.SuggestionRow {
	row := models.SuggestionRow{
		Category:           cat,
		RecordID:           r.ID,
		SearchTerm:         r.SearchTerm,
		CampaignName:       r.CampaignName,
		AdGroupName:        r.AdGroupName,
		MatchType:          r.MatchType,
		SuggestedMatchType: suggested,
		Reason:             reason,
		BaseMetrics:        r.BaseMetrics,
		CTR:                r.CTR,
		CPC:                r.CPC,
		ConversionRate:     r.ConversionRate,
	}
	if r.Sales > 0 {
		acos := r.ACOS
		row.ACOS = &acos
	}
	if r.Spend > 0 {
		roas := r.ROAS
		row.ROAS = &roas
	}
	return row
}

// pick chooses the phrase-style match type for multi-word terms.
func pick(term, multi, single string) string {
	if strings.ContainsFunc(strings.TrimSpace(term), unicode.IsSpace) {
		return multi
	}
	return single
}

// sortBy sorts rows stably, descending on each key in turn.
func sortBy(rows []models.SuggestionRow, keys ...func(models.SuggestionRow) float64) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := k(rows[i]), k(rows[j])
			if a != b {
				return a > b
			}
		}
		return false
	})
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
func pct(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }
