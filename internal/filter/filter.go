// Package filter evaluates a FilterPredicateSet against normalized records.
// Predicates are pure: a compiled Predicate may be shared across goroutines.
package filter

import (
	"math"
	"strings"
	"unicode"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// ComparableACOS is ACOS adjusted so that spend without sales ranks as the
// worst value (+Inf) instead of the best (0).
func ComparableACOS(r models.AdRecord) float64 {
	switch {
	case r.Sales > 0:
		return r.ACOS
	case r.Spend > 0:
		return math.Inf(1)
	default:
		return 0
	}
}

// Tokenize splits free text on whitespace, commas and semicolons (Latin and
// CJK forms) and lower-cases the tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', '，', '；', '、':
			return true
		}
		return unicode.IsSpace(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

type Predicate struct {
	set       models.FilterPredicateSet
	campaigns map[string]struct{}
	adGroups  map[string]struct{}
	matches   map[string]struct{}
	include   []string
	exclude   []string
}

// Compile prepares a predicate set for repeated evaluation.
func Compile(set models.FilterPredicateSet) *Predicate {
	return &Predicate{
		set:       set,
		campaigns: toSet(set.CampaignNames),
		adGroups:  toSet(set.AdGroupNames),
		matches:   toSet(set.MatchTypes),
		include:   Tokenize(set.Include),
		exclude:   Tokenize(set.Exclude),
	}
}

// Match reports whether r satisfies every constraint. Checks short-circuit in
// a fixed order: date, base metrics, CTR, CPC, ACOS, ROAS, CVR, allow-sets,
// include tokens, exclude tokens, conversion.
func (p *Predicate) Match(r models.AdRecord) bool {
	s := &p.set

	if s.DateFrom != "" || s.DateTo != "" {
		// Dates are compared as strings; a non-ISO fallback date still takes
		// part in the comparison.
		if r.Date == "" {
			return false
		}
		if s.DateFrom != "" && r.Date < s.DateFrom {
			return false
		}
		if s.DateTo != "" && r.Date > s.DateTo {
			return false
		}
	}

	if !s.Impressions.Contains(r.Impressions) ||
		!s.Clicks.Contains(r.Clicks) ||
		!s.Spend.Contains(r.Spend) ||
		!s.Sales.Contains(r.Sales) ||
		!s.Orders.Contains(r.Orders) ||
		!s.CTR.Contains(r.CTR*100) ||
		!s.CPC.Contains(r.CPC) {
		return false
	}
	if !s.ACOS.Contains(ComparableACOS(r)) ||
		!s.ROAS.Contains(r.ROAS) ||
		!s.ConversionRate.Contains(r.ConversionRate*100) {
		return false
	}

	if !allowed(p.campaigns, r.CampaignName) || !allowed(p.adGroups, r.AdGroupName) || !allowed(p.matches, r.MatchType) {
		return false
	}

	term := strings.ToLower(r.SearchTerm)
	if len(p.include) > 0 && !containsAny(term, p.include) {
		return false
	}
	if containsAny(term, p.exclude) {
		return false
	}

	switch s.Conversion {
	case models.ConversionHasOrders:
		return r.Orders > 0
	case models.ConversionNoOrders:
		return r.Orders <= 0
	case models.ConversionHasSales:
		return r.Sales > 0
	case models.ConversionNoSales:
		return r.Sales <= 0
	}
	return true
}

// Apply returns the records matching set, in input order.
func Apply(records []models.AdRecord, set models.FilterPredicateSet) []models.AdRecord {
	p := Compile(set)
	out := make([]models.AdRecord, 0, len(records))
	for _, r := range records {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func toSet(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func allowed(set map[string]struct{}, v string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[v]
	return ok
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// SplitForAggregation separates the constraints that describe individual
// source rows (date, allow-sets, term tokens) from those that describe
// totals (metric ranges, conversion). The first half is applied before
// aggregation, the second to the aggregated records.
func SplitForAggregation(set models.FilterPredicateSet) (rows, totals models.FilterPredicateSet) {
	rows = models.FilterPredicateSet{
		DateFrom:      set.DateFrom,
		DateTo:        set.DateTo,
		CampaignNames: set.CampaignNames,
		AdGroupNames:  set.AdGroupNames,
		MatchTypes:    set.MatchTypes,
		Include:       set.Include,
		Exclude:       set.Exclude,
	}
	totals = set
	totals.DateFrom, totals.DateTo = "", ""
	totals.CampaignNames, totals.AdGroupNames, totals.MatchTypes = nil, nil, nil
	totals.Include, totals.Exclude = "", ""
	return rows, totals
}
