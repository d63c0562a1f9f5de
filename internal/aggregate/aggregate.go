package aggregate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// IDPrefix marks synthesized records so they never collide with row IDs.
const IDPrefix = "agg-"

var idSpace = uuid.MustParse("6f1c2b7e-4a57-4d8e-9b0e-3c1f5a9d2e40")

// Result holds one synthesized record per search term plus, keyed by the
// synthesized ID, the provenance of each.
type Result struct {
	Records []models.AdRecord
	Details map[string]models.AggregateDetails
}

type Engine struct {
	tag language.Tag
}

// New returns an engine whose detail lists are sorted by the collation rules
// of tag.
func New(tag language.Tag) *Engine {
	return &Engine{tag: tag}
}

type bucket struct {
	base    models.AdRecord
	members []models.AdRecord
	sums    models.BaseMetrics
}

// Aggregate groups records by case-folded, trimmed search term. Ratios are
// recomputed from the summed metrics.
func (e *Engine) Aggregate(records []models.AdRecord) Result {
	fold := cases.Fold()
	buckets := make(map[string]*bucket)
	var order []string

	for _, r := range records {
		key := fold.String(strings.TrimSpace(r.SearchTerm))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{base: models.AdRecord{
				ID:         IDPrefix + uuid.NewSHA1(idSpace, []byte(key)).String(),
				Dimensions: models.Dimensions{SearchTerm: strings.TrimSpace(r.SearchTerm)},
			}}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, r)
		b.sums = b.sums.Add(r.BaseMetrics)
	}

	coll := collate.New(e.tag)
	res := Result{
		Records: make([]models.AdRecord, 0, len(order)),
		Details: make(map[string]models.AggregateDetails, len(order)),
	}
	for _, key := range order {
		b := buckets[key]
		first := b.members[0]
		campaigns := distinct(coll, b.members, func(r models.AdRecord) string { return r.CampaignName })
		adGroups := distinct(coll, b.members, func(r models.AdRecord) string { return r.AdGroupName })
		matchTypes := distinct(coll, b.members, func(r models.AdRecord) string { return r.MatchType })

		dims := b.base.Dimensions
		dims.CampaignName = summarize(campaigns, first.CampaignName)
		dims.AdGroupName = summarize(adGroups, first.AdGroupName)
		dims.MatchType = summarize(matchTypes, first.MatchType)

		rec := models.NewAdRecord(b.base.ID, dims, b.sums)
		res.Records = append(res.Records, rec)
		res.Details[rec.ID] = models.AggregateDetails{
			CampaignNames: campaigns,
			AdGroupNames:  adGroups,
			MatchTypes:    matchTypes,
			SourceRows:    len(b.members),
		}
	}
	return res
}

// IsAggregated reports whether id belongs to a synthesized record.
func IsAggregated(id string) bool { return strings.HasPrefix(id, IDPrefix) }

func distinct(coll *collate.Collator, members []models.AdRecord, get func(models.AdRecord) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range members {
		v := strings.TrimSpace(get(m))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	coll.SortStrings(out)
	return out
}

func summarize(vals []string, fallback string) string {
	switch len(vals) {
	case 0:
		return fallback
	case 1:
		return vals[0]
	default:
		return fmt.Sprintf("(multiple: %d)", len(vals))
	}
}
