package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

func rec(id, term string, clicks, spend, sales, orders float64) models.AdRecord {
	return models.NewAdRecord(id, models.Dimensions{
		CampaignName: "Camp",
		AdGroupName:  "AG",
		MatchType:    "BROAD",
		SearchTerm:   term,
	}, models.BaseMetrics{Impressions: clicks * 20, Clicks: clicks, Spend: spend, Sales: sales, Orders: orders})
}

func recordIDs(rows []models.SuggestionRow) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.RecordID)
	}
	return out
}

func TestNegationByClicks(t *testing.T) {
	rules := models.DefaultRules()
	rules.NegativeMinClicks = 12
	out := New(rules).Evaluate([]models.AdRecord{rec("r1", "blue widget", 20, 15, 0, 0)})

	require.Len(t, out.Negation, 1)
	row := out.Negation[0]
	assert.Equal(t, models.CategoryNegation, row.Category)
	assert.Equal(t, models.MatchNegativePhrase, row.SuggestedMatchType)
	assert.Equal(t, "clicks ≥ 12 with no conversions", row.Reason)
	assert.Nil(t, row.ACOS)
	require.NotNil(t, row.ROAS)
	assert.Equal(t, 0.0, *row.ROAS)
	assert.Empty(t, out.Harvest)
	assert.Empty(t, out.BidUp)
	assert.Empty(t, out.BidDown)
}

func TestNegationBySpend(t *testing.T) {
	out := New(models.DefaultRules()).Evaluate([]models.AdRecord{
		rec("r1", "widget", 3, 11, 0, 0),
		rec("r2", "cheap", 3, 2, 0, 0),
		rec("r3", "sold", 30, 40, 0, 1),
	})
	require.Len(t, out.Negation, 1)
	assert.Equal(t, "r1", out.Negation[0].RecordID)
	assert.Equal(t, models.MatchNegativeExact, out.Negation[0].SuggestedMatchType)
	assert.Equal(t, "spend ≥ 10 with no conversions", out.Negation[0].Reason)
}

func TestHarvest(t *testing.T) {
	rules := models.DefaultRules()
	rules.TargetAcos = 30
	rules.HarvestMinClicks = 4
	rules.HarvestMinOrders = 1
	out := New(rules).Evaluate([]models.AdRecord{rec("r1", "widget", 5, 10, 50, 2)})

	require.Len(t, out.Harvest, 1)
	row := out.Harvest[0]
	assert.Equal(t, models.MatchExact, row.SuggestedMatchType)
	require.NotNil(t, row.ACOS)
	assert.InDelta(t, 20, *row.ACOS, 1e-9)
	assert.Equal(t, "CVR 40.0% ≥ 10%", row.Reason)
}

func TestHarvestByOrders(t *testing.T) {
	rules := models.DefaultRules()
	rules.HarvestMinCvrPct = 50
	out := New(rules).Evaluate([]models.AdRecord{rec("r1", "red shoes", 10, 10, 100, 3)})
	require.Len(t, out.Harvest, 1)
	assert.Equal(t, "orders 3 ≥ 2", out.Harvest[0].Reason)
	assert.Equal(t, models.MatchPhrase, out.Harvest[0].SuggestedMatchType)
}

func TestHarvestRejectsHighACOS(t *testing.T) {
	out := New(models.DefaultRules()).Evaluate([]models.AdRecord{rec("r1", "x", 10, 50, 100, 3)})
	assert.Empty(t, out.Harvest)
}

func TestBidUpAndDown(t *testing.T) {
	rules := models.DefaultRules() // target 30, up 0.7 -> 21, down 1.3 -> 39
	out := New(rules).Evaluate([]models.AdRecord{
		rec("up", "cheap win", 10, 20, 100, 2),  // acos 20
		rec("mid", "steady", 10, 30, 100, 2),    // acos 30
		rec("down", "pricey", 10, 50, 100, 2),   // acos 50
		rec("edge", "edge", 10, 40, 100, 2),     // acos 40
		rec("few", "few clicks", 9, 50, 100, 2), // below bidMinClicks
		rec("nosale", "no sale", 40, 50, 0, 0),  // comparable acos +Inf
	})
	assert.Equal(t, []string{"up"}, recordIDs(out.BidUp))
	assert.ElementsMatch(t, []string{"down", "edge"}, recordIDs(out.BidDown))
	assert.Contains(t, recordIDs(out.Negation), "nosale")
}

func TestBidListsAreExclusive(t *testing.T) {
	rules := models.DefaultRules()
	var rows []models.AdRecord
	for spend := 1.0; spend <= 80; spend++ {
		rows = append(rows, rec("r", "t", 10, spend, 100, 2))
	}
	out := New(rules).Evaluate(rows)
	assert.Less(t, len(out.BidUp)+len(out.BidDown), len(rows))
	for _, r := range out.BidUp {
		assert.LessOrEqual(t, *r.ACOS, 21.0+1e-9)
	}
	for _, r := range out.BidDown {
		assert.GreaterOrEqual(t, *r.ACOS, 39.0-1e-9)
	}
}

func TestSortOrders(t *testing.T) {
	rules := models.DefaultRules()
	out := New(rules).Evaluate([]models.AdRecord{
		rec("n-small", "a", 20, 11, 0, 0),
		rec("n-big", "b", 20, 50, 0, 0),
		rec("h-small", "c", 10, 5, 50, 2),
		rec("h-big", "d", 10, 10, 200, 3),
		rec("d-1", "e", 10, 60, 100, 2),
		rec("d-2", "f", 10, 80, 100, 2),
	})
	assert.Equal(t, []string{"n-big", "n-small"}, recordIDs(out.Negation))
	assert.Equal(t, []string{"h-big", "h-small"}, recordIDs(out.Harvest))
	assert.Equal(t, []string{"d-2", "d-1"}, recordIDs(out.BidDown))
}

func TestSortTieBreaks(t *testing.T) {
	e := New(models.DefaultRules())

	t.Run("harvest orders then clicks", func(t *testing.T) {
		out := e.Evaluate([]models.AdRecord{
			rec("h-b", "b", 10, 10, 100, 2),
			rec("h-c", "c", 20, 10, 100, 2),
			rec("h-a", "a", 10, 10, 100, 3),
		})
		assert.Equal(t, []string{"h-a", "h-c", "h-b"}, recordIDs(out.Harvest))
	})

	t.Run("bid up sales then orders", func(t *testing.T) {
		out := e.Evaluate([]models.AdRecord{
			rec("u-low", "l", 10, 10, 100, 1),
			rec("u-more", "m", 10, 10, 100, 4),
			rec("u-high", "h", 10, 20, 200, 1),
		})
		assert.Equal(t, []string{"u-high", "u-more", "u-low"}, recordIDs(out.BidUp))
	})

	t.Run("bid down equal spend by acos", func(t *testing.T) {
		out := e.Evaluate([]models.AdRecord{
			rec("d-a", "x", 10, 60, 100, 1), // acos 60
			rec("d-b", "y", 10, 60, 50, 1),  // acos 120
		})
		assert.Equal(t, []string{"d-b", "d-a"}, recordIDs(out.BidDown))
	})

	t.Run("full ties keep input order", func(t *testing.T) {
		out := e.Evaluate([]models.AdRecord{
			rec("n-2", "p", 20, 15, 0, 0),
			rec("n-1", "q", 20, 15, 0, 0),
		})
		assert.Equal(t, []string{"n-2", "n-1"}, recordIDs(out.Negation))
	})
}

func TestMeta(t *testing.T) {
	rules := models.DefaultRules()
	e := New(rules)
	assert.Equal(t, rules, e.Rules())

	out := e.Evaluate([]models.AdRecord{rec("a", "x", 10, 5, 0, 0), rec("b", "y", 30, 15, 0, 0)})
	assert.Equal(t, 2, out.Meta.Evaluated)
	assert.InDelta(t, 0.5, out.Meta.AverageCPC, 1e-9)
	assert.Equal(t, rules, out.Meta.Rules)

	empty := e.Evaluate(nil)
	assert.NotNil(t, empty.Negation)
	assert.NotNil(t, empty.Harvest)
	assert.NotNil(t, empty.BidUp)
	assert.NotNil(t, empty.BidDown)
	assert.Zero(t, empty.Meta.AverageCPC)
}
