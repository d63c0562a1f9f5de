package models

// Range is an inclusive numeric bound; nil ends are open.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

func (r Range) IsZero() bool { return r.Min == nil && r.Max == nil }

func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

type Conversion string

const (
	ConversionAll       Conversion = "all"
	ConversionHasOrders Conversion = "has_orders"
	ConversionNoOrders  Conversion = "no_orders"
	ConversionHasSales  Conversion = "has_sales"
	ConversionNoSales   Conversion = "no_sales"
)

// FilterPredicateSet holds independently optional constraints over AdRecords.
// CTR, ACOS and ConversionRate ranges are expressed in percent.
type FilterPredicateSet struct {
	Impressions    Range `json:"impressions"`
	Clicks         Range `json:"clicks"`
	Spend          Range `json:"spend"`
	Sales          Range `json:"sales"`
	Orders         Range `json:"orders"`
	CTR            Range `json:"ctr"`
	CPC            Range `json:"cpc"`
	ACOS           Range `json:"acos"`
	ROAS           Range `json:"roas"`
	ConversionRate Range `json:"conversionRate"`

	DateFrom string `json:"dateFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `json:"dateTo,omitempty" validate:"omitempty,datetime=2006-01-02"`

	CampaignNames []string `json:"campaignNames,omitempty"`
	AdGroupNames  []string `json:"adGroupNames,omitempty"`
	MatchTypes    []string `json:"matchTypes,omitempty"`

	Include string `json:"include,omitempty"`
	Exclude string `json:"exclude,omitempty"`

	Conversion Conversion `json:"conversion,omitempty" validate:"omitempty,oneof=all has_orders no_orders has_sales no_sales"`
}

// SuggestionRules are the operator supplied thresholds for the rule engine.
type SuggestionRules struct {
	TargetAcos        float64 `json:"targetAcos" yaml:"target_acos" validate:"gt=0"`
	NegativeMinClicks float64 `json:"negativeMinClicks" yaml:"negative_min_clicks" validate:"gte=0"`
	NegativeMinSpend  float64 `json:"negativeMinSpend" yaml:"negative_min_spend" validate:"gte=0"`
	HarvestMinClicks  float64 `json:"harvestMinClicks" yaml:"harvest_min_clicks" validate:"gte=0"`
	HarvestMinOrders  float64 `json:"harvestMinOrders" yaml:"harvest_min_orders" validate:"gte=0"`
	HarvestMinCvrPct  float64 `json:"harvestMinCvrPct" yaml:"harvest_min_cvr_pct" validate:"gte=0,lte=100"`
	BidMinClicks      float64 `json:"bidMinClicks" yaml:"bid_min_clicks" validate:"gte=0"`
	BidUpAcosFactor   float64 `json:"bidUpAcosFactor" yaml:"bid_up_acos_factor" validate:"gt=0,lt=1"`
	BidDownAcosFactor float64 `json:"bidDownAcosFactor" yaml:"bid_down_acos_factor" validate:"gt=1"`
}

func DefaultRules() SuggestionRules {
	return SuggestionRules{
		TargetAcos:        30,
		NegativeMinClicks: 12,
		NegativeMinSpend:  10,
		HarvestMinClicks:  4,
		HarvestMinOrders:  2,
		HarvestMinCvrPct:  10,
		BidMinClicks:      10,
		BidUpAcosFactor:   0.7,
		BidDownAcosFactor: 1.3,
	}
}

type Category string

const (
	CategoryNegation Category = "negation"
	CategoryHarvest  Category = "harvest"
	CategoryBidUp    Category = "bid_up"
	CategoryBidDown  Category = "bid_down"
)

const (
	MatchExact          = "exact"
	MatchPhrase         = "phrase"
	MatchNegativeExact  = "negative_exact"
	MatchNegativePhrase = "negative_phrase"
)

type SuggestionRow struct {
	Category           Category `json:"category"`
	RecordID           string   `json:"recordId"`
	SearchTerm         string   `json:"searchTerm"`
	CampaignName       string   `json:"campaignName"`
	AdGroupName        string   `json:"adGroupName"`
	MatchType          string   `json:"matchType"`
	SuggestedMatchType string   `json:"suggestedMatchType"`
	Reason             string   `json:"reason"`
	BaseMetrics
	CTR            float64  `json:"ctr"`
	CPC            float64  `json:"cpc"`
	ConversionRate float64  `json:"conversionRate"`
	ACOS           *float64 `json:"acos"`
	ROAS           *float64 `json:"roas"`
}

type SuggestionMeta struct {
	Rules      SuggestionRules `json:"rules"`
	AverageCPC float64         `json:"averageCpc"`
	Evaluated  int             `json:"evaluated"`
}

type Suggestions struct {
	Negation []SuggestionRow `json:"negation"`
	Harvest  []SuggestionRow `json:"harvest"`
	BidUp    []SuggestionRow `json:"bidUp"`
	BidDown  []SuggestionRow `json:"bidDown"`
	Meta     SuggestionMeta  `json:"meta"`
}
