package models

import "time"

// Logical fields of a search term report.
const (
	FieldDate         = "date"
	FieldCampaignName = "campaignName"
	FieldAdGroupName  = "adGroupName"
	FieldMatchType    = "matchType"
	FieldSearchTerm   = "searchTerm"
	FieldImpressions  = "impressions"
	FieldClicks       = "clicks"
	FieldSpend        = "spend"
	FieldSales        = "sales"
	FieldOrders       = "orders"
)

const Unknown = "Unknown"

type BaseMetrics struct {
	Impressions float64 `json:"impressions"`
	Clicks      float64 `json:"clicks"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Orders      float64 `json:"orders"`
}

type DerivedMetrics struct {
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	ACOS           float64 `json:"acos"`
	ROAS           float64 `json:"roas"`
	ConversionRate float64 `json:"conversionRate"`
}

// Derive computes the ratio metrics. A zero denominator yields 0.
func (b BaseMetrics) Derive() DerivedMetrics {
	return DerivedMetrics{
		CTR:            safeDiv(b.Clicks, b.Impressions),
		CPC:            safeDiv(b.Spend, b.Clicks),
		ACOS:           safeDiv(b.Spend, b.Sales) * 100,
		ROAS:           safeDiv(b.Sales, b.Spend),
		ConversionRate: safeDiv(b.Orders, b.Clicks),
	}
}

// Add returns the element-wise sum.
func (b BaseMetrics) Add(o BaseMetrics) BaseMetrics {
	return BaseMetrics{
		Impressions: b.Impressions + o.Impressions,
		Clicks:      b.Clicks + o.Clicks,
		Spend:       b.Spend + o.Spend,
		Sales:       b.Sales + o.Sales,
		Orders:      b.Orders + o.Orders,
	}
}

type Dimensions struct {
	Date         string `json:"date"`
	CampaignName string `json:"campaignName"`
	AdGroupName  string `json:"adGroupName"`
	MatchType    string `json:"matchType"`
	SearchTerm   string `json:"searchTerm"`
}

// AdRecord is a normalized report row. Build it with NewAdRecord so the
// derived metrics always match the base metrics.
type AdRecord struct {
	ID string `json:"id"`
	Dimensions
	BaseMetrics
	DerivedMetrics
}

func NewAdRecord(id string, dims Dimensions, base BaseMetrics) AdRecord {
	return AdRecord{ID: id, Dimensions: dims, BaseMetrics: base, DerivedMetrics: base.Derive()}
}

// AggregateDetails records which source rows contributed to an aggregated record.
type AggregateDetails struct {
	CampaignNames []string `json:"campaignNames"`
	AdGroupNames  []string `json:"adGroupNames"`
	MatchTypes    []string `json:"matchTypes"`
	SourceRows    int      `json:"sourceRows"`
}

type IngestStats struct {
	RowsRead      int            `json:"rowsRead"`
	RowsAccepted  int            `json:"rowsAccepted"`
	RowsRejected  int            `json:"rowsRejected"`
	RejectReasons map[string]int `json:"rejectReasons,omitempty"`
}

// Report is the result of one ingestion pass.
type Report struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	Sheet      string            `json:"sheet"`
	Sheets     []string          `json:"sheets"`
	Currency   *string           `json:"currency"`
	Columns    map[string]string `json:"columns"`
	Stats      IngestStats       `json:"stats"`
	IngestedAt time.Time         `json:"ingestedAt"`
	Records    []AdRecord        `json:"-"`
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
