package normalize

import (
	"context"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/searchterm-insights/internal/models"
	"github.com/AngelCh415/searchterm-insights/internal/resolver"
)

// Reject reasons. Rejected rows are dropped, not counted as errors.
const (
	RejectMissingKeys  = "missing_keys"
	RejectEmptyTerm    = "empty_search_term"
	RejectSummaryTotal = "summary_total"
)

var totalMarkers = map[string]struct{}{
	"total": {}, "totals": {}, "grand total": {},
	"合计": {}, "合計": {}, "总计": {}, "總計": {}, "総計": {}, "小计": {},
	"gesamt": {}, "gesamtsumme": {}, "summe": {},
	"total général": {}, "totale": {}, "total general": {},
}

// IsSummaryTerm reports whether a search term marks a report-level total row.
func IsSummaryTerm(term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	t = strings.TrimRight(t, ":：")
	_, ok := totalMarkers[strings.TrimSpace(t)]
	return ok
}

// IDFunc produces record identifiers.
type IDFunc func() string

func newRowID() string { return "row-" + uuid.NewString() }

type Normalizer struct {
	cols    resolver.ColumnMap
	newID   IDFunc
	workers int
}

type Option func(*Normalizer)

func WithIDFunc(f IDFunc) Option { return func(n *Normalizer) { n.newID = f } }

// WithWorkers bounds the goroutines used by All. n <= 0 means GOMAXPROCS.
func WithWorkers(w int) Option { return func(n *Normalizer) { n.workers = w } }

func New(cols resolver.ColumnMap, opts ...Option) *Normalizer {
	n := &Normalizer{cols: cols, newID: newRowID}
	for _, o := range opts {
		o(n)
	}
	if n.workers <= 0 {
		n.workers = runtime.GOMAXPROCS(0)
	}
	return n
}

func (n *Normalizer) cell(row models.RawRow, field string) models.Cell {
	return row.Get(n.cols.Header(field))
}

// Row turns one raw row into a record. On rejection it returns the reason
// and false.
func (n *Normalizer) Row(row models.RawRow) (models.AdRecord, string, bool) {
	termCell := n.cell(row, models.FieldSearchTerm)
	campCell := n.cell(row, models.FieldCampaignName)
	if blank(termCell) && blank(campCell) {
		return models.AdRecord{}, RejectMissingKeys, false
	}
	term := strings.TrimSpace(termCell.Text())
	if term == "" {
		return models.AdRecord{}, RejectEmptyTerm, false
	}
	if IsSummaryTerm(term) {
		return models.AdRecord{}, RejectSummaryTotal, false
	}

	dims := models.Dimensions{
		Date:         Date(n.cell(row, models.FieldDate)),
		CampaignName: Text(campCell),
		AdGroupName:  Text(n.cell(row, models.FieldAdGroupName)),
		MatchType:    Text(n.cell(row, models.FieldMatchType)),
		SearchTerm:   term,
	}
	base := models.BaseMetrics{
		Impressions: Number(n.cell(row, models.FieldImpressions)),
		Clicks:      Number(n.cell(row, models.FieldClicks)),
		Spend:       Number(n.cell(row, models.FieldSpend)),
		Sales:       Number(n.cell(row, models.FieldSales)),
		Orders:      Number(n.cell(row, models.FieldOrders)),
	}
	return models.NewAdRecord(n.newID(), dims, base), "", true
}

// Result is the outcome of normalizing a batch.
type Result struct {
	Records []models.AdRecord
	Stats   models.IngestStats
}

const chunkSize = 512

// All normalizes rows in parallel chunks, keeping input order.
func (n *Normalizer) All(ctx context.Context, rows []models.RawRow) (Result, error) {
	type slot struct {
		rec    models.AdRecord
		reason string
		ok     bool
	}
	slots := make([]slot, len(rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for start := 0; start < len(rows); start += chunkSize {
		start, end := start, min(start+chunkSize, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rec, reason, ok := n.Row(rows[i])
				slots[i] = slot{rec: rec, reason: reason, ok: ok}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		Records: make([]models.AdRecord, 0, len(rows)),
		Stats:   models.IngestStats{RowsRead: len(rows), RejectReasons: map[string]int{}},
	}
	for _, s := range slots {
		if !s.ok {
			res.Stats.RowsRejected++
			res.Stats.RejectReasons[s.reason]++
			continue
		}
		res.Records = append(res.Records, s.rec)
	}
	res.Stats.RowsAccepted = len(res.Records)
	return res, nil
}

func blank(c models.Cell) bool {
	return c.IsAbsent() || strings.TrimSpace(c.Text()) == ""
}
