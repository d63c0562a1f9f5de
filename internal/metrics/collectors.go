package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// Collectors exports ingestion and suggestion counters to Prometheus.
type Collectors struct {
	reports     prometheus.Counter
	rows        *prometheus.CounterVec
	suggestions *prometheus.CounterVec
}

func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "searchterm",
			Name:      "reports_ingested_total",
			Help:      "Reports ingested.",
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchterm",
			Name:      "rows_total",
			Help:      "Report rows by outcome.",
		}, []string{"outcome"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "searchterm",
			Name:      "suggestions_total",
			Help:      "Suggestion rows produced by category.",
		}, []string{"category"}),
	}
	reg.MustRegister(c.reports, c.rows, c.suggestions)
	return c
}

func (c *Collectors) ObserveIngest(stats models.IngestStats) {
	c.reports.Inc()
	c.rows.WithLabelValues("accepted").Add(float64(stats.RowsAccepted))
	for reason, n := range stats.RejectReasons {
		c.rows.WithLabelValues(reason).Add(float64(n))
	}
}

func (c *Collectors) ObserveSuggestions(s models.Suggestions) {
	c.suggestions.WithLabelValues(string(models.CategoryNegation)).Add(float64(len(s.Negation)))
	c.suggestions.WithLabelValues(string(models.CategoryHarvest)).Add(float64(len(s.Harvest)))
	c.suggestions.WithLabelValues(string(models.CategoryBidUp)).Add(float64(len(s.BidUp)))
	c.suggestions.WithLabelValues(string(models.CategoryBidDown)).Add(float64(len(s.BidDown)))
}
