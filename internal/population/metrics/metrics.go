package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for level ingestion runs.
type Metrics struct {
	// Rows published per relation
	RowsPublished *prometheus.CounterVec

	// Full level run latency, load through publish
	RunDuration *prometheus.HistogramVec

	// Failed runs by level and error code
	RunFailures *prometheus.CounterVec

	// Variable-map cache lookups by result: "hit", "miss", "error", "bypass"
	CacheLookups *prometheus.CounterVec
}

// NewWithRegistry registers the ingestion metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acspop_rows_published_total",
			Help: "Total rows published by relation",
		}, []string{"level", "relation"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acspop_run_duration_seconds",
			Help:    "Duration of a level run from loading raw tables to publish",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"level"}),

		RunFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acspop_run_failures_total",
			Help: "Total failed level runs by error code",
		}, []string{"level", "code"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acspop_variable_cache_lookups_total",
			Help: "Variable map cache lookups by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) AddRowsPublished(level, relation string, rows int) {
	if m != nil {
		m.RowsPublished.WithLabelValues(level, relation).Add(float64(rows))
	}
}

func (m *Metrics) ObserveRunDuration(level string, d time.Duration) {
	if m != nil {
		m.RunDuration.WithLabelValues(level).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRunFailure(level, code string) {
	if m != nil {
		m.RunFailures.WithLabelValues(level, code).Inc()
	}
}

func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
