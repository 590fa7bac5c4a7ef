package ingestion

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ingestion module.
type Metrics struct {
	// Rows by outcome ("inserted", "updated", "failed")
	Rows *prometheus.CounterVec

	// Full batch latency including parsing and persistence
	BatchLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Rows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_ingestion_rows_total",
			Help: "Total ingested rows by outcome",
		}, []string{"outcome"}),

		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certledger_ingestion_batch_duration_seconds",
			Help:    "Duration of full batch ingestion",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// AddRows records n rows with the given outcome.
func (m *Metrics) AddRows(outcome string, n int) {
	if m != nil && n > 0 {
		m.Rows.WithLabelValues(outcome).Add(float64(n))
	}
}

// ObserveBatchLatency records one batch duration.
func (m *Metrics) ObserveBatchLatency(d time.Duration) {
	if m != nil {
		m.BatchLatency.Observe(d.Seconds())
	}
}
