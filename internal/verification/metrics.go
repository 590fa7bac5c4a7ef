package verification

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Verdicts by status and entry path ("document" or "identifier")
	Verdicts *prometheus.CounterVec

	// Per-source latency ("extraction", "lookup", "ledger")
	SourceLatency *prometheus.HistogramVec

	// Overall verification latency
	VerifyLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verification_verdicts_total",
			Help: "Total verification verdicts by status and entry path",
		}, []string{"status", "path"}),

		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certledger_verification_source_duration_seconds",
			Help:    "Duration of per-source calls during verification",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certledger_verification_duration_seconds",
			Help:    "Duration of full verification including all source calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementVerdict records a terminal verdict.
func (m *Metrics) IncrementVerdict(status, path string) {
	if m != nil {
		m.Verdicts.WithLabelValues(status, path).Inc()
	}
}

// ObserveSourceLatency records the duration of one upstream call.
func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
