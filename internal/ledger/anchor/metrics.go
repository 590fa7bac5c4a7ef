package anchor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts anchor dispatch outcomes. A nil *Metrics is valid and
// records nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	Enqueued  prometheus.Counter
	Completed prometheus.Counter
	Failed    prometheus.Counter
	Dropped   prometheus.Counter
}

// NewMetrics creates and registers the anchor dispatcher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_anchor_enqueued_total",
			Help: "Anchor requests accepted onto the dispatch queue",
		}),
		Completed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_anchor_completed_total",
			Help: "Anchor requests stored on the ledger",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_anchor_failed_total",
			Help: "Anchor requests that failed against the ledger",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_anchor_dropped_total",
			Help: "Anchor requests dropped due to queue saturation or shutdown",
		}),
	}
}

func (m *Metrics) enqueued() {
	if m != nil {
		m.Enqueued.Inc()
	}
}

func (m *Metrics) completed() {
	if m != nil {
		m.Completed.Inc()
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
