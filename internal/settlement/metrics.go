package settlement

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records finalize outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	finalizations       *prometheus.CounterVec
	duration            prometheus.Histogram
	invariantViolations prometheus.Counter
}

// NewMetrics registers the finalize collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		finalizations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "settlewise",
			Name:      "finalize_total",
			Help:      "Finalize calls by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "settlewise",
			Name:      "finalize_duration_seconds",
			Help:      "Finalize latency, replays included.",
			Buckets:   prometheus.DefBuckets,
		}),
		invariantViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "settlewise",
			Name:      "invariant_violations_total",
			Help:      "Finalize attempts aborted because balances or transfers did not conserve money.",
		}),
	}
}

func (m *Metrics) observe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if outcome == "invariant_violation" {
		m.invariantViolations.Inc()
	}
}
