package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow module.
type Metrics struct {
	// Committed transitions by edge
	Transitions *prometheus.CounterVec

	// Rejected transition attempts by requested target state
	InvalidTransitions *prometheus.CounterVec

	// Transition latency including store round-trips
	TransitionLatency prometheus.Histogram
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_workflow_transitions_total",
			Help: "Total committed workflow transitions by from/to state",
		}, []string{"from", "to"}),

		InvalidTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_workflow_invalid_transitions_total",
			Help: "Total rejected transition attempts by requested target state",
		}, []string{"to"}),

		TransitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docproof_workflow_transition_duration_seconds",
			Help:    "Duration of workflow transitions including persistence",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// RecordTransition records a committed transition.
func (m *Metrics) RecordTransition(from, to string, d time.Duration) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
		m.TransitionLatency.Observe(d.Seconds())
	}
}

// RecordInvalidTransition records a rejected transition attempt.
func (m *Metrics) RecordInvalidTransition(to string) {
	if m != nil {
		m.InvalidTransitions.WithLabelValues(to).Inc()
	}
}
