package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the anchoring subsystem.
type Metrics struct {
	// Anchor submissions by outcome
	Anchors *prometheus.CounterVec

	// Horizon submission latency
	SubmitLatency prometheus.Histogram

	// Confirmation polls by terminal outcome
	PollOutcomes *prometheus.CounterVec

	// Verification checks by result and cache hit
	Verifications *prometheus.CounterVec

	// Circuit breaker state changes
	BreakerTransitions *prometheus.CounterVec
}

// New creates a Metrics instance with all anchoring metrics registered.
func New() *Metrics {
	return &Metrics{
		Anchors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_stellar_anchors_total",
			Help: "Total anchor submissions by outcome",
		}, []string{"outcome", "network"}), // outcome: "success", "failed"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "docproof_stellar_submit_duration_seconds",
			Help:    "Duration of ledger transaction submissions",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PollOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_stellar_poll_outcomes_total",
			Help: "Total confirmation polls by terminal outcome",
		}, []string{"outcome"}), // outcome: "success", "failed", "timeout"

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_stellar_verifications_total",
			Help: "Total document verifications by result and cache hit",
		}, []string{"result", "cached"}),

		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docproof_stellar_breaker_transitions_total",
			Help: "Circuit breaker state changes by direction",
		}, []string{"direction"}), // direction: "opened", "closed"
	}
}

// RecordAnchor records an anchor submission outcome and its latency.
func (m *Metrics) RecordAnchor(outcome, network string, d time.Duration) {
	if m != nil {
		m.Anchors.WithLabelValues(outcome, network).Inc()
		m.SubmitLatency.Observe(d.Seconds())
	}
}

// RecordPollOutcome records a poll reaching a terminal outcome.
func (m *Metrics) RecordPollOutcome(outcome string) {
	if m != nil {
		m.PollOutcomes.WithLabelValues(outcome).Inc()
	}
}

// RecordVerification records a verification check.
func (m *Metrics) RecordVerification(verified, cached bool) {
	if m != nil {
		m.Verifications.WithLabelValues(boolLabel(verified), boolLabel(cached)).Inc()
	}
}

// RecordBreakerTransition records the breaker opening or closing.
func (m *Metrics) RecordBreakerTransition(direction string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(direction).Inc()
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
