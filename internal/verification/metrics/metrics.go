package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification workflow.
type Metrics struct {
	// Per-provider check latency, including timed-out calls.
	CheckLatency *prometheus.HistogramVec

	// Cycle outcomes by final status and subject type.
	CycleOutcome *prometheus.CounterVec

	// Providers that returned the unreachable sentinel.
	ChecksUnreachable prometheus.Counter

	// State machine transitions taken.
	Transitions *prometheus.CounterVec
}

// New creates and registers all workflow metrics.
func New() *Metrics {
	return &Metrics{
		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustgate_check_duration_seconds",
			Help:    "Duration of check provider invocations by check name",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"check"}),

		CycleOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_cycle_outcomes_total",
			Help: "Verification cycle outcomes by status and subject type",
		}, []string{"status", "subject_type"}),

		ChecksUnreachable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_checks_unreachable_total",
			Help: "Check provider invocations that timed out or errored",
		}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_transitions_total",
			Help: "State machine transitions by source and destination state",
		}, []string{"from", "to"}),
	}
}

// ObserveCheckLatency records one provider invocation.
func (m *Metrics) ObserveCheckLatency(check string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(check).Observe(d.Seconds())
	}
}

// IncrementOutcome records a completed cycle.
func (m *Metrics) IncrementOutcome(status, subjectType string) {
	if m != nil {
		m.CycleOutcome.WithLabelValues(status, subjectType).Inc()
	}
}

// IncrementUnreachable records a provider that produced the sentinel.
func (m *Metrics) IncrementUnreachable() {
	if m != nil {
		m.ChecksUnreachable.Inc()
	}
}

// IncrementTransition records one taken state machine edge.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}
