package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for cross-service aggregation.
type Metrics struct {
	AggregateLatency   prometheus.Histogram
	AggregateOutcome   *prometheus.CounterVec
	ServiceUnreachable *prometheus.CounterVec
	CacheHits          prometheus.Counter
}

// New creates and registers all aggregator metrics.
func New() *Metrics {
	return &Metrics{
		AggregateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustgate_aggregate_duration_seconds",
			Help:    "Duration of full cross-service aggregation requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AggregateOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_aggregate_outcomes_total",
			Help: "Aggregation results by final state",
		}, []string{"state"}),
		ServiceUnreachable: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustgate_aggregate_service_unreachable_total",
			Help: "Downstream services that failed to answer a status poll",
		}, []string{"service"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustgate_aggregate_cache_hits_total",
			Help: "Aggregation requests served from the report cache",
		}),
	}
}

func (m *Metrics) ObserveLatency(d time.Duration) {
	if m != nil {
		m.AggregateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementOutcome(state string) {
	if m != nil {
		m.AggregateOutcome.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncrementUnreachable(service string) {
	if m != nil {
		m.ServiceUnreachable.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}
