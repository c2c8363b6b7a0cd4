package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPersistenceMetrics() {
	r.PersistenceCallsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_persistence_calls_total",
			Help: "Total number of persistence round trips",
		},
		[]string{"operation", "status"},
	)

	r.PersistenceCallDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modeler_persistence_call_duration_seconds",
			Help:    "Persistence round trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.PersistenceFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_persistence_failures_total",
			Help: "Relation operations aborted by a persistence failure",
		},
		[]string{"operation"},
	)

	r.CompensationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_persistence_compensations_total",
			Help: "Compensating writes issued after a failed transaction",
		},
		[]string{"status"},
	)
}
