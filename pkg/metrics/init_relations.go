package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRelationMetrics() {
	r.ModelNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "modeler_nodes_total",
			Help: "Number of nodes held by the store",
		},
	)

	r.ModelEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "modeler_edges_total",
			Help: "Number of committed edges held by the store",
		},
	)

	r.RelationOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_relation_operations_total",
			Help: "Total number of relation operations",
		},
		[]string{"operation", "status"},
	)

	r.RelationOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modeler_relation_operation_duration_seconds",
			Help:    "Relation operation latency in seconds, persistence included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.ResolverOutcomesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_resolver_outcomes_total",
			Help: "Connection attempts by resolver outcome",
		},
		[]string{"outcome"},
	)

	r.RelationRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_relation_rejections_total",
			Help: "Rejected relation operations by error kind",
		},
		[]string{"reason"},
	)

	r.ImportViolationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_import_violations_total",
			Help: "Violations found in imported documents",
		},
		[]string{"type"},
	)

	r.NotificationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "modeler_notifications_total",
			Help: "User notifications by level",
		},
		[]string{"level"},
	)
}
