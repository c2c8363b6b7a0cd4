package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Relation Metrics
	ModelNodesTotal           prometheus.Gauge
	ModelEdgesTotal           prometheus.Gauge
	RelationOperationsTotal   *prometheus.CounterVec
	RelationOperationDuration *prometheus.HistogramVec
	ResolverOutcomesTotal     *prometheus.CounterVec
	RelationRejectionsTotal   *prometheus.CounterVec
	ImportViolationsTotal     *prometheus.CounterVec
	NotificationsTotal        *prometheus.CounterVec

	// Persistence Metrics
	PersistenceCallsTotal    *prometheus.CounterVec
	PersistenceCallDuration  *prometheus.HistogramVec
	PersistenceFailuresTotal *prometheus.CounterVec
	CompensationsTotal       *prometheus.CounterVec

	// Security Metrics
	AuthFailuresTotal prometheus.Counter
	TokensIssuedTotal prometheus.Counter
	ForbiddenTotal    prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initRelationMetrics()
	r.initPersistenceMetrics()
	r.initSecurityMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
