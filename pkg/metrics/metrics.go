package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordRelationOperation records a Service operation. reason is the error kind
// of a rejection and is ignored on success.
func (r *Registry) RecordRelationOperation(operation, status, reason string, duration time.Duration) {
	r.RelationOperationsTotal.WithLabelValues(operation, status).Inc()
	r.RelationOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if status != "success" && reason != "" {
		r.RelationRejectionsTotal.WithLabelValues(reason).Inc()
	}
}

// RecordResolverOutcome counts one resolver decision.
func (r *Registry) RecordResolverOutcome(outcome string) {
	r.ResolverOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordPersistenceCall records one persistence round trip
func (r *Registry) RecordPersistenceCall(operation, status string, duration time.Duration) {
	r.PersistenceCallsTotal.WithLabelValues(operation, status).Inc()
	r.PersistenceCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordImportViolations counts violations by type.
func (r *Registry) RecordImportViolations(counts map[string]int) {
	for typ, n := range counts {
		r.ImportViolationsTotal.WithLabelValues(typ).Add(float64(n))
	}
}

// SetModelSize updates the node and edge gauges.
func (r *Registry) SetModelSize(nodes, edges int) {
	r.ModelNodesTotal.Set(float64(nodes))
	r.ModelEdgesTotal.Set(float64(edges))
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges.
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
