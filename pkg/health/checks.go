package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
)

// PersistenceCheck probes the backing store. ping is typically a cheap list call
// against the persistence client.
func PersistenceCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "persistence"}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Connected"
		return check
	}
}

// ConsistencyCheck runs the consistency validator over the stored model. Error
// violations make the store unhealthy; warnings only degrade it.
func ConsistencyCheck(validate func(ctx context.Context) (*constraints.ValidationResult, error)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "consistency", Details: make(map[string]any)}

		result, err := validate(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		var errs, warnings int
		for _, v := range result.Violations {
			switch v.Severity {
			case constraints.Error:
				errs++
			case constraints.Warning:
				warnings++
			}
		}
		check.Details["errors"] = errs
		check.Details["warnings"] = warnings

		switch {
		case errs > 0:
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("%d consistency errors", errs)
		case warnings > 0:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d consistency warnings", warnings)
		default:
			check.Status = StatusHealthy
			check.Message = "Model consistent"
		}
		return check
	}
}

// MemoryCheck reports heap usage from the Go runtime.
func MemoryCheck() CheckFunc {
	return func(context.Context) Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name:    "memory",
			Status:  StatusHealthy,
			Message: "Memory usage normal",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}
		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}
