package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-modeler/pkg/metrics"
)

// Metrics creates middleware that records request counts, latency and
// in-flight requests. route maps a request to a bounded label, such as
// "/nodes/{id}"; a nil route uses the raw path.
func Metrics(reg *metrics.Registry, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reg.HTTPRequestsInFlight.Inc()
			defer reg.HTTPRequestsInFlight.Dec()

			rec := record(w)
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route != nil {
				path = route(r)
			}
			reg.RecordHTTPRequest(r.Method, path, strconv.Itoa(rec.status), time.Since(start))
		})
	}
}
