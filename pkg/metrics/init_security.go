package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSecurityMetrics() {
	r.AuthFailuresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "modeler_auth_failures_total",
			Help: "Total number of authentication failures",
		},
	)

	r.TokensIssuedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "modeler_auth_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	r.ForbiddenTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "modeler_auth_forbidden_total",
			Help: "Requests rejected because the role lacks permission",
		},
	)
}
