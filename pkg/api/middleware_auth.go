package api

import (
	"net/http"

	"github.com/dd0wney/cluso-modeler/pkg/auth"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
)

// requireAuth validates the bearer token and protects endpoints. Viewers may
// only read.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if s.validator == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			s.countAuthFailure()
			s.respondError(w, http.StatusUnauthorized, "Missing authentication (Bearer token required)")
			return
		}

		claims, err := s.validator.ValidateToken(r.Context(), token)
		if err != nil {
			s.logger.Debug("token validation failed", logging.Error(err), logging.Path(r.URL.Path))
			s.countAuthFailure()
			s.respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !auth.CanWrite(claims.Role) {
			if s.metrics != nil {
				s.metrics.ForbiddenTotal.Inc()
			}
			s.respondError(w, http.StatusForbidden, "Role "+claims.Role+" may not modify the model")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	}
}

func (s *Server) countAuthFailure() {
	if s.metrics != nil {
		s.metrics.AuthFailuresTotal.Inc()
	}
}
