package api

import (
	"net/http"
)

// handleValidate reports every consistency violation in the stored model. The
// status is 200 whether or not the model is valid.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Get(func() {
			result, err := s.validate(r.Context())
			if err != nil {
				status, msg := s.sanitizeError(err, "validate model")
				s.respondError(w, status, msg)
				return
			}
			s.respondJSON(w, http.StatusOK, result)
		}).
		NotAllowed()
}
