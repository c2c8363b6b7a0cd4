package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-modeler/pkg/auth"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
	"github.com/dd0wney/cluso-modeler/pkg/validation"
)

// sanitizeError converts a backend error to a status and a user-safe message.
// Internal details are logged but not exposed.
func (s *Server) sanitizeError(err error, operation string) (int, string) {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("%s: not found", operation)
	case errors.Is(err, persistence.ErrConflict):
		return http.StatusConflict, fmt.Sprintf("%s: already exists", operation)
	}
	s.logger.Error("backend call failed", logging.Operation(operation), logging.Error(err))
	return http.StatusInternalServerError, fmt.Sprintf("%s failed", operation)
}

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{
		r:      r,
		w:      w,
		server: s,
	}
}

// DecodeJSON decodes the request body into the provided struct.
// Returns the decoder for chaining. Check HasError() after calling.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := json.NewDecoder(rd.r.Body).Decode(v); err != nil {
		rd.fail(http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
	}
	return rd
}

// ValidateNode checks the header of a node.
func (rd *requestDecoder) ValidateNode(req *validation.NodeRequest) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidateNodeRequest(req); err != nil {
		rd.fail(http.StatusBadRequest, err)
	}
	return rd
}

// ValidateEdge checks an edge against the relation kinds.
func (rd *requestDecoder) ValidateEdge(req *validation.EdgeRequest) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidateEdgeRequest(req); err != nil {
		rd.fail(http.StatusBadRequest, err)
	}
	return rd
}

// ValidatePatch checks that a node update names only relation fields.
func (rd *requestDecoder) ValidatePatch(req *validation.PatchRequest) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidatePatchRequest(req); err != nil {
		rd.fail(http.StatusBadRequest, err)
	}
	return rd
}

// Check runs an extra rule that only applies to one route.
func (rd *requestDecoder) Check(status int, fn func() error) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := fn(); err != nil {
		rd.fail(status, err)
	}
	return rd
}

func (rd *requestDecoder) fail(status int, err error) {
	rd.err = err
	rd.statusCode = status
}

// HasError returns true if any error occurred during decoding/validation.
func (rd *requestDecoder) HasError() bool {
	return rd.err != nil
}

// Error returns the error if any occurred.
func (rd *requestDecoder) Error() error {
	return rd.err
}

// RespondError sends the error response and returns true if there was an error.
// Returns false if no error occurred.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}

// pathIDExtractor extracts IDs from URL paths.
type pathIDExtractor struct {
	w      http.ResponseWriter
	server *Server
	path   string
}

// NewPathExtractor creates a new path extractor.
func (s *Server) NewPathExtractor(w http.ResponseWriter, r *http.Request) *pathIDExtractor {
	return &pathIDExtractor{
		w:      w,
		server: s,
		path:   r.URL.Path,
	}
}

// ExtractID returns the single path segment after prefix. On failure a 400 is
// sent and ok is false.
func (pe *pathIDExtractor) ExtractID(prefix string) (string, bool) {
	if !strings.HasPrefix(pe.path, prefix) {
		pe.server.respondError(pe.w, http.StatusBadRequest, "Invalid path")
		return "", false
	}
	id := strings.TrimSuffix(pe.path[len(prefix):], "/")
	if id == "" || strings.Contains(id, "/") || len(id) > validation.MaxIDLength {
		pe.server.respondError(pe.w, http.StatusBadRequest, "Invalid ID format")
		return "", false
	}
	return id, true
}

// methodRouter routes requests based on HTTP method.
// Provides a cleaner alternative to switch statements for method routing.
type methodRouter struct {
	w       http.ResponseWriter
	r       *http.Request
	server  *Server
	handled bool
}

// NewMethodRouter creates a new method router.
func (s *Server) NewMethodRouter(w http.ResponseWriter, r *http.Request) *methodRouter {
	return &methodRouter{
		w:      w,
		r:      r,
		server: s,
	}
}

func (mr *methodRouter) on(method string, handler func()) *methodRouter {
	if !mr.handled && mr.r.Method == method {
		handler()
		mr.handled = true
	}
	return mr
}

// Get handles GET requests with the provided handler.
func (mr *methodRouter) Get(handler func()) *methodRouter {
	return mr.on(http.MethodGet, handler)
}

// Post handles POST requests with the provided handler.
func (mr *methodRouter) Post(handler func()) *methodRouter {
	return mr.on(http.MethodPost, handler)
}

// Put handles PUT requests with the provided handler.
func (mr *methodRouter) Put(handler func()) *methodRouter {
	return mr.on(http.MethodPut, handler)
}

// Patch handles PATCH requests with the provided handler.
func (mr *methodRouter) Patch(handler func()) *methodRouter {
	return mr.on(http.MethodPatch, handler)
}

// Delete handles DELETE requests with the provided handler.
func (mr *methodRouter) Delete(handler func()) *methodRouter {
	return mr.on(http.MethodDelete, handler)
}

// NotAllowed sends a 405 response if no method matched.
func (mr *methodRouter) NotAllowed() {
	if !mr.handled {
		mr.server.respondError(mr.w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, auth.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
