package api

import (
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
	"github.com/dd0wney/cluso-modeler/pkg/validation"
)

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Get(func() { s.listEdges(w, r) }).
		Post(func() { s.createEdge(w, r) }).
		NotAllowed()
}

func (s *Server) listEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := s.backend.ListEdges(r.Context())
	if err != nil {
		status, msg := s.sanitizeError(err, "list edges")
		s.respondError(w, status, msg)
		return
	}
	if edges == nil {
		edges = []*model.Edge{}
	}
	s.respondJSON(w, http.StatusOK, edges)
}

func (s *Server) createEdge(w http.ResponseWriter, r *http.Request) {
	var req validation.EdgeRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).ValidateEdge(&req)
	if decoder.RespondError() {
		return
	}

	created, err := s.backend.CreateEdge(r.Context(), edgeFromRequest(&req))
	if err != nil {
		status, msg := s.sanitizeError(err, "create edge")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleEdge(w http.ResponseWriter, r *http.Request) {
	edgeID, ok := s.NewPathExtractor(w, r).ExtractID("/edges/")
	if !ok {
		return
	}

	s.NewMethodRouter(w, r).
		Put(func() { s.updateEdge(w, r, edgeID) }).
		Delete(func() { s.deleteEdge(w, r, edgeID) }).
		NotAllowed()
}

func (s *Server) updateEdge(w http.ResponseWriter, r *http.Request, edgeID string) {
	var req validation.EdgeRequest
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&req).
		ValidateEdge(&req).
		Check(http.StatusBadRequest, func() error {
			if req.ID != edgeID {
				return fmt.Errorf("edge id %q does not match path id %q", req.ID, edgeID)
			}
			return nil
		})
	if decoder.RespondError() {
		return
	}

	updated, err := s.backend.UpdateEdge(r.Context(), edgeFromRequest(&req))
	if err != nil {
		status, msg := s.sanitizeError(err, "update edge")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request, edgeID string) {
	id, err := s.backend.DeleteEdge(r.Context(), edgeID)
	if err != nil {
		status, msg := s.sanitizeError(err, "delete edge")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{ID: id})
}

// edgeFromRequest builds an edge from a validated request.
func edgeFromRequest(req *validation.EdgeRequest) *model.Edge {
	kind, _ := schema.ParseEdgeKind(req.Kind)
	return &model.Edge{
		ID:             req.ID,
		Kind:           kind,
		Source:         req.Source,
		Target:         req.Target,
		LockConnection: req.LockConnection,
	}
}
