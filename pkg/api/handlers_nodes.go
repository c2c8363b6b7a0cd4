package api

import (
	"net/http"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/validation"
)

// deleteResponse is the body of a successful DELETE.
type deleteResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	s.NewMethodRouter(w, r).
		Get(func() { s.listNodes(w, r) }).
		Post(func() { s.createNode(w, r) }).
		NotAllowed()
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.backend.ListNodes(r.Context())
	if err != nil {
		status, msg := s.sanitizeError(err, "list nodes")
		s.respondError(w, status, msg)
		return
	}
	if nodes == nil {
		nodes = []*model.Node{}
	}
	s.respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var node model.Node
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&node).ValidateNode(nodeHeader(&node))
	if decoder.RespondError() {
		return
	}

	created, err := s.backend.CreateNode(r.Context(), &node)
	if err != nil {
		status, msg := s.sanitizeError(err, "create node")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := s.NewPathExtractor(w, r).ExtractID("/nodes/")
	if !ok {
		return
	}

	s.NewMethodRouter(w, r).
		Patch(func() { s.updateNode(w, r, nodeID) }).
		Delete(func() { s.deleteNode(w, r, nodeID) }).
		NotAllowed()
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	var patch model.Patch
	decoder := s.NewRequestDecoder(w, r)
	decoder.DecodeJSON(&patch).ValidatePatch(patchRequest(patch))
	if decoder.RespondError() {
		return
	}

	updated, err := s.backend.UpdateNode(r.Context(), nodeID, patch)
	if err != nil {
		status, msg := s.sanitizeError(err, "update node")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request, nodeID string) {
	id, err := s.backend.DeleteNode(r.Context(), nodeID)
	if err != nil {
		status, msg := s.sanitizeError(err, "delete node")
		s.respondError(w, status, msg)
		return
	}
	s.respondJSON(w, http.StatusOK, deleteResponse{ID: id})
}

func nodeHeader(n *model.Node) *validation.NodeRequest {
	return &validation.NodeRequest{
		ID:     n.ID,
		Kind:   string(n.Kind),
		Aspect: string(n.Aspect),
		Name:   n.Name,
	}
}

func patchRequest(p model.Patch) *validation.PatchRequest {
	fields := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		fields[i] = string(f)
	}
	return &validation.PatchRequest{Fields: fields}
}
