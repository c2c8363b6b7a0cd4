// Package graph owns the in-memory model and the Service that keeps it consistent
// with the persistence collaborator.
package graph

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/relations"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Store holds the node and edge collections. Readers always receive clones; only
// the Service writes through the unexported methods.
type Store struct {
	mu sync.RWMutex

	nodes     map[string]*model.Node
	edges     map[string]*model.Edge
	nodeOrder []string
	edgeOrder []string

	outgoingEdges map[string][]string
	incomingEdges map[string][]string

	states map[string]model.EdgeState
	busy   map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:         make(map[string]*model.Node),
		edges:         make(map[string]*model.Edge),
		outgoingEdges: make(map[string][]string),
		incomingEdges: make(map[string][]string),
		states:        make(map[string]model.EdgeState),
		busy:          make(map[string]struct{}),
	}
}

// GetNode returns a copy of the node with the given id.
func (s *Store) GetNode(id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n.Clone(), ok
}

// GetEdge returns a copy of the committed edge with the given id.
func (s *Store) GetEdge(id string) (*model.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.edges[id]
	return e.Clone(), ok
}

// GetAllNodes returns copies of every node in insertion order.
func (s *Store) GetAllNodes() []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// GetAllEdges returns copies of every committed edge in insertion order.
func (s *Store) GetAllEdges() []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id].Clone())
	}
	return out
}

// GetOutgoingEdges returns copies of the edges whose source is nodeID.
func (s *Store) GetOutgoingEdges(nodeID string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneEdges(s.outgoingEdges[nodeID])
}

// GetIncomingEdges returns copies of the edges whose target is nodeID.
func (s *Store) GetIncomingEdges(nodeID string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneEdges(s.incomingEdges[nodeID])
}

// IncidentEdges returns outgoing then incoming edges of nodeID.
func (s *Store) IncidentEdges(nodeID string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.cloneEdges(s.outgoingEdges[nodeID])
	return append(out, s.cloneEdges(s.incomingEdges[nodeID])...)
}

// FindEdge returns the committed edge of the given kind between source and target.
func (s *Store) FindEdge(kind schema.EdgeKind, source, target string) (*model.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.outgoingEdges[source] {
		e := s.edges[id]
		if e.Kind == kind && e.Target == target {
			return e.Clone(), true
		}
	}
	return nil, false
}

// EdgeState returns the lifecycle state of an edge id. Unknown ids report Proposed
// and false.
func (s *Store) EdgeState(id string) (model.EdgeState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	return st, ok
}

// Len returns the number of nodes and committed edges.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// Label renders a node for user messages, falling back to its id.
func (s *Store) Label(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, ok := s.nodes[id]; ok {
		return n.Label()
	}
	return fmt.Sprintf("node %q", id)
}

func (s *Store) cloneEdges(ids []string) []*model.Edge {
	out := make([]*model.Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.edges[id].Clone())
	}
	return out
}

// replace swaps the whole content of the store. Every edge becomes Committed.
func (s *Store) replace(nodes []*model.Node, edges []*model.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*model.Node, len(nodes))
	s.edges = make(map[string]*model.Edge, len(edges))
	s.nodeOrder = nil
	s.edgeOrder = nil
	s.outgoingEdges = make(map[string][]string)
	s.incomingEdges = make(map[string][]string)
	s.states = make(map[string]model.EdgeState, len(edges))

	for _, n := range nodes {
		s.putNode(n.Clone())
	}
	for _, e := range edges {
		s.putEdge(e.Clone())
	}
}

// add inserts new nodes and committed edges.
func (s *Store) add(nodes []*model.Node, edges []*model.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nodes {
		s.putNode(n.Clone())
	}
	for _, e := range edges {
		s.putEdge(e.Clone())
	}
}

// checkTransition reports ErrEdgeState when op may not run on the edge id.
func (s *Store) checkTransition(op relations.Op, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, known := s.states[id]
	switch op {
	case relations.OpCommit:
		if known && st != model.Proposed {
			return relations.NewError(string(op)).Edge(id).Cause(relations.ErrEdgeState).
				Messagef("edge %s is already %s", id, st).Err()
		}
	default:
		if !known {
			return relations.NewError(string(op)).Edge(id).Cause(relations.ErrEdgeNotFound).
				Messagef("edge %s does not exist", id).Err()
		}
		if st != model.Committed {
			return relations.NewError(string(op)).Edge(id).Cause(relations.ErrEdgeState).
				Messagef("edge %s is %s", id, st).Err()
		}
	}
	return nil
}

// apply writes a persisted change into the store.
func (s *Store) apply(c *relations.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Source != nil {
		if n, ok := s.nodes[c.Source.ID]; ok {
			c.SourcePatch.Apply(n)
		}
	}
	if c.Target != nil {
		if n, ok := s.nodes[c.Target.ID]; ok {
			c.TargetPatch.Apply(n)
		}
	}

	switch c.Op {
	case relations.OpCommit:
		s.putEdge(c.Edge.Clone())
	case relations.OpRetype:
		s.edges[c.Edge.ID] = c.Edge.Clone()
	case relations.OpRetract:
		s.removeEdge(c.Edge.ID)
		s.states[c.Edge.ID] = model.Retracted
	}
}

func (s *Store) insertNode(n *model.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putNode(n.Clone())
}

// deleteNode removes a node that no longer has incident edges.
func (s *Store) deleteNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return
	}
	delete(s.nodes, id)
	s.nodeOrder = without(s.nodeOrder, id)
	delete(s.outgoingEdges, id)
	delete(s.incomingEdges, id)
}

// acquire marks every key busy, or none when one of them already is.
func (s *Store) acquire(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if _, taken := s.busy[k]; taken {
			return fmt.Errorf("%w: %s", relations.ErrBusy, k)
		}
	}
	for _, k := range keys {
		s.busy[k] = struct{}{}
	}
	return nil
}

func (s *Store) release(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.busy, k)
	}
}

// Callers of the helpers below must hold s.mu.

func (s *Store) putNode(n *model.Node) {
	if _, exists := s.nodes[n.ID]; !exists {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	}
	s.nodes[n.ID] = n
}

func (s *Store) putEdge(e *model.Edge) {
	if _, exists := s.edges[e.ID]; !exists {
		s.edgeOrder = append(s.edgeOrder, e.ID)
		s.outgoingEdges[e.Source] = append(s.outgoingEdges[e.Source], e.ID)
		s.incomingEdges[e.Target] = append(s.incomingEdges[e.Target], e.ID)
	}
	s.edges[e.ID] = e
	s.states[e.ID] = model.Committed
}

func (s *Store) removeEdge(id string) {
	e, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	s.edgeOrder = without(s.edgeOrder, id)
	s.outgoingEdges[e.Source] = without(s.outgoingEdges[e.Source], id)
	s.incomingEdges[e.Target] = without(s.incomingEdges[e.Target], id)
}

func without(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func nodeKey(id string) string { return "node:" + id }

func edgeKey(id string) string { return "edge:" + id }
