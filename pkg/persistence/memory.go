package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// Call records one request received by a MemoryClient.
type Call struct {
	Op string
	ID string
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%s)", c.Op, c.ID)
}

// MemoryClient is an in-process Client. It keeps insertion order, records every
// call and can be told to fail upcoming calls.
type MemoryClient struct {
	mu        sync.Mutex
	nodes     map[string]*model.Node
	edges     map[string]*model.Edge
	nodeOrder []string
	edgeOrder []string
	failures  map[string][]error
	calls     []Call
	closed    bool
}

// NewMemoryClient creates an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		nodes:    make(map[string]*model.Node),
		edges:    make(map[string]*model.Edge),
		failures: make(map[string][]error),
	}
}

// Seed stores nodes and edges directly, bypassing fault injection and call recording.
func (m *MemoryClient) Seed(nodes []*model.Node, edges []*model.Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range nodes {
		m.putNode(n.Clone())
	}
	for _, e := range edges {
		m.putEdge(e.Clone())
	}
}

// FailNext makes the next call of op fail with err. Repeated calls queue failures.
func (m *MemoryClient) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], err)
}

// FailNextFor makes the next call of op on the given id fail with err. It takes
// precedence over failures queued with FailNext.
func (m *MemoryClient) FailNextFor(op, id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + id
	m.failures[key] = append(m.failures[key], err)
}

// Calls returns the calls received so far.
func (m *MemoryClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// ResetCalls clears the call log.
func (m *MemoryClient) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Node returns a copy of a stored node.
func (m *MemoryClient) Node(id string) (*model.Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	return n.Clone(), ok
}

// Edge returns a copy of a stored edge.
func (m *MemoryClient) Edge(id string) (*model.Edge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edges[id]
	return e.Clone(), ok
}

// begin records a call and returns the injected failure for it, if any.
// Callers must hold m.mu.
func (m *MemoryClient) begin(ctx context.Context, op, entity, id string) error {
	m.calls = append(m.calls, Call{Op: op, ID: id})
	if m.closed {
		return NewError(op).entity(entity, id).Cause(ErrClosed).Err()
	}
	if err := ctx.Err(); err != nil {
		return TransportError(op, entity, id, err)
	}
	for _, key := range []string{op + ":" + id, op} {
		if queue := m.failures[key]; len(queue) > 0 {
			err := queue[0]
			m.failures[key] = queue[1:]
			return &Error{Op: op, Entity: entity, ID: id, Cause: err}
		}
	}
	return nil
}

func (m *MemoryClient) ListNodes(ctx context.Context) ([]*model.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListNodes, "node", ""); err != nil {
		return nil, err
	}
	out := make([]*model.Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id].Clone())
	}
	return out, nil
}

func (m *MemoryClient) ListEdges(ctx context.Context) ([]*model.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpListEdges, "edge", ""); err != nil {
		return nil, err
	}
	out := make([]*model.Edge, 0, len(m.edgeOrder))
	for _, id := range m.edgeOrder {
		out = append(out, m.edges[id].Clone())
	}
	return out, nil
}

func (m *MemoryClient) CreateNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateNode, "node", node.ID); err != nil {
		return nil, err
	}
	if _, exists := m.nodes[node.ID]; exists {
		return nil, NewError(OpCreateNode).Node(node.ID).Cause(ErrConflict).Err()
	}
	m.putNode(node.Clone())
	return node.Clone(), nil
}

func (m *MemoryClient) UpdateNode(ctx context.Context, id string, patch model.Patch) (*model.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdateNode, "node", id); err != nil {
		return nil, err
	}
	n, ok := m.nodes[id]
	if !ok {
		return nil, NodeNotFoundError(OpUpdateNode, id)
	}
	patch.Apply(n)
	return n.Clone(), nil
}

func (m *MemoryClient) DeleteNode(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteNode, "node", id); err != nil {
		return "", err
	}
	if _, ok := m.nodes[id]; !ok {
		return "", NodeNotFoundError(OpDeleteNode, id)
	}
	delete(m.nodes, id)
	m.nodeOrder = without(m.nodeOrder, id)
	return id, nil
}

func (m *MemoryClient) CreateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpCreateEdge, "edge", edge.ID); err != nil {
		return nil, err
	}
	if _, exists := m.edges[edge.ID]; exists {
		return nil, NewError(OpCreateEdge).Edge(edge.ID).Cause(ErrConflict).Err()
	}
	m.putEdge(edge.Clone())
	return edge.Clone(), nil
}

func (m *MemoryClient) UpdateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpUpdateEdge, "edge", edge.ID); err != nil {
		return nil, err
	}
	if _, ok := m.edges[edge.ID]; !ok {
		return nil, EdgeNotFoundError(OpUpdateEdge, edge.ID)
	}
	m.edges[edge.ID] = edge.Clone()
	return edge.Clone(), nil
}

func (m *MemoryClient) DeleteEdge(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(ctx, OpDeleteEdge, "edge", id); err != nil {
		return "", err
	}
	if _, ok := m.edges[id]; !ok {
		return "", EdgeNotFoundError(OpDeleteEdge, id)
	}
	delete(m.edges, id)
	m.edgeOrder = without(m.edgeOrder, id)
	return id, nil
}

// Close marks the client closed; later calls fail with ErrClosed.
func (m *MemoryClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryClient) putNode(n *model.Node) {
	if _, exists := m.nodes[n.ID]; !exists {
		m.nodeOrder = append(m.nodeOrder, n.ID)
	}
	m.nodes[n.ID] = n
}

func (m *MemoryClient) putEdge(e *model.Edge) {
	if _, exists := m.edges[e.ID]; !exists {
		m.edgeOrder = append(m.edgeOrder, e.ID)
	}
	m.edges[e.ID] = e
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
