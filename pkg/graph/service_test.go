package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/notify"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
	"github.com/dd0wney/cluso-modeler/pkg/relations"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

var errBoom = errors.New("boom")

type harness struct {
	svc    *Service
	client *persistence.MemoryClient
	notes  *notify.Recorder
	reg    *metrics.Registry
}

func newHarness(t *testing.T, nodes []*model.Node, edges []*model.Edge) *harness {
	t.Helper()
	client := persistence.NewMemoryClient()
	client.Seed(nodes, edges)

	var seq atomic.Int64
	h := &harness{client: client, notes: &notify.Recorder{}, reg: metrics.NewRegistry()}
	h.svc = NewService(client,
		WithNotifier(h.notes),
		WithMetrics(h.reg),
		WithIDGenerator(func() string { return fmt.Sprintf("e%d", seq.Add(1)) }),
	)
	require.NoError(t, h.svc.Load(context.Background()))
	h.notes.Reset()
	client.ResetCalls()
	return h
}

func (h *harness) calls() []string {
	var out []string
	for _, c := range h.client.Calls() {
		out = append(out, c.String())
	}
	return out
}

func (h *harness) node(t *testing.T, id string) *model.Node {
	t.Helper()
	n, ok := h.svc.Store().GetNode(id)
	require.True(t, ok, "node %s missing from store", id)
	return n
}

func (h *harness) requireConsistent(t *testing.T) {
	t.Helper()
	result, err := h.svc.Validate()
	require.NoError(t, err)
	assert.True(t, result.Valid, "violations: %v", result.Messages())
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, vec.WithLabelValues(labels...).Write(&m))
	return m.Counter.GetValue()
}

func block(id string) *model.Node {
	return model.NewNode(id, schema.Block, model.AspectNone, "")
}

func terminal(id string) *model.Node {
	return model.NewNode(id, schema.Terminal, model.AspectNone, "")
}

func connector(id string) *model.Node {
	return model.NewNode(id, schema.Connector, model.AspectNone, "")
}

// attached returns T1 and B1 already joined by a locked Connected edge e0.
func attached() ([]*model.Node, []*model.Edge) {
	t1, b1 := terminal("T1"), block("B1")
	t1.TerminalOf = "B1"
	b1.Terminals = []model.Ref{{ID: "T1"}}
	return []*model.Node{t1, b1, block("B2")},
		[]*model.Edge{{ID: "e0", Kind: schema.Connected, Source: "T1", Target: "B1", LockConnection: true}}
}

func TestConnectTerminalToBlock(t *testing.T) {
	h := newHarness(t, []*model.Node{terminal("T1"), block("B1")}, nil)

	res, edge, err := h.svc.Connect(context.Background(), "T1", "B1", relations.ConnectionContext{})
	require.NoError(t, err)
	assert.Equal(t, relations.Resolved, res.Outcome)
	assert.Equal(t, &model.Edge{ID: "e1", Kind: schema.Connected, Source: "T1", Target: "B1", LockConnection: true}, edge)

	assert.Equal(t, "B1", h.node(t, "T1").TerminalOf)
	assert.Equal(t, []model.Ref{{ID: "T1"}}, h.node(t, "B1").Terminals)
	assert.Equal(t, []string{"CreateEdge(e1)", "UpdateNode(T1)", "UpdateNode(B1)"}, h.calls())

	stored, _ := h.client.Node("T1")
	assert.Equal(t, "B1", stored.TerminalOf)

	assert.Equal(t, []string{`Connected Terminal "T1" to Block "B1" as Connected`}, h.notes.Successes())
	assert.Empty(t, h.notes.Errors())
	assert.Equal(t, 1.0, counterValue(t, h.reg.RelationOperationsTotal, OpConnect, "success"))
	assert.Equal(t, 1.0, counterValue(t, h.reg.ResolverOutcomesTotal, "Resolved"))
	h.requireConsistent(t)
}

func TestConnectRejectsOccupiedTerminal(t *testing.T) {
	nodes, edges := attached()
	h := newHarness(t, nodes, edges)

	res, edge, err := h.svc.Connect(context.Background(), "T1", "B2", relations.ConnectionContext{})
	require.Error(t, err)
	assert.Nil(t, edge)
	assert.Equal(t, relations.Rejected, res.Outcome)
	assert.ErrorIs(t, err, relations.ErrCardinalityViolation)

	assert.Empty(t, h.calls(), "a rejected connection must not reach persistence")
	assert.Equal(t, []string{`Terminal "T1" is already a terminal of Block "B1"`}, h.notes.Errors())
	assert.Equal(t, 1.0, counterValue(t, h.reg.RelationRejectionsTotal, "cardinality_violation"))
	assert.Equal(t, "B1", h.node(t, "T1").TerminalOf)
}

func TestConnectRejections(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		cc     relations.ConnectionContext
		want   error
	}{
		{"self loop", "B1", "B1", relations.ConnectionContext{}, relations.ErrSelfLoop},
		{"handle kind not allowed", "B1", "B2", relations.ConnectionContext{SourceHandle: "transfer"}, relations.ErrSchemaMismatch},
		{"connector to connector", "C1", "C2", relations.ConnectionContext{}, relations.ErrSchemaMismatch},
		{"missing node", "B1", "ghost", relations.ConnectionContext{}, relations.ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []*model.Node{block("B1"), block("B2"), connector("C1"), connector("C2")}, nil)

			res, _, err := h.svc.Connect(context.Background(), tt.source, tt.target, tt.cc)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Connect() error = %v, want %v", err, tt.want)
			}
			if res.Outcome != relations.Rejected {
				t.Errorf("Outcome = %s, want Rejected", res.Outcome)
			}
			if len(h.notes.Errors()) != 1 {
				t.Errorf("got %d error notifications, want 1", len(h.notes.Errors()))
			}
		})
	}
}

func TestConnectAmbiguousBlocks(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)
	ctx := context.Background()

	res, edge, err := h.svc.Connect(ctx, "B1", "B2", relations.ConnectionContext{})
	require.NoError(t, err)
	assert.Nil(t, edge)
	assert.Equal(t, relations.Ambiguous, res.Outcome)
	assert.Contains(t, res.Candidates, schema.PartOf)
	assert.Empty(t, h.calls())
	assert.Empty(t, h.notes.All())

	edge, err = h.svc.ConnectAs(ctx, "B1", "B2", schema.PartOf)
	require.NoError(t, err)
	assert.False(t, edge.LockConnection)
	assert.Equal(t, "B2", h.node(t, "B1").DirectPartOf)
	assert.Equal(t, []model.Ref{{ID: "B1"}}, h.node(t, "B2").DirectParts)
	h.requireConsistent(t)
}

func TestConnectWithHandleKind(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)

	res, edge, err := h.svc.Connect(context.Background(), "B1", "B2",
		relations.ConnectionContext{SourceHandle: "specialisation"})
	require.NoError(t, err)
	assert.Equal(t, relations.Resolved, res.Outcome)
	assert.Equal(t, schema.Specialisation, edge.Kind)
	assert.False(t, edge.LockConnection)
	assert.Equal(t, "B2", h.node(t, "B1").SpecialisationOf)
}

func TestConnectAsLocksStructuralKinds(t *testing.T) {
	h := newHarness(t, []*model.Node{terminal("T1"), block("B1"), terminal("T2")}, nil)
	ctx := context.Background()

	edge, err := h.svc.ConnectAs(ctx, "T1", "B1", schema.Connected)
	require.NoError(t, err)
	assert.True(t, edge.LockConnection, "terminal to block admits only Connected")

	edge, err = h.svc.ConnectAs(ctx, "T2", "T1", schema.Transfer)
	require.NoError(t, err)
	assert.True(t, edge.LockConnection, "terminal to terminal admits only Transfer")

	_, err = h.svc.RetypeEdge(ctx, edge.ID, schema.Connected)
	assert.ErrorIs(t, err, relations.ErrLockedEdge)
	h.requireConsistent(t)
}

func TestConnectRejectsDuplicateEdge(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)
	ctx := context.Background()

	_, err := h.svc.ConnectAs(ctx, "B1", "B2", schema.Fulfilled)
	require.NoError(t, err)
	h.client.ResetCalls()

	_, err = h.svc.ConnectAs(ctx, "B1", "B2", schema.Fulfilled)
	assert.ErrorIs(t, err, relations.ErrEdgeState)
	assert.Empty(t, h.calls())
	assert.Len(t, h.svc.Store().GetAllEdges(), 1)
}

func TestConnectPersistenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		fail  func(c *persistence.MemoryClient)
		calls []string
	}{
		{
			name:  "edge create fails",
			fail:  func(c *persistence.MemoryClient) { c.FailNext(persistence.OpCreateEdge, errBoom) },
			calls: []string{"CreateEdge(e1)"},
		},
		{
			name:  "source update fails",
			fail:  func(c *persistence.MemoryClient) { c.FailNextFor(persistence.OpUpdateNode, "T1", errBoom) },
			calls: []string{"CreateEdge(e1)", "UpdateNode(T1)", "DeleteEdge(e1)"},
		},
		{
			name: "target update fails",
			fail: func(c *persistence.MemoryClient) { c.FailNextFor(persistence.OpUpdateNode, "B1", errBoom) },
			calls: []string{
				"CreateEdge(e1)", "UpdateNode(T1)", "UpdateNode(B1)",
				"UpdateNode(T1)", "DeleteEdge(e1)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []*model.Node{terminal("T1"), block("B1")}, nil)
			tt.fail(h.client)

			_, edge, err := h.svc.Connect(context.Background(), "T1", "B1", relations.ConnectionContext{})
			require.Error(t, err)
			assert.Nil(t, edge)
			assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
			assert.ErrorIs(t, err, errBoom)
			assert.Equal(t, tt.calls, h.calls())

			// In-memory model untouched
			assert.Empty(t, h.node(t, "T1").TerminalOf)
			assert.Empty(t, h.node(t, "B1").Terminals)
			assert.Empty(t, h.svc.Store().GetAllEdges())

			// Collaborator restored
			stored, _ := h.client.Node("T1")
			assert.Empty(t, stored.TerminalOf)
			_, ok := h.client.Edge("e1")
			assert.False(t, ok)

			assert.Len(t, h.notes.Errors(), 1)
			assert.Empty(t, h.notes.Successes())
			assert.Equal(t, 1.0, counterValue(t, h.reg.PersistenceFailuresTotal, OpConnect))
		})
	}
}

func TestConnectCancelledBeforeDispatch(t *testing.T) {
	h := newHarness(t, []*model.Node{terminal("T1"), block("B1")}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := h.svc.Connect(ctx, "T1", "B1", relations.ConnectionContext{})
	assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
	assert.ErrorIs(t, err, persistence.ErrTransport)
	assert.Equal(t, []string{"CreateEdge(e1)"}, h.calls())
	assert.Empty(t, h.svc.Store().GetAllEdges())
}

func TestConnectBusy(t *testing.T) {
	h := newHarness(t, []*model.Node{terminal("T1"), block("B1")}, nil)
	ctx := context.Background()

	require.NoError(t, h.svc.Store().acquire(nodeKey("B1")))
	_, _, err := h.svc.Connect(ctx, "T1", "B1", relations.ConnectionContext{})
	assert.ErrorIs(t, err, relations.ErrBusy)
	assert.Empty(t, h.calls())

	h.svc.Store().release(nodeKey("B1"))
	_, _, err = h.svc.Connect(ctx, "T1", "B1", relations.ConnectionContext{})
	assert.NoError(t, err)
}

func TestConcurrentConnectsStayConsistent(t *testing.T) {
	nodes := []*model.Node{block("B1")}
	for i := 0; i < 20; i++ {
		nodes = append(nodes, terminal(fmt.Sprintf("T%d", i)))
	}
	h := newHarness(t, nodes, nil)

	var wg sync.WaitGroup
	var succeeded atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := h.svc.Connect(context.Background(), fmt.Sprintf("T%d", i), "B1", relations.ConnectionContext{})
			switch {
			case err == nil:
				succeeded.Add(1)
			case !errors.Is(err, relations.ErrBusy):
				t.Errorf("Connect(T%d) unexpected error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int(succeeded.Load()), len(h.node(t, "B1").Terminals))
	assert.Len(t, h.svc.Store().GetAllEdges(), int(succeeded.Load()))
	h.requireConsistent(t)
}

func TestDeleteEdge(t *testing.T) {
	nodes, edges := attached()
	h := newHarness(t, nodes, edges)
	ctx := context.Background()

	require.NoError(t, h.svc.DeleteEdge(ctx, "e0"))
	assert.Equal(t, []string{"UpdateNode(T1)", "UpdateNode(B1)", "DeleteEdge(e0)"}, h.calls())
	assert.Empty(t, h.node(t, "T1").TerminalOf)
	assert.Empty(t, h.node(t, "B1").Terminals)
	assert.Empty(t, h.svc.Store().GetAllEdges())
	assert.Equal(t, []string{`Removed Connected relation between Terminal "T1" and Block "B1"`}, h.notes.Successes())

	state, _ := h.svc.Store().EdgeState("e0")
	assert.Equal(t, model.Retracted, state)

	assert.ErrorIs(t, h.svc.DeleteEdge(ctx, "e0"), relations.ErrEdgeState)
	assert.ErrorIs(t, h.svc.DeleteEdge(ctx, "missing"), relations.ErrEdgeNotFound)
	h.requireConsistent(t)
}

func TestDeleteEdgeFailureRestoresEndpoints(t *testing.T) {
	nodes, edges := attached()
	h := newHarness(t, nodes, edges)
	h.client.FailNext(persistence.OpDeleteEdge, errBoom)

	err := h.svc.DeleteEdge(context.Background(), "e0")
	assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
	assert.Equal(t, []string{
		"UpdateNode(T1)", "UpdateNode(B1)", "DeleteEdge(e0)",
		"UpdateNode(B1)", "UpdateNode(T1)",
	}, h.calls())

	assert.Equal(t, "B1", h.node(t, "T1").TerminalOf)
	_, ok := h.svc.Store().GetEdge("e0")
	assert.True(t, ok)

	stored, _ := h.client.Node("T1")
	assert.Equal(t, "B1", stored.TerminalOf)
	stored, _ = h.client.Node("B1")
	assert.Equal(t, []model.Ref{{ID: "T1"}}, stored.Terminals)
	assert.Equal(t, 2.0, counterValue(t, h.reg.CompensationsTotal, "success"))
}

func TestRetypeEdge(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)
	ctx := context.Background()

	_, err := h.svc.ConnectAs(ctx, "B1", "B2", schema.PartOf)
	require.NoError(t, err)
	h.client.ResetCalls()

	edge, err := h.svc.RetypeEdge(ctx, "e1", schema.Fulfilled)
	require.NoError(t, err)
	assert.Equal(t, schema.Fulfilled, edge.Kind)
	assert.Equal(t, []string{"UpdateEdge(e1)", "UpdateNode(B1)", "UpdateNode(B2)"}, h.calls())

	b1, b2 := h.node(t, "B1"), h.node(t, "B2")
	assert.Empty(t, b1.DirectPartOf)
	assert.Equal(t, []model.Ref{{ID: "B2"}}, b1.FulfilledBy)
	assert.Empty(t, b2.DirectParts)
	assert.Equal(t, []model.Ref{{ID: "B1"}}, b2.Fulfills)

	stored, _ := h.client.Edge("e1")
	assert.Equal(t, schema.Fulfilled, stored.Kind)
	h.requireConsistent(t)
}

func TestRetypeEdgeRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("locked edge", func(t *testing.T) {
		nodes, edges := attached()
		h := newHarness(t, nodes, edges)

		_, err := h.svc.RetypeEdge(ctx, "e0", schema.Transfer)
		assert.ErrorIs(t, err, relations.ErrLockedEdge)
		assert.Empty(t, h.calls())
		assert.Len(t, h.notes.Errors(), 1)
	})

	t.Run("duplicate of another edge", func(t *testing.T) {
		h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)
		_, err := h.svc.ConnectAs(ctx, "B1", "B2", schema.PartOf)
		require.NoError(t, err)
		_, err = h.svc.ConnectAs(ctx, "B1", "B2", schema.Fulfilled)
		require.NoError(t, err)
		h.client.ResetCalls()

		_, err = h.svc.RetypeEdge(ctx, "e1", schema.Fulfilled)
		assert.ErrorIs(t, err, relations.ErrEdgeState)
		assert.Empty(t, h.calls())
		assert.Equal(t, "B2", h.node(t, "B1").DirectPartOf)
	})

	t.Run("update of edge fails", func(t *testing.T) {
		h := newHarness(t, []*model.Node{block("B1"), block("B2")}, nil)
		_, err := h.svc.ConnectAs(ctx, "B1", "B2", schema.PartOf)
		require.NoError(t, err)
		h.client.FailNextFor(persistence.OpUpdateNode, "B2", errBoom)
		h.client.ResetCalls()

		_, err = h.svc.RetypeEdge(ctx, "e1", schema.Proxy)
		assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
		assert.Equal(t, []string{
			"UpdateEdge(e1)", "UpdateNode(B1)", "UpdateNode(B2)",
			"UpdateNode(B1)", "UpdateEdge(e1)",
		}, h.calls())

		stored, _ := h.client.Edge("e1")
		assert.Equal(t, schema.PartOf, stored.Kind)
		b1, _ := h.client.Node("B1")
		assert.Equal(t, "B2", b1.DirectPartOf)
		assert.Empty(t, b1.ProxyOf)
		assert.Equal(t, "B2", h.node(t, "B1").DirectPartOf)
	})
}

func TestDeleteNodeCascades(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), terminal("T1"), connector("C1")}, nil)
	ctx := context.Background()

	_, _, err := h.svc.Connect(ctx, "T1", "B1", relations.ConnectionContext{})
	require.NoError(t, err)
	_, _, err = h.svc.Connect(ctx, "B1", "C1", relations.ConnectionContext{})
	require.NoError(t, err)
	h.notes.Reset()

	require.NoError(t, h.svc.DeleteNode(ctx, "B1"))

	_, ok := h.svc.Store().GetNode("B1")
	assert.False(t, ok)
	assert.Empty(t, h.node(t, "T1").TerminalOf)
	assert.False(t, h.node(t, "C1").Contains(schema.ConnectedBy, "B1"))
	assert.Empty(t, h.svc.Store().GetAllEdges())

	_, ok = h.client.Node("B1")
	assert.False(t, ok)
	for _, id := range []string{"e1", "e2"} {
		_, ok := h.client.Edge(id)
		assert.False(t, ok, "edge %s still persisted", id)
	}
	assert.Equal(t, []string{`Deleted Block "B1"`}, h.notes.Successes())
	h.requireConsistent(t)
}

func TestDeleteNodeStopsOnFailure(t *testing.T) {
	h := newHarness(t, []*model.Node{block("B1"), terminal("T1"), connector("C1")}, nil)
	ctx := context.Background()

	_, _, err := h.svc.Connect(ctx, "T1", "B1", relations.ConnectionContext{})
	require.NoError(t, err)
	_, _, err = h.svc.Connect(ctx, "B1", "C1", relations.ConnectionContext{})
	require.NoError(t, err)
	// Outgoing edges go first, so e2 (B1 to C1) is retracted before e1 fails.
	h.client.FailNextFor(persistence.OpDeleteEdge, "e1", errBoom)

	err = h.svc.DeleteNode(ctx, "B1")
	assert.ErrorIs(t, err, relations.ErrPersistenceFailure)

	h.node(t, "B1")
	assert.False(t, h.node(t, "C1").Contains(schema.ConnectedBy, "B1"), "first edge stays retracted")
	assert.Equal(t, "B1", h.node(t, "T1").TerminalOf)
	assert.Len(t, h.svc.Store().GetAllEdges(), 1)
	h.requireConsistent(t)

	assert.ErrorIs(t, h.svc.DeleteNode(ctx, "ghost"), relations.ErrNodeNotFound)
}

func TestCreateNode(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	n, err := h.svc.CreateNode(ctx, schema.Block, model.AspectFunction, "Pump")
	require.NoError(t, err)
	assert.Equal(t, "e1", n.ID)
	assert.True(t, n.Empty())
	assert.Equal(t, []string{`Created Block "Pump"`}, h.notes.Successes())

	stored, ok := h.client.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, "Pump", stored.Name)

	_, err = h.svc.CreateNode(ctx, schema.NodeKind("Pipe"), model.AspectNone, "")
	assert.ErrorIs(t, err, schema.ErrUnknownNodeKind)

	_, err = h.svc.CreateNode(ctx, schema.Block, model.Aspect("Colour"), "")
	assert.Error(t, err)
}

func TestLoadRejectsInconsistentData(t *testing.T) {
	t1, b1 := terminal("T1"), block("B1")
	t1.TerminalOf = "B1"

	client := persistence.NewMemoryClient()
	client.Seed([]*model.Node{t1, b1}, nil)
	notes := &notify.Recorder{}
	svc := NewService(client, WithNotifier(notes))

	err := svc.Load(context.Background())
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.NotEmpty(t, verr.Violations)
	assert.Len(t, notes.Errors(), 1)

	nodes, edges := svc.Snapshot()
	assert.Empty(t, nodes)
	assert.Empty(t, edges)
}

func TestLoadPersistenceFailure(t *testing.T) {
	client := persistence.NewMemoryClient()
	client.FailNext(persistence.OpListEdges, errBoom)
	svc := NewService(client)

	err := svc.Load(context.Background())
	assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
}

func partOfPair() ([]*model.Node, []*model.Edge) {
	b1, b2 := block("B1"), block("B2")
	b1.DirectPartOf = "B2"
	b2.DirectParts = []model.Ref{{ID: "B1"}}
	return []*model.Node{b1, b2}, []*model.Edge{{ID: "p1", Kind: schema.PartOf, Source: "B1", Target: "B2"}}
}

func TestImport(t *testing.T) {
	h := newHarness(t, []*model.Node{terminal("T1")}, nil)
	nodes, edges := partOfPair()

	require.NoError(t, h.svc.Import(context.Background(), nodes, edges))
	assert.Equal(t, []string{"CreateNode(B1)", "CreateNode(B2)", "CreateEdge(p1)"}, h.calls())
	assert.Equal(t, "B2", h.node(t, "B1").DirectPartOf)
	assert.Len(t, h.svc.Store().GetAllNodes(), 3)
	assert.Equal(t, []string{"Imported 2 nodes and 1 relations"}, h.notes.Successes())
	h.requireConsistent(t)
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("violations reject everything", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		nodes, _ := partOfPair()

		err := h.svc.Import(ctx, nodes, nil)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), "err = %v", err)
		assert.NotEmpty(t, verr.Messages())
		assert.Empty(t, h.calls())
		assert.Empty(t, h.svc.Store().GetAllNodes())
		assert.Len(t, h.notes.Errors(), 1)
	})

	t.Run("persistence failure removes created entries", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		nodes, edges := partOfPair()
		h.client.FailNext(persistence.OpCreateEdge, errBoom)

		err := h.svc.Import(ctx, nodes, edges)
		assert.ErrorIs(t, err, relations.ErrPersistenceFailure)
		assert.Equal(t, []string{
			"CreateNode(B1)", "CreateNode(B2)", "CreateEdge(p1)",
			"DeleteNode(B2)", "DeleteNode(B1)",
		}, h.calls())
		assert.Empty(t, h.svc.Store().GetAllNodes())
		_, ok := h.client.Node("B1")
		assert.False(t, ok)
	})
}
