package relations

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// fixture builds named nodes whose names equal their ids.
type fixture map[string]*model.Node

func newFixture(nodes ...*model.Node) fixture {
	f := make(fixture, len(nodes))
	for _, n := range nodes {
		f[n.ID] = n
	}
	return f
}

func (f fixture) label(id string) string {
	if n, ok := f[id]; ok {
		return n.Label()
	}
	return id
}

func block(id string) *model.Node {
	return model.NewNode(id, schema.Block, model.AspectFunction, id)
}

func terminal(id string) *model.Node {
	return model.NewNode(id, schema.Terminal, model.AspectNone, id)
}

func connector(id string) *model.Node {
	return model.NewNode(id, schema.Connector, model.AspectNone, id)
}

func TestResolveTerminalToBlockIsLocked(t *testing.T) {
	t1, b1 := terminal("T1"), block("B1")
	r := NewResolver()

	res := r.Resolve(t1, b1, ConnectionContext{SourceHandle: HandleTerminal, TargetHandle: HandleBlock})
	if res.Outcome != Resolved {
		t.Fatalf("Outcome = %s, want Resolved (err: %v)", res.Outcome, res.Err)
	}
	if res.Kind != schema.Connected {
		t.Errorf("Kind = %s, want Connected", res.Kind)
	}
	if !res.LockConnection {
		t.Error("structurally inferred connection should be locked")
	}
}

func TestResolveOccupiedTerminal(t *testing.T) {
	t1, b1, b2 := terminal("T1"), block("B1"), block("B2")
	t1.Put(schema.TerminalOf, b1.ID)
	b1.Put(schema.Terminals, t1.ID)
	f := newFixture(t1, b1, b2)

	before := t1.Clone()
	res := NewResolver(WithLabeler(f.label)).Resolve(t1, b2, ConnectionContext{})

	if res.Outcome != Rejected {
		t.Fatalf("Outcome = %s, want Rejected", res.Outcome)
	}
	if !errors.Is(res.Err, ErrCardinalityViolation) {
		t.Fatalf("err = %v, want ErrCardinalityViolation", res.Err)
	}
	want := `Terminal "T1" is already a terminal of Block "B1"`
	if got := UserMessage(res.Err); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if diff := cmp.Diff(before, t1); diff != "" {
		t.Errorf("resolver mutated its input (-want +got):\n%s", diff)
	}
}

func TestResolveOutcomes(t *testing.T) {
	occupied := block("A")
	occupied.Put(schema.DirectPartOf, "X")
	occupied.Put(schema.SpecialisationOf, "Y")
	occupied.Put(schema.ProxyOf, "Z")

	transferred := terminal("T2")
	transferred.Put(schema.TransferedBy, "T9")

	tests := []struct {
		name       string
		source     *model.Node
		target     *model.Node
		cc         ConnectionContext
		outcome    Outcome
		kind       schema.EdgeKind
		lock       bool
		candidates []schema.EdgeKind
		err        error
	}{
		{
			name:    "self loop",
			source:  block("A"),
			target:  block("A"),
			outcome: Rejected,
			err:     ErrSelfLoop,
		},
		{
			name:    "connector to connector",
			source:  connector("C1"),
			target:  connector("C2"),
			outcome: Rejected,
			err:     ErrSchemaMismatch,
		},
		{
			name:    "terminal to terminal",
			source:  terminal("T1"),
			target:  terminal("T2"),
			outcome: Resolved,
			kind:    schema.Transfer,
			lock:    true,
		},
		{
			name:    "terminal to occupied terminal",
			source:  terminal("T1"),
			target:  transferred,
			outcome: Rejected,
			err:     ErrCardinalityViolation,
		},
		{
			name:    "block to connector",
			source:  block("B"),
			target:  connector("C"),
			outcome: Resolved,
			kind:    schema.Connected,
			lock:    true,
		},
		{
			name:    "connector to terminal",
			source:  connector("C"),
			target:  terminal("T"),
			outcome: Resolved,
			kind:    schema.Connected,
			lock:    true,
		},
		{
			name:    "block to block prompts",
			source:  block("A"),
			target:  block("B"),
			outcome: Ambiguous,
			candidates: []schema.EdgeKind{
				schema.PartOf, schema.Fulfilled, schema.Specialisation, schema.Proxy, schema.Projection,
			},
		},
		{
			name:       "occupied block narrows candidates",
			source:     occupied,
			target:     block("B"),
			outcome:    Ambiguous,
			candidates: []schema.EdgeKind{schema.Fulfilled, schema.Projection},
		},
		{
			name:    "handle selects kind",
			source:  block("A"),
			target:  block("B"),
			cc:      ConnectionContext{SourceHandle: "partOf"},
			outcome: Resolved,
			kind:    schema.PartOf,
		},
		{
			name:    "target handle selects kind",
			source:  block("A"),
			target:  block("B"),
			cc:      ConnectionContext{SourceHandle: HandleBlock, TargetHandle: "Fulfilled"},
			outcome: Resolved,
			kind:    schema.Fulfilled,
		},
		{
			name:    "handle kind outside schema",
			source:  block("A"),
			target:  block("B"),
			cc:      ConnectionContext{SourceHandle: "transfer"},
			outcome: Rejected,
			err:     ErrSchemaMismatch,
		},
		{
			name:    "handle kind on occupied field",
			source:  occupied,
			target:  block("B"),
			cc:      ConnectionContext{SourceHandle: "proxy"},
			outcome: Rejected,
			err:     ErrCardinalityViolation,
		},
		{
			name:    "handle naming the only kind stays locked",
			source:  terminal("T1"),
			target:  block("B1"),
			cc:      ConnectionContext{SourceHandle: "connected"},
			outcome: Resolved,
			kind:    schema.Connected,
			lock:    true,
		},
		{
			name:    "target handle naming the only kind stays locked",
			source:  terminal("T1"),
			target:  block("B1"),
			cc:      ConnectionContext{TargetHandle: "Connected"},
			outcome: Resolved,
			kind:    schema.Connected,
			lock:    true,
		},
		{
			name:    "transfer handle between terminals stays locked",
			source:  terminal("T1"),
			target:  terminal("T2"),
			cc:      ConnectionContext{SourceHandle: "transfer"},
			outcome: Resolved,
			kind:    schema.Transfer,
			lock:    true,
		},
	}

	r := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.source, tt.target, tt.cc)
			if res.Outcome != tt.outcome {
				t.Fatalf("Outcome = %s, want %s (err: %v)", res.Outcome, tt.outcome, res.Err)
			}
			if tt.err != nil && !errors.Is(res.Err, tt.err) {
				t.Errorf("err = %v, want %v", res.Err, tt.err)
			}
			if res.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", res.Kind, tt.kind)
			}
			if res.LockConnection != tt.lock {
				t.Errorf("LockConnection = %v, want %v", res.LockConnection, tt.lock)
			}
			if diff := cmp.Diff(tt.candidates, res.Candidates); tt.outcome == Ambiguous && diff != "" {
				t.Errorf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	a, b := block("A"), block("B")
	a.Put(schema.ProxyOf, "Z")
	r := NewResolver()

	first := r.Resolve(a, b, ConnectionContext{})
	for i := 0; i < 10; i++ {
		again := r.Resolve(a, b, ConnectionContext{})
		if diff := cmp.Diff(first.Candidates, again.Candidates); diff != "" || again.Outcome != first.Outcome {
			t.Fatalf("resolution changed between identical calls:\n%s", diff)
		}
	}
}

func TestHandleRoleEdgeKind(t *testing.T) {
	tests := []struct {
		role HandleRole
		kind schema.EdgeKind
		ok   bool
	}{
		{HandleGeneric, "", false},
		{HandleTerminal, "", false},
		{HandleBlock, "", false},
		{HandleConnector, "", false},
		{"partOf", schema.PartOf, true},
		{"specialisation", schema.Specialisation, true},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		kind, ok := tt.role.EdgeKind()
		if kind != tt.kind || ok != tt.ok {
			t.Errorf("%q.EdgeKind() = (%q, %v), want (%q, %v)", tt.role, kind, ok, tt.kind, tt.ok)
		}
	}
}
