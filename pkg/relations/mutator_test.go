package relations

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

func edge(id string, kind schema.EdgeKind, source, target string) *model.Edge {
	return &model.Edge{ID: id, Kind: kind, Source: source, Target: target}
}

// commit runs Commit and writes the resulting nodes back into the fixture.
func commit(t *testing.T, m *Mutator, f fixture, e *model.Edge) *Change {
	t.Helper()
	c, err := m.Commit(e, e.Kind, f[e.Source], f[e.Target])
	require.NoError(t, err)
	f[c.Source.ID] = c.Source
	f[c.Target.ID] = c.Target
	return c
}

func TestCommitConnectedTerminal(t *testing.T) {
	t1, b1 := terminal("T1"), block("B1")
	m := NewMutator()

	c, err := m.Commit(edge("e1", schema.Connected, "T1", "B1"), schema.Connected, t1, b1)
	require.NoError(t, err)

	assert.Equal(t, "B1", c.Source.TerminalOf)
	assert.Equal(t, []model.Ref{{ID: "T1"}}, c.Target.Terminals)
	assert.Equal(t, []schema.Field{schema.TerminalOf}, c.SourcePatch.Fields)
	assert.Equal(t, []schema.Field{schema.Terminals}, c.TargetPatch.Fields)

	assert.Empty(t, t1.TerminalOf, "input node must not be modified")
	assert.Empty(t, b1.Terminals, "input node must not be modified")
}

func TestCommitRejectsOccupiedScalar(t *testing.T) {
	f := newFixture(terminal("T1"), block("B1"), block("B2"))
	m := NewMutator(WithLabeler(f.label))
	commit(t, m, f, edge("e1", schema.Connected, "T1", "B1"))

	before := f["T1"].Clone()
	_, err := m.Commit(edge("e2", schema.Connected, "T1", "B2"), schema.Connected, f["T1"], f["B2"])

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCardinalityViolation))
	assert.Equal(t, `Terminal "T1" is already a terminal of Block "B1"`, UserMessage(err))
	assert.Equal(t, before, f["T1"])
	assert.Empty(t, f["B2"].Terminals)

	var relErr *Error
	require.True(t, errors.As(err, &relErr))
	assert.Equal(t, "T1", relErr.NodeID)
	assert.Equal(t, "B1", relErr.PartnerID)
	assert.Equal(t, schema.TerminalOf, relErr.Field)
}

func TestCommitSetInsertionIsIdempotent(t *testing.T) {
	f := newFixture(block("B1"), connector("C1"))
	m := NewMutator()

	commit(t, m, f, edge("e1", schema.Connected, "B1", "C1"))
	first := f["B1"].Clone()
	commit(t, m, f, edge("e2", schema.Connected, "B1", "C1"))

	if diff := cmp.Diff(first.ConnectedTo, f["B1"].ConnectedTo); diff != "" {
		t.Errorf("second insertion changed the set (-want +got):\n%s", diff)
	}
	assert.Len(t, f["C1"].ConnectedBy, 1)
}

func TestCommitValidation(t *testing.T) {
	tests := []struct {
		name   string
		kind   schema.EdgeKind
		source *model.Node
		target *model.Node
		want   error
	}{
		{"unknown kind", "Bogus", block("A"), block("B"), ErrUnknownEdgeKind},
		{"schema mismatch", schema.PartOf, terminal("A"), block("B"), ErrSchemaMismatch},
		{"self loop", schema.PartOf, block("A"), block("A"), ErrSelfLoop},
		{"missing target", schema.PartOf, block("A"), nil, ErrNodeNotFound},
	}

	m := NewMutator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targetID := "B"
			if tt.target != nil {
				targetID = tt.target.ID
			}
			_, err := m.Commit(edge("e", tt.kind, tt.source.ID, targetID), tt.kind, tt.source, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if !IsValidation(err) && !errors.Is(err, ErrNodeNotFound) {
				t.Errorf("%v should be a validation error", err)
			}
		})
	}
}

func TestCommitThenRetractPartOf(t *testing.T) {
	f := newFixture(block("A"), block("B"))
	m := NewMutator()
	e := edge("e1", schema.PartOf, "A", "B")
	commit(t, m, f, e)
	require.Equal(t, "B", f["A"].DirectPartOf)
	require.True(t, f["B"].Contains(schema.DirectParts, "A"))

	c, err := m.Retract(e, f["A"], f["B"])
	require.NoError(t, err)

	assert.Equal(t, "", c.Source.DirectPartOf)
	assert.False(t, c.Target.Contains(schema.DirectParts, "A"))
	assert.True(t, c.SourcePatch.Touches(schema.DirectPartOf))
	assert.True(t, c.TargetPatch.Touches(schema.DirectParts))
}

func TestRetractWithMissingEndpoint(t *testing.T) {
	f := newFixture(terminal("T1"), block("B1"))
	m := NewMutator()
	e := edge("e1", schema.Connected, "T1", "B1")
	commit(t, m, f, e)

	c, err := m.Retract(e, f["T1"], nil)
	require.NoError(t, err)

	assert.Nil(t, c.Target)
	assert.Empty(t, c.Source.TerminalOf)
	assert.True(t, c.SourcePatch.Touches(schema.TerminalOf))
	assert.True(t, c.TargetPatch.Empty())
	assert.Len(t, c.Nodes(), 1)
}

func TestRetractLeavesReassignedScalar(t *testing.T) {
	t1 := terminal("T1")
	t1.Put(schema.TerminalOf, "B2")
	m := NewMutator()

	c, err := m.Retract(edge("stale", schema.Connected, "T1", "B1"), t1, nil)
	require.NoError(t, err)
	assert.Equal(t, "B2", c.Source.TerminalOf)
}

func TestRetypePartOfToFulfilled(t *testing.T) {
	f := newFixture(block("A"), block("B"))
	m := NewMutator()
	e := commit(t, m, f, edge("e1", schema.PartOf, "A", "B")).Edge

	c, err := m.Retype(e, schema.Fulfilled, f["A"], f["B"])
	require.NoError(t, err)

	a, b := c.Source, c.Target
	assert.Empty(t, a.DirectPartOf)
	assert.False(t, b.Contains(schema.DirectParts, "A"))
	assert.True(t, a.Contains(schema.FulfilledBy, "B"))
	assert.True(t, b.Contains(schema.Fulfills, "A"))

	assert.Equal(t, schema.Fulfilled, c.Edge.Kind)
	assert.Equal(t, schema.PartOf, c.Previous.Kind)
	assert.ElementsMatch(t, []schema.Field{schema.DirectPartOf, schema.FulfilledBy}, c.SourcePatch.Fields)
	assert.ElementsMatch(t, []schema.Field{schema.DirectParts, schema.Fulfills}, c.TargetPatch.Fields)
}

func TestRetypeLockedEdge(t *testing.T) {
	f := newFixture(terminal("T1"), block("B1"))
	m := NewMutator()
	e := edge("e1", schema.Connected, "T1", "B1")
	e.LockConnection = true
	commit(t, m, f, e)
	before := newFixture(f["T1"].Clone(), f["B1"].Clone())

	_, err := m.Retype(e, schema.PartOf, f["T1"], f["B1"])

	assert.True(t, errors.Is(err, ErrLockedEdge), "err = %v", err)
	assert.Equal(t, before["T1"], f["T1"])
	assert.Equal(t, before["B1"], f["B1"])
}

func TestRetypeIsAtomic(t *testing.T) {
	f := newFixture(block("A"), block("B"), block("C"))
	m := NewMutator()
	e := commit(t, m, f, edge("e1", schema.PartOf, "A", "B")).Edge
	commit(t, m, f, edge("e2", schema.Specialisation, "A", "C"))
	before := newFixture(f["A"].Clone(), f["B"].Clone())

	_, err := m.Retype(e, schema.Specialisation, f["A"], f["B"])

	require.True(t, errors.Is(err, ErrCardinalityViolation), "err = %v", err)
	if diff := cmp.Diff(before["A"], f["A"]); diff != "" {
		t.Errorf("A changed after failed retype (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before["B"], f["B"]); diff != "" {
		t.Errorf("B changed after failed retype (-want +got):\n%s", diff)
	}
	assert.Equal(t, "B", f["A"].DirectPartOf)
}

func TestRetypeToSameKind(t *testing.T) {
	f := newFixture(block("A"), block("B"))
	m := NewMutator()
	e := commit(t, m, f, edge("e1", schema.PartOf, "A", "B")).Edge

	c, err := m.Retype(e, schema.PartOf, f["A"], f["B"])
	require.NoError(t, err)
	assert.Equal(t, "B", c.Source.DirectPartOf)
	assert.Equal(t, []model.Ref{{ID: "A"}}, c.Target.DirectParts)
}
