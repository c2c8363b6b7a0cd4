package constraints

import (
	"testing"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// TestCardinalityConstraint_SingleEdge tests that one edge per scalar field is valid
func TestCardinalityConstraint_SingleEdge(t *testing.T) {
	nodes, edges := setupTestGraph(t)

	violations, err := (&CardinalityConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %v", violations)
	}
}

// TestCardinalityConstraint_TwoOwners tests a terminal attached to two blocks
func TestCardinalityConstraint_TwoOwners(t *testing.T) {
	nodes, edges := setupTestGraph(t)
	nodeByID(nodes, "B2").Terminals = []model.Ref{{ID: "T1"}}
	edges = append(edges, &model.Edge{ID: "e4", Kind: schema.Connected, Source: "T1", Target: "B2"})

	violations, err := (&CardinalityConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d: %v", len(violations), violations)
	}

	v := violations[0]
	if v.Type != CardinalityViolation {
		t.Errorf("Expected CardinalityViolation, got %s", v.Type)
	}
	if v.NodeID != "T1" || v.Field != schema.TerminalOf {
		t.Errorf("Expected T1.terminalOf, got %s.%s", v.NodeID, v.Field)
	}
	if v.Details["count"] != 2 {
		t.Errorf("Expected count 2, got %v", v.Details["count"])
	}
}

// TestCardinalityConstraint_InverseScalar tests two transfers into one terminal
func TestCardinalityConstraint_InverseScalar(t *testing.T) {
	t1 := model.NewNode("T1", schema.Terminal, model.AspectNone, "")
	t2 := model.NewNode("T2", schema.Terminal, model.AspectNone, "")
	t3 := model.NewNode("T3", schema.Terminal, model.AspectNone, "")
	edges := []*model.Edge{
		{ID: "x1", Kind: schema.Transfer, Source: "T1", Target: "T3"},
		{ID: "x2", Kind: schema.Transfer, Source: "T2", Target: "T3"},
	}

	violations, err := (&CardinalityConstraint{}).Validate(NewSnapshot([]*model.Node{t1, t2, t3}, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d: %v", len(violations), violations)
	}
	if violations[0].NodeID != "T3" || violations[0].Field != schema.TransferedBy {
		t.Errorf("Expected T3.transferedBy, got %s.%s", violations[0].NodeID, violations[0].Field)
	}
}

// TestCardinalityConstraint_SetFields tests that set fields are never limited
func TestCardinalityConstraint_SetFields(t *testing.T) {
	b1 := model.NewNode("B1", schema.Block, model.AspectNone, "")
	var nodes []*model.Node
	var edges []*model.Edge
	nodes = append(nodes, b1)
	for _, id := range []string{"C1", "C2", "C3"} {
		nodes = append(nodes, model.NewNode(id, schema.Connector, model.AspectNone, ""))
		edges = append(edges, &model.Edge{ID: "e" + id, Kind: schema.Connected, Source: "B1", Target: id})
	}

	violations, err := (&CardinalityConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %v", violations)
	}
}

// TestCardinalityConstraint_EmptyGraph tests validation on empty graph
func TestCardinalityConstraint_EmptyGraph(t *testing.T) {
	violations, err := (&CardinalityConstraint{}).Validate(NewSnapshot(nil, nil))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations on empty graph, got %d", len(violations))
	}
}
