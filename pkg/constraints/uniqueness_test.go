package constraints

import (
	"testing"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// TestUniquenessConstraint_NoViolations tests a graph with distinct ids
func TestUniquenessConstraint_NoViolations(t *testing.T) {
	nodes, edges := setupTestGraph(t)

	violations, err := (&UniquenessConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %v", violations)
	}
}

// TestUniquenessConstraint_DuplicateIDs tests repeated node and edge ids
func TestUniquenessConstraint_DuplicateIDs(t *testing.T) {
	nodes, edges := setupTestGraph(t)
	nodes = append(nodes, model.NewNode("B1", schema.Block, model.AspectNone, "Copy"))
	edges = append(edges, &model.Edge{ID: "e1", Kind: schema.Fulfilled, Source: "B2", Target: "B1"})

	violations, err := (&UniquenessConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("Expected 2 violations, got %d: %v", len(violations), violations)
	}
	if violations[0].Type != DuplicateID || violations[0].NodeID != "B1" {
		t.Errorf("Expected duplicate node B1, got %+v", violations[0])
	}
	if violations[1].Type != DuplicateID || violations[1].EdgeID != "e1" {
		t.Errorf("Expected duplicate edge e1, got %+v", violations[1])
	}
}

// TestUniquenessConstraint_DuplicateEdge tests two edges of one kind between the same nodes
func TestUniquenessConstraint_DuplicateEdge(t *testing.T) {
	nodes, edges := setupTestGraph(t)
	edges = append(edges, &model.Edge{ID: "e4", Kind: schema.PartOf, Source: "B1", Target: "B2"})

	violations, err := (&UniquenessConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d: %v", len(violations), violations)
	}
	if violations[0].Type != DuplicateEdge || violations[0].Details["duplicate_of"] != "e3" {
		t.Errorf("Expected e4 to duplicate e3, got %+v", violations[0])
	}
}

// TestUniquenessConstraint_DifferentKinds tests that different kinds between the same nodes are allowed
func TestUniquenessConstraint_DifferentKinds(t *testing.T) {
	nodes, edges := setupTestGraph(t)
	edges = append(edges, &model.Edge{ID: "e4", Kind: schema.Fulfilled, Source: "B1", Target: "B2"})

	violations, err := (&UniquenessConstraint{}).Validate(NewSnapshot(nodes, edges))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("Expected no violations, got %v", violations)
	}
}

// TestUniquenessConstraint_Name tests the constraint name
func TestUniquenessConstraint_Name(t *testing.T) {
	if name := (&UniquenessConstraint{}).Name(); name != "UniquenessConstraint" {
		t.Errorf("Name() = %q", name)
	}
}
