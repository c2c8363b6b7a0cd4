package constraints

import (
	"fmt"
)

// KindConstraint validates the categorical properties of nodes and edges: node
// kinds, aspects and edge kinds.
type KindConstraint struct{}

// Name returns the constraint name
func (kc *KindConstraint) Name() string {
	return "KindConstraint"
}

// Validate checks every node and edge of the graph.
func (kc *KindConstraint) Validate(graph GraphReader) ([]Violation, error) {
	violations := make([]Violation, 0)

	for _, n := range graph.GetAllNodes() {
		if !n.Kind.Valid() {
			violations = append(violations, Violation{
				Type:       UnknownKind,
				Severity:   Error,
				NodeID:     n.ID,
				Constraint: kc.Name(),
				Message:    fmt.Sprintf("Node %s has unknown kind %q", n.ID, string(n.Kind)),
			})
		}
		if !n.Aspect.Valid() {
			violations = append(violations, Violation{
				Type:       UnknownKind,
				Severity:   Warning,
				NodeID:     n.ID,
				Constraint: kc.Name(),
				Message:    fmt.Sprintf("Node %s has unknown aspect %q", n.ID, string(n.Aspect)),
			})
		}
	}

	for _, e := range graph.GetAllEdges() {
		if !e.Kind.Valid() {
			violations = append(violations, Violation{
				Type:       UnknownKind,
				Severity:   Error,
				EdgeID:     e.ID,
				Constraint: kc.Name(),
				Message:    fmt.Sprintf("Edge %s has unknown kind %q", e.ID, string(e.Kind)),
			})
		}
	}

	return violations, nil
}
