package constraints

import (
	"fmt"
)

// UniquenessConstraint ensures node ids and edge ids are unique, and that at most
// one edge of a kind runs from one node to another.
type UniquenessConstraint struct{}

// Name returns a human-readable name for this constraint
func (c *UniquenessConstraint) Name() string {
	return "UniquenessConstraint"
}

// Validate reports every repeated id and every repeated (kind, source, target) edge.
func (c *UniquenessConstraint) Validate(graph GraphReader) ([]Violation, error) {
	var violations []Violation

	seenNodes := make(map[string]int)
	for _, n := range graph.GetAllNodes() {
		seenNodes[n.ID]++
		if seenNodes[n.ID] == 2 {
			violations = append(violations, Violation{
				Type:       DuplicateID,
				Severity:   Error,
				NodeID:     n.ID,
				Constraint: c.Name(),
				Message:    fmt.Sprintf("Node id %s is used more than once", n.ID),
			})
		}
	}

	seenEdges := make(map[string]int)
	for _, e := range graph.GetAllEdges() {
		seenEdges[e.ID]++
		if seenEdges[e.ID] == 2 {
			violations = append(violations, Violation{
				Type:       DuplicateID,
				Severity:   Error,
				EdgeID:     e.ID,
				Constraint: c.Name(),
				Message:    fmt.Sprintf("Edge id %s is used more than once", e.ID),
			})
		}
	}

	// Map of kind:source->target to the first edge id seen
	pairs := make(map[string]string)
	for _, e := range graph.GetAllEdges() {
		key := fmt.Sprintf("%s:%s->%s", e.Kind, e.Source, e.Target)
		first, exists := pairs[key]
		if !exists {
			pairs[key] = e.ID
			continue
		}
		if first == e.ID {
			continue
		}
		violations = append(violations, Violation{
			Type:       DuplicateEdge,
			Severity:   Error,
			EdgeID:     e.ID,
			Constraint: c.Name(),
			Message: fmt.Sprintf("Edge %s duplicates edge %s (%s from %s to %s)",
				e.ID, first, e.Kind, e.Source, e.Target),
			Details: map[string]any{
				"duplicate_of": first,
			},
		})
	}

	return violations, nil
}
