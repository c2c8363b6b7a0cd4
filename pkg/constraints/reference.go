package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// ReferenceConstraint checks that every relation field entry names an existing
// node and is backed by an existing edge of the matching kind and direction.
type ReferenceConstraint struct{}

// Name returns the constraint name
func (rc *ReferenceConstraint) Name() string {
	return "ReferenceConstraint"
}

// Validate checks every relation field entry of every node.
func (rc *ReferenceConstraint) Validate(graph GraphReader) ([]Violation, error) {
	violations := make([]Violation, 0)

	for _, n := range graph.GetAllNodes() {
		for _, ref := range n.Partners() {
			partner, ok := graph.GetNode(ref.ID)
			if !ok {
				violations = append(violations, Violation{
					Type:       DanglingReference,
					Severity:   Error,
					NodeID:     n.ID,
					Field:      ref.Field,
					Constraint: rc.Name(),
					Message:    fmt.Sprintf("%s references missing node %s in %s", n.Label(), ref.ID, ref.Field),
					Details: map[string]any{
						"missing_node": ref.ID,
					},
				})
				continue
			}

			owners := matchingOwners(ref.Field, n, partner)
			if len(owners) == 0 {
				// Reported by SymmetryConstraint.
				continue
			}
			if rc.backed(graph, owners, n, partner) {
				continue
			}
			b, forward := owners[0].binding, owners[0].forward
			source, target := n, partner
			if !forward {
				source, target = partner, n
			}
			violations = append(violations, Violation{
				Type:       DanglingReference,
				Severity:   Error,
				NodeID:     n.ID,
				Field:      ref.Field,
				Constraint: rc.Name(),
				Message: fmt.Sprintf("%s lists %s in %s but no %s edge from %s to %s exists",
					n.Label(), partner.Label(), ref.Field, b.Kind, source.ID, target.ID),
				Details: map[string]any{
					"missing_edge_kind": string(b.Kind),
					"source":            source.ID,
					"target":            target.ID,
				},
			})
		}
	}

	return violations, nil
}

// backed reports whether, for any owning binding, an edge of its kind runs between
// the two nodes in the direction the field implies.
func (rc *ReferenceConstraint) backed(graph GraphReader, owners []ownerMatch, n, partner *model.Node) bool {
	for _, o := range owners {
		source, target := n.ID, partner.ID
		if !o.forward {
			source, target = partner.ID, n.ID
		}
		for _, e := range graph.GetOutgoingEdges(source) {
			if e.Target == target && e.Kind == o.binding.Kind {
				return true
			}
		}
	}
	return false
}
