package constraints

import (
	"fmt"
)

// SymmetryConstraint checks the bidirectional consistency of relation fields: every
// forward entry has a matching inverse entry on the partner and vice versa, and
// every edge is recorded on its endpoints.
type SymmetryConstraint struct{}

// Name returns the constraint name
func (sc *SymmetryConstraint) Name() string {
	return "SymmetryConstraint"
}

// Validate checks every relation field entry against its mirror.
func (sc *SymmetryConstraint) Validate(graph GraphReader) ([]Violation, error) {
	violations := make([]Violation, 0)

	for _, n := range graph.GetAllNodes() {
		for _, ref := range n.Partners() {
			partner, ok := graph.GetNode(ref.ID)
			if !ok {
				continue
			}
			b, forward, ok := fieldOwner(ref.Field, n, partner)
			if !ok {
				violations = append(violations, Violation{
					Type:       SchemaMismatch,
					Severity:   Error,
					NodeID:     n.ID,
					Field:      ref.Field,
					Constraint: sc.Name(),
					Message: fmt.Sprintf("%s cannot hold %s in %s",
						n.Label(), partner.Label(), ref.Field),
				})
				continue
			}
			mirror := b.Forward.Field
			if forward {
				mirror = b.Inverse.Field
			}
			if partner.Contains(mirror, n.ID) {
				continue
			}
			violations = append(violations, Violation{
				Type:       AsymmetricRelation,
				Severity:   Error,
				NodeID:     n.ID,
				Field:      ref.Field,
				Constraint: sc.Name(),
				Message: fmt.Sprintf("%s lists %s in %s but %s does not list %s in %s",
					n.Label(), partner.Label(), ref.Field, partner.Label(), n.Label(), mirror),
				Details: map[string]any{
					"partner":       partner.ID,
					"missing_field": string(mirror),
				},
			})
		}
	}

	for _, e := range graph.GetAllEdges() {
		b, source, target, ok := edgeBinding(graph, e)
		if !ok {
			continue
		}
		if source.Contains(b.Forward.Field, target.ID) || target.Contains(b.Inverse.Field, source.ID) {
			continue
		}
		violations = append(violations, Violation{
			Type:       AsymmetricRelation,
			Severity:   Error,
			EdgeID:     e.ID,
			Constraint: sc.Name(),
			Message: fmt.Sprintf("Edge %s (%s) is recorded on neither %s nor %s",
				e.ID, e.Kind, source.Label(), target.Label()),
			Details: map[string]any{
				"forward_field": string(b.Forward.Field),
				"inverse_field": string(b.Inverse.Field),
			},
		})
	}

	return violations, nil
}
