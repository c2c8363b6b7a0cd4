package constraints

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// CardinalityConstraint checks that no scalar relation field of a node is filled
// by more than one edge.
type CardinalityConstraint struct{}

// Name returns the constraint name
func (cc *CardinalityConstraint) Name() string {
	return "CardinalityConstraint"
}

// Validate counts, per node and scalar field, the edges that write the field.
func (cc *CardinalityConstraint) Validate(graph GraphReader) ([]Violation, error) {
	violations := make([]Violation, 0)

	for _, n := range graph.GetAllNodes() {
		filling := cc.fillingEdges(graph, n)
		for _, f := range schema.Fields() {
			edges := filling[f]
			if len(edges) < 2 {
				continue
			}
			ids := make([]string, 0, len(edges))
			for _, e := range edges {
				ids = append(ids, e.ID)
			}
			violations = append(violations, Violation{
				Type:       CardinalityViolation,
				Severity:   Error,
				NodeID:     n.ID,
				Field:      f,
				Constraint: cc.Name(),
				Message: fmt.Sprintf("%s has %d edges filling %s (%s), at most one is allowed",
					n.Label(), len(edges), f, strings.Join(ids, ", ")),
				Details: map[string]any{
					"edges": ids,
					"count": len(edges),
				},
			})
		}
	}

	return violations, nil
}

// fillingEdges groups the edges incident to n by the scalar field they write on n.
func (cc *CardinalityConstraint) fillingEdges(graph GraphReader, n *model.Node) map[schema.Field][]*model.Edge {
	out := make(map[schema.Field][]*model.Edge)

	for _, e := range graph.GetOutgoingEdges(n.ID) {
		b, _, _, ok := edgeBinding(graph, e)
		if ok && b.Forward.Cardinality == schema.One {
			out[b.Forward.Field] = append(out[b.Forward.Field], e)
		}
	}
	for _, e := range graph.GetIncomingEdges(n.ID) {
		b, _, _, ok := edgeBinding(graph, e)
		if ok && b.Inverse.Cardinality == schema.One {
			out[b.Inverse.Field] = append(out[b.Inverse.Field], e)
		}
	}

	return out
}
