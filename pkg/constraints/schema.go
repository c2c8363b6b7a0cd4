package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// SchemaConstraint checks that every edge joins existing nodes and that its
// (source kind, target kind, edge kind) triple is allowed by the schema.
type SchemaConstraint struct{}

// Name returns the constraint name
func (sc *SchemaConstraint) Name() string {
	return "SchemaConstraint"
}

// Validate checks each edge's endpoints and kind triple.
func (sc *SchemaConstraint) Validate(graph GraphReader) ([]Violation, error) {
	violations := make([]Violation, 0)

	for _, e := range graph.GetAllEdges() {
		source, sourceOK := graph.GetNode(e.Source)
		target, targetOK := graph.GetNode(e.Target)

		for _, missing := range []struct {
			id string
			ok bool
		}{{e.Source, sourceOK}, {e.Target, targetOK}} {
			if missing.ok {
				continue
			}
			violations = append(violations, Violation{
				Type:       DanglingReference,
				Severity:   Error,
				NodeID:     missing.id,
				EdgeID:     e.ID,
				Constraint: sc.Name(),
				Message:    fmt.Sprintf("Edge %s (%s) references missing node %s", e.ID, e.Kind, missing.id),
				Details: map[string]any{
					"kind":   string(e.Kind),
					"source": e.Source,
					"target": e.Target,
				},
			})
		}
		if !sourceOK || !targetOK || !e.Kind.Valid() {
			continue
		}

		if e.Source == e.Target {
			violations = append(violations, Violation{
				Type:       SchemaMismatch,
				Severity:   Error,
				NodeID:     e.Source,
				EdgeID:     e.ID,
				Constraint: sc.Name(),
				Message:    fmt.Sprintf("Edge %s (%s) connects %s to itself", e.ID, e.Kind, source.Label()),
			})
			continue
		}

		if !schema.IsAllowed(e.Kind, source.Kind, target.Kind) {
			violations = append(violations, Violation{
				Type:       SchemaMismatch,
				Severity:   Error,
				NodeID:     e.Source,
				EdgeID:     e.ID,
				Constraint: sc.Name(),
				Message: fmt.Sprintf("Edge %s: %s cannot be related to %s by %s",
					e.ID, source.Label(), target.Label(), e.Kind),
				Details: map[string]any{
					"kind":        string(e.Kind),
					"source_kind": string(source.Kind),
					"target_kind": string(target.Kind),
				},
			})
		}
	}

	return violations, nil
}

// edgeBinding returns the endpoints of an edge and the binding it uses, or false
// when the edge is dangling or outside the schema.
func edgeBinding(graph GraphReader, e *model.Edge) (schema.Binding, *model.Node, *model.Node, bool) {
	source, ok := graph.GetNode(e.Source)
	if !ok {
		return schema.Binding{}, nil, nil, false
	}
	target, ok := graph.GetNode(e.Target)
	if !ok || e.Source == e.Target {
		return schema.Binding{}, nil, nil, false
	}
	b, err := schema.Lookup(e.Kind, source.Kind, target.Kind)
	if err != nil {
		return schema.Binding{}, nil, nil, false
	}
	return b, source, target, true
}

// ownerMatch is a binding that lets a node hold a partner in a field, and whether
// the field is the binding's forward side.
type ownerMatch struct {
	binding schema.Binding
	forward bool
}

// matchingOwners returns every binding that lets node hold partner in field f.
func matchingOwners(f schema.Field, node, partner *model.Node) []ownerMatch {
	var out []ownerMatch
	for _, o := range schema.Owners(f) {
		if o.Forward && o.Binding.Matches(node.Kind, partner.Kind) {
			out = append(out, ownerMatch{binding: o.Binding, forward: true})
		}
		if !o.Forward && o.Binding.Matches(partner.Kind, node.Kind) {
			out = append(out, ownerMatch{binding: o.Binding, forward: false})
		}
	}
	return out
}

// fieldOwner returns the first binding that lets node hold partner in field f.
func fieldOwner(f schema.Field, node, partner *model.Node) (schema.Binding, bool, bool) {
	owners := matchingOwners(f, node, partner)
	if len(owners) == 0 {
		return schema.Binding{}, false, false
	}
	return owners[0].binding, owners[0].forward, true
}
