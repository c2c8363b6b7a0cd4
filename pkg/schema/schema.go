package schema

import (
	"fmt"
	"slices"
)

// FieldSpec names a relation field together with its cardinality.
type FieldSpec struct {
	Field       Field
	Cardinality Cardinality
}

func fieldSpec(f Field) FieldSpec {
	return FieldSpec{Field: f, Cardinality: f.Cardinality()}
}

// Binding is one allowed endpoint pairing of an edge kind. Forward is written on
// the source node and holds the target id; Inverse is written on the target node
// and holds the source id.
type Binding struct {
	Kind    EdgeKind
	Source  []NodeKind
	Target  []NodeKind
	Forward FieldSpec
	Inverse FieldSpec
}

// Matches reports whether the binding accepts the given endpoint kinds.
func (b Binding) Matches(source, target NodeKind) bool {
	return containsKind(b.Source, source) && containsKind(b.Target, target)
}

func (b Binding) clone() Binding {
	b.Source = slices.Clone(b.Source)
	b.Target = slices.Clone(b.Target)
	return b
}

// Descriptor describes an edge kind: every endpoint pairing it allows and the
// relation fields each pairing maintains.
type Descriptor struct {
	Kind     EdgeKind
	Label    string // human label used in messages and exports, e.g. "is part of"
	Bindings []Binding
}

// Fields returns the distinct relation fields the edge kind can touch.
func (d Descriptor) Fields() []Field {
	seen := make(map[Field]bool)
	out := make([]Field, 0, 2*len(d.Bindings))
	for _, b := range d.Bindings {
		for _, f := range []Field{b.Forward.Field, b.Inverse.Field} {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

var catalogue = map[EdgeKind]Descriptor{
	PartOf: {
		Kind:  PartOf,
		Label: "is part of",
		Bindings: []Binding{
			{Source: []NodeKind{Block}, Target: []NodeKind{Block}, Forward: fieldSpec(DirectPartOf), Inverse: fieldSpec(DirectParts)},
		},
	},
	Connected: {
		Kind:  Connected,
		Label: "is connected to",
		Bindings: []Binding{
			{Source: []NodeKind{Terminal}, Target: []NodeKind{Block}, Forward: fieldSpec(TerminalOf), Inverse: fieldSpec(Terminals)},
			{Source: []NodeKind{Block}, Target: []NodeKind{Terminal}, Forward: fieldSpec(Terminals), Inverse: fieldSpec(TerminalOf)},
			{Source: []NodeKind{Block, Terminal}, Target: []NodeKind{Connector}, Forward: fieldSpec(ConnectedTo), Inverse: fieldSpec(ConnectedBy)},
			{Source: []NodeKind{Connector}, Target: []NodeKind{Block, Terminal}, Forward: fieldSpec(ConnectedTo), Inverse: fieldSpec(ConnectedBy)},
		},
	},
	Fulfilled: {
		Kind:  Fulfilled,
		Label: "is fulfilled by",
		Bindings: []Binding{
			{Source: []NodeKind{Block}, Target: []NodeKind{Block}, Forward: fieldSpec(FulfilledBy), Inverse: fieldSpec(Fulfills)},
		},
	},
	Transfer: {
		Kind:  Transfer,
		Label: "transfers to",
		Bindings: []Binding{
			{Source: []NodeKind{Terminal}, Target: []NodeKind{Terminal}, Forward: fieldSpec(TransfersTo), Inverse: fieldSpec(TransferedBy)},
		},
	},
	Specialisation: {
		Kind:  Specialisation,
		Label: "is a specialisation of",
		Bindings: []Binding{
			{Source: []NodeKind{Block}, Target: []NodeKind{Block}, Forward: fieldSpec(SpecialisationOf), Inverse: fieldSpec(Specialisations)},
		},
	},
	Proxy: {
		Kind:  Proxy,
		Label: "is a proxy of",
		Bindings: []Binding{
			{Source: []NodeKind{Block}, Target: []NodeKind{Block}, Forward: fieldSpec(ProxyOf), Inverse: fieldSpec(Proxies)},
		},
	},
	Projection: {
		Kind:  Projection,
		Label: "projects to",
		Bindings: []Binding{
			{Source: []NodeKind{Block}, Target: []NodeKind{Block}, Forward: fieldSpec(ProjectsTo), Inverse: fieldSpec(ProjectedBy)},
		},
	},
}

func init() {
	for kind, d := range catalogue {
		for i := range d.Bindings {
			d.Bindings[i].Kind = kind
		}
	}
}

// Describe returns the descriptor for an edge kind.
func Describe(kind EdgeKind) (Descriptor, error) {
	d, ok := catalogue[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownEdgeKind, string(kind))
	}
	out := d
	out.Bindings = make([]Binding, len(d.Bindings))
	for i, b := range d.Bindings {
		out.Bindings[i] = b.clone()
	}
	return out, nil
}

// Lookup returns the binding an edge of the given kind uses between nodes of the
// given kinds.
func Lookup(kind EdgeKind, source, target NodeKind) (Binding, error) {
	d, ok := catalogue[kind]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownEdgeKind, string(kind))
	}
	for _, b := range d.Bindings {
		if b.Matches(source, target) {
			return b.clone(), nil
		}
	}
	return Binding{}, fmt.Errorf("%w: %s from %s to %s", ErrSchemaMismatch, kind, source, target)
}

// Allowed returns the edge kinds the schema permits from source to target, in
// catalogue order.
func Allowed(source, target NodeKind) []EdgeKind {
	out := make([]EdgeKind, 0, 2)
	for _, kind := range edgeKinds {
		for _, b := range catalogue[kind].Bindings {
			if b.Matches(source, target) {
				out = append(out, kind)
				break
			}
		}
	}
	return out
}

// IsAllowed reports whether the (source, target, kind) triple is in the schema.
func IsAllowed(kind EdgeKind, source, target NodeKind) bool {
	_, err := Lookup(kind, source, target)
	return err == nil
}

// Owners returns the bindings that write the given field, together with the side
// of the binding that owns it.
func Owners(f Field) []FieldOwner {
	var out []FieldOwner
	for _, kind := range edgeKinds {
		for _, b := range catalogue[kind].Bindings {
			if b.Forward.Field == f {
				out = append(out, FieldOwner{Binding: b.clone(), Forward: true})
			}
			if b.Inverse.Field == f {
				out = append(out, FieldOwner{Binding: b.clone(), Forward: false})
			}
		}
	}
	return out
}

// FieldOwner pairs a binding with the side (forward on the source node, or inverse
// on the target node) that writes a field.
type FieldOwner struct {
	Binding Binding
	Forward bool
}

func containsKind(kinds []NodeKind, k NodeKind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
