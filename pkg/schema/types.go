package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeKind is the structural role of a graph vertex.
type NodeKind string

const (
	Block     NodeKind = "Block"
	Connector NodeKind = "Connector"
	Terminal  NodeKind = "Terminal"
)

var nodeKinds = []NodeKind{Block, Connector, Terminal}

// NodeKinds returns every node kind in catalogue order.
func NodeKinds() []NodeKind {
	out := make([]NodeKind, len(nodeKinds))
	copy(out, nodeKinds)
	return out
}

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	for _, known := range nodeKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k NodeKind) String() string { return string(k) }

// ParseNodeKind converts a name to a NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNodeKind, s)
	}
	return k, nil
}

// UnmarshalJSON rejects unknown node kinds.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// EdgeKind is the semantic type of a relation between two nodes.
type EdgeKind string

const (
	PartOf         EdgeKind = "PartOf"
	Connected      EdgeKind = "Connected"
	Fulfilled      EdgeKind = "Fulfilled"
	Transfer       EdgeKind = "Transfer"
	Specialisation EdgeKind = "Specialisation"
	Proxy          EdgeKind = "Proxy"
	Projection     EdgeKind = "Projection"
)

var edgeKinds = []EdgeKind{PartOf, Connected, Fulfilled, Transfer, Specialisation, Proxy, Projection}

// EdgeKinds returns every edge kind in catalogue order.
func EdgeKinds() []EdgeKind {
	out := make([]EdgeKind, len(edgeKinds))
	copy(out, edgeKinds)
	return out
}

// Valid reports whether k is a known edge kind.
func (k EdgeKind) Valid() bool {
	_, ok := catalogue[k]
	return ok
}

func (k EdgeKind) String() string { return string(k) }

// ParseEdgeKind converts a name to an EdgeKind. Matching is exact first and then
// case-insensitive, so "partOf" and "PartOf" both resolve.
func ParseEdgeKind(s string) (EdgeKind, error) {
	if k := EdgeKind(s); k.Valid() {
		return k, nil
	}
	for _, k := range edgeKinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEdgeKind, s)
}

// UnmarshalJSON rejects unknown edge kinds.
func (k *EdgeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEdgeKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Cardinality says how many partner ids a relation field may hold.
type Cardinality int

const (
	One  Cardinality = iota // scalar reference
	Many                    // set reference
)

func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Field names a denormalized relation attribute on a node.
type Field string

const (
	TerminalOf       Field = "terminalOf"
	Terminals        Field = "terminals"
	DirectPartOf     Field = "directPartOf"
	DirectParts      Field = "directParts"
	ConnectedTo      Field = "connectedTo"
	ConnectedBy      Field = "connectedBy"
	FulfilledBy      Field = "fulfilledBy"
	Fulfills         Field = "fulfills"
	TransfersTo      Field = "transfersTo"
	TransferedBy     Field = "transferedBy"
	SpecialisationOf Field = "specialisationOf"
	Specialisations  Field = "specialisations"
	ProxyOf          Field = "proxyOf"
	Proxies          Field = "proxies"
	ProjectsTo       Field = "projectsTo"
	ProjectedBy      Field = "projectedBy"
)

var fieldCardinality = map[Field]Cardinality{
	TerminalOf:       One,
	Terminals:        Many,
	DirectPartOf:     One,
	DirectParts:      Many,
	ConnectedTo:      Many,
	ConnectedBy:      Many,
	FulfilledBy:      Many,
	Fulfills:         Many,
	TransfersTo:      One,
	TransferedBy:     One,
	SpecialisationOf: One,
	Specialisations:  Many,
	ProxyOf:          One,
	Proxies:          Many,
	ProjectsTo:       Many,
	ProjectedBy:      Many,
}

var fieldOrder = []Field{
	TerminalOf, Terminals,
	DirectPartOf, DirectParts,
	ConnectedTo, ConnectedBy,
	FulfilledBy, Fulfills,
	TransfersTo, TransferedBy,
	SpecialisationOf, Specialisations,
	ProxyOf, Proxies,
	ProjectsTo, ProjectedBy,
}

// Fields returns every relation field in a stable order.
func Fields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// Valid reports whether f is a known relation field.
func (f Field) Valid() bool {
	_, ok := fieldCardinality[f]
	return ok
}

func (f Field) String() string { return string(f) }

// Cardinality returns the cardinality of f. Unknown fields report Many.
func (f Field) Cardinality() Cardinality {
	if c, ok := fieldCardinality[f]; ok {
		return c
	}
	return Many
}

// Scalar reports whether f holds at most one id.
func (f Field) Scalar() bool {
	return f.Cardinality() == One
}

// ParseField converts a JSON field name to a Field.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return f, nil
}

// UnmarshalJSON rejects unknown relation fields.
func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseField(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
