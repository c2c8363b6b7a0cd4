package model

import (
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Aspect is a categorical tag on a node. It is orthogonal to relations.
type Aspect string

const (
	AspectNone      Aspect = ""
	AspectFunction  Aspect = "Function"
	AspectProduct   Aspect = "Product"
	AspectLocation  Aspect = "Location"
	AspectInstalled Aspect = "Installed"
)

// Valid reports whether a is a known aspect.
func (a Aspect) Valid() bool {
	switch a {
	case AspectNone, AspectFunction, AspectProduct, AspectLocation, AspectInstalled:
		return true
	}
	return false
}

// Node is a graph vertex. Kind is fixed at creation; relation fields are populated
// only as a side effect of edge commits and cleared only by retractions.
type Node struct {
	ID     string          `json:"id"`
	Kind   schema.NodeKind `json:"kind"`
	Aspect Aspect          `json:"aspect,omitempty"`
	Name   string          `json:"name,omitempty"`
	Relations
}

// NewNode creates a node with empty relations.
func NewNode(id string, kind schema.NodeKind, aspect Aspect, name string) *Node {
	return &Node{ID: id, Kind: kind, Aspect: aspect, Name: name}
}

// Clone creates a deep copy of a node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Relations = n.Relations.Clone()
	return &clone
}

// Label returns a human-readable reference to the node, e.g. `Terminal "T1"`.
func (n *Node) Label() string {
	if n == nil {
		return "<missing node>"
	}
	name := n.Name
	if name == "" {
		name = n.ID
	}
	return fmt.Sprintf("%s %q", n.Kind, name)
}

// Edge is a typed, directed relation between two nodes.
type Edge struct {
	ID             string          `json:"id"`
	Kind           schema.EdgeKind `json:"kind"`
	Source         string          `json:"source"`
	Target         string          `json:"target"`
	LockConnection bool            `json:"lockConnection,omitempty"`
}

// Clone creates a copy of an edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// Incident reports whether the edge touches the node.
func (e *Edge) Incident(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Other returns the endpoint opposite to nodeID.
func (e *Edge) Other(nodeID string) string {
	if e.Source == nodeID {
		return e.Target
	}
	return e.Source
}

// EdgeState is the lifecycle position of an edge.
type EdgeState int

const (
	Proposed EdgeState = iota
	Committed
	Retracted
)

func (s EdgeState) String() string {
	switch s {
	case Proposed:
		return "Proposed"
	case Committed:
		return "Committed"
	case Retracted:
		return "Retracted"
	default:
		return "Unknown"
	}
}
