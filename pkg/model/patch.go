package model

import (
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Patch carries new values for a subset of a node's relation fields. Only the
// fields listed in Fields are applied; their values are read from Relations, so an
// empty value in a listed field clears it.
type Patch struct {
	Fields    []schema.Field `json:"fields"`
	Relations Relations      `json:"relations"`
}

// Empty reports whether the patch touches no field.
func (p Patch) Empty() bool {
	return len(p.Fields) == 0
}

// Touches reports whether the patch lists f.
func (p Patch) Touches(f schema.Field) bool {
	for _, candidate := range p.Fields {
		if candidate == f {
			return true
		}
	}
	return false
}

// PatchOf builds a patch holding the current value of each field of n.
func PatchOf(n *Node, fields ...schema.Field) Patch {
	p := Patch{}
	for _, f := range fields {
		if p.Touches(f) {
			continue
		}
		p.Fields = append(p.Fields, f)
		p.Relations.Assign(f, n.Get(f))
	}
	return p
}

// Apply writes the listed fields of p onto n.
func (p Patch) Apply(n *Node) {
	for _, f := range p.Fields {
		n.Assign(f, p.Relations.Get(f))
	}
}
