package model

import (
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Ref is one entry of a set-reference relation field.
type Ref struct {
	ID string `json:"id"`
}

// Relations holds the denormalized relation fields of a node. Scalar fields hold
// zero or one node id ("" means empty); set fields hold an ordered, duplicate-free
// list of references.
//
// Fields are addressed through schema.Field so callers never reach for a field by
// an ad hoc string key.
type Relations struct {
	TerminalOf       string `json:"terminalOf,omitempty"`
	Terminals        []Ref  `json:"terminals,omitempty"`
	DirectPartOf     string `json:"directPartOf,omitempty"`
	DirectParts      []Ref  `json:"directParts,omitempty"`
	ConnectedTo      []Ref  `json:"connectedTo,omitempty"`
	ConnectedBy      []Ref  `json:"connectedBy,omitempty"`
	FulfilledBy      []Ref  `json:"fulfilledBy,omitempty"`
	Fulfills         []Ref  `json:"fulfills,omitempty"`
	TransfersTo      string `json:"transfersTo,omitempty"`
	TransferedBy     string `json:"transferedBy,omitempty"`
	SpecialisationOf string `json:"specialisationOf,omitempty"`
	Specialisations  []Ref  `json:"specialisations,omitempty"`
	ProxyOf          string `json:"proxyOf,omitempty"`
	Proxies          []Ref  `json:"proxies,omitempty"`
	ProjectsTo       []Ref  `json:"projectsTo,omitempty"`
	ProjectedBy      []Ref  `json:"projectedBy,omitempty"`
}

func (r *Relations) scalar(f schema.Field) *string {
	switch f {
	case schema.TerminalOf:
		return &r.TerminalOf
	case schema.DirectPartOf:
		return &r.DirectPartOf
	case schema.TransfersTo:
		return &r.TransfersTo
	case schema.TransferedBy:
		return &r.TransferedBy
	case schema.SpecialisationOf:
		return &r.SpecialisationOf
	case schema.ProxyOf:
		return &r.ProxyOf
	default:
		return nil
	}
}

func (r *Relations) set(f schema.Field) *[]Ref {
	switch f {
	case schema.Terminals:
		return &r.Terminals
	case schema.DirectParts:
		return &r.DirectParts
	case schema.ConnectedTo:
		return &r.ConnectedTo
	case schema.ConnectedBy:
		return &r.ConnectedBy
	case schema.FulfilledBy:
		return &r.FulfilledBy
	case schema.Fulfills:
		return &r.Fulfills
	case schema.Specialisations:
		return &r.Specialisations
	case schema.Proxies:
		return &r.Proxies
	case schema.ProjectsTo:
		return &r.ProjectsTo
	case schema.ProjectedBy:
		return &r.ProjectedBy
	default:
		return nil
	}
}

// Get returns the ids held by a field. A scalar field yields zero or one id.
func (r *Relations) Get(f schema.Field) []string {
	if p := r.scalar(f); p != nil {
		if *p == "" {
			return nil
		}
		return []string{*p}
	}
	if p := r.set(f); p != nil {
		ids := make([]string, len(*p))
		for i, ref := range *p {
			ids[i] = ref.ID
		}
		return ids
	}
	return nil
}

// Scalar returns the id held by a scalar field, or "" when it is empty or f is not
// a scalar field.
func (r *Relations) Scalar(f schema.Field) string {
	if p := r.scalar(f); p != nil {
		return *p
	}
	return ""
}

// Contains reports whether a field holds id.
func (r *Relations) Contains(f schema.Field, id string) bool {
	if p := r.scalar(f); p != nil {
		return id != "" && *p == id
	}
	if p := r.set(f); p != nil {
		for _, ref := range *p {
			if ref.ID == id {
				return true
			}
		}
	}
	return false
}

// Len returns how many ids a field holds.
func (r *Relations) Len(f schema.Field) int {
	return len(r.Get(f))
}

// Empty reports whether no relation field holds any id.
func (r *Relations) Empty() bool {
	for _, f := range schema.Fields() {
		if r.Len(f) > 0 {
			return false
		}
	}
	return true
}

// Put writes id into a field. Scalar fields are overwritten; set fields append id
// unless already present. It reports whether the field changed. Cardinality
// policy belongs to the caller.
func (r *Relations) Put(f schema.Field, id string) bool {
	if p := r.scalar(f); p != nil {
		if *p == id {
			return false
		}
		*p = id
		return true
	}
	if p := r.set(f); p != nil {
		for _, ref := range *p {
			if ref.ID == id {
				return false
			}
		}
		*p = append(*p, Ref{ID: id})
		return true
	}
	return false
}

// Remove deletes id from a field. A scalar field is cleared only when it holds
// exactly id. It reports whether the field changed.
func (r *Relations) Remove(f schema.Field, id string) bool {
	if p := r.scalar(f); p != nil {
		if *p != id || id == "" {
			return false
		}
		*p = ""
		return true
	}
	if p := r.set(f); p != nil {
		for i, ref := range *p {
			if ref.ID == id {
				out := make([]Ref, 0, len(*p)-1)
				out = append(out, (*p)[:i]...)
				out = append(out, (*p)[i+1:]...)
				if len(out) == 0 {
					out = nil
				}
				*p = out
				return true
			}
		}
	}
	return false
}

// Assign replaces the whole content of a field with ids. For scalar fields only
// the first id is kept.
func (r *Relations) Assign(f schema.Field, ids []string) {
	if p := r.scalar(f); p != nil {
		*p = ""
		if len(ids) > 0 {
			*p = ids[0]
		}
		return
	}
	if p := r.set(f); p != nil {
		if len(ids) == 0 {
			*p = nil
			return
		}
		refs := make([]Ref, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, Ref{ID: id})
		}
		*p = refs
	}
}

// Clone returns a deep copy.
func (r Relations) Clone() Relations {
	out := r
	for _, f := range schema.Fields() {
		if p := r.set(f); p != nil && *p != nil {
			cp := make([]Ref, len(*p))
			copy(cp, *p)
			*out.set(f) = cp
		}
	}
	return out
}

// Partners returns every (field, id) pair held by the relations, in field order.
func (r *Relations) Partners() []FieldRef {
	var out []FieldRef
	for _, f := range schema.Fields() {
		for _, id := range r.Get(f) {
			out = append(out, FieldRef{Field: f, ID: id})
		}
	}
	return out
}

// FieldRef is one id held by one relation field.
type FieldRef struct {
	Field schema.Field
	ID    string
}
