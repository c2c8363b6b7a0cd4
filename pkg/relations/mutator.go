package relations

import (
	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Op names a mutator operation.
type Op string

const (
	OpCommit  Op = "commit"
	OpRetract Op = "retract"
	OpRetype  Op = "retype"
)

// Change is the planned outcome of a mutator operation. Source and Target are
// updated copies of the endpoints (nil when the endpoint no longer exists) and the
// patches hold the new values of every field the operation touched.
type Change struct {
	Op          Op
	Edge        *model.Edge
	Previous    *model.Edge // edge before a retype
	Source      *model.Node
	Target      *model.Node
	SourcePatch model.Patch
	TargetPatch model.Patch
}

// Nodes returns the endpoints the change updates, source first.
func (c *Change) Nodes() []*model.Node {
	out := make([]*model.Node, 0, 2)
	if c.Source != nil && !c.SourcePatch.Empty() {
		out = append(out, c.Source)
	}
	if c.Target != nil && !c.TargetPatch.Empty() {
		out = append(out, c.Target)
	}
	return out
}

// Mutator applies edge kinds to the relation fields of both endpoints. It never
// modifies the nodes it is given; every operation works on copies and returns a
// Change for the caller to persist and apply.
type Mutator struct {
	opts options
}

// NewMutator creates a mutator.
func NewMutator(opts ...Option) *Mutator {
	return &Mutator{opts: buildOptions(opts)}
}

// Commit writes the forward field on source and the inverse field on target for an
// edge of the given kind. Occupied scalar fields are rejected, set fields are
// inserted idempotently.
func (m *Mutator) Commit(edge *model.Edge, kind schema.EdgeKind, source, target *model.Node) (*Change, error) {
	op := string(OpCommit)
	if err := checkEndpoints(op, edge, source, target); err != nil {
		return nil, err
	}
	binding, err := m.binding(op, edge.ID, kind, source, target)
	if err != nil {
		return nil, err
	}

	src, tgt := source.Clone(), target.Clone()
	if err := m.apply(op, edge.ID, binding, src, tgt); err != nil {
		return nil, err
	}

	committed := edge.Clone()
	committed.Kind = kind
	return &Change{
		Op:          OpCommit,
		Edge:        committed,
		Source:      src,
		Target:      tgt,
		SourcePatch: model.PatchOf(src, binding.Forward.Field),
		TargetPatch: model.PatchOf(tgt, binding.Inverse.Field),
	}, nil
}

// Retract removes the fields an edge maintains. Either endpoint may be nil when it
// has already been deleted; the remaining endpoint is still cleaned up.
func (m *Mutator) Retract(edge *model.Edge, source, target *model.Node) (*Change, error) {
	op := string(OpRetract)
	if edge == nil {
		return nil, NewError(op).Cause(ErrEdgeNotFound).Messagef("no edge to retract").Err()
	}
	if (source != nil && source.ID != edge.Source) || (target != nil && target.ID != edge.Target) {
		return nil, NewError(op).Edge(edge.ID).Cause(ErrNodeNotFound).
			Messagef("endpoints do not match edge %s", edge.ID).Err()
	}

	src, tgt := source.Clone(), target.Clone()
	srcFields, tgtFields, err := m.unapply(op, edge, src, tgt)
	if err != nil {
		return nil, err
	}

	c := &Change{Op: OpRetract, Edge: edge.Clone(), Source: src, Target: tgt}
	if src != nil {
		c.SourcePatch = model.PatchOf(src, srcFields...)
	}
	if tgt != nil {
		c.TargetPatch = model.PatchOf(tgt, tgtFields...)
	}
	return c, nil
}

// Retype moves an edge to a new kind: the old kind is retracted and the new kind
// committed against the same endpoint copies. Nothing is returned unless both
// halves succeed. Locked edges cannot be retyped.
func (m *Mutator) Retype(edge *model.Edge, newKind schema.EdgeKind, source, target *model.Node) (*Change, error) {
	op := string(OpRetype)
	if err := checkEndpoints(op, edge, source, target); err != nil {
		return nil, err
	}
	if edge.LockConnection {
		return nil, NewError(op).Kind(edge.Kind).Edge(edge.ID).Node(source.ID).Partner(target.ID).
			Cause(ErrLockedEdge).
			Messagef("the relation between %s and %s was inferred from their kinds and cannot be changed",
				source.Label(), target.Label()).
			Err()
	}
	next, err := m.binding(op, edge.ID, newKind, source, target)
	if err != nil {
		return nil, err
	}

	src, tgt := source.Clone(), target.Clone()
	srcFields, tgtFields, err := m.unapply(op, edge, src, tgt)
	if err != nil {
		return nil, err
	}
	if err := m.apply(op, edge.ID, next, src, tgt); err != nil {
		return nil, err
	}

	retyped := edge.Clone()
	retyped.Kind = newKind
	return &Change{
		Op:          OpRetype,
		Edge:        retyped,
		Previous:    edge.Clone(),
		Source:      src,
		Target:      tgt,
		SourcePatch: model.PatchOf(src, append(srcFields, next.Forward.Field)...),
		TargetPatch: model.PatchOf(tgt, append(tgtFields, next.Inverse.Field)...),
	}, nil
}

func (m *Mutator) binding(op, edgeID string, kind schema.EdgeKind, source, target *model.Node) (schema.Binding, error) {
	if !kind.Valid() {
		return schema.Binding{}, NewError(op).Kind(kind).Edge(edgeID).Cause(ErrUnknownEdgeKind).
			Messagef("%q is not a known relation kind", string(kind)).Err()
	}
	if source.ID == target.ID {
		return schema.Binding{}, selfLoopError(op, edgeID, source)
	}
	b, err := schema.Lookup(kind, source.Kind, target.Kind)
	if err != nil {
		return schema.Binding{}, NewError(op).Kind(kind).Edge(edgeID).Node(source.ID).Partner(target.ID).
			Cause(err).
			Messagef("%s cannot be related to %s by %s", source.Label(), target.Label(), kind).Err()
	}
	return b, nil
}

// apply writes a binding onto src and tgt after checking both scalar sides.
func (m *Mutator) apply(op, edgeID string, b schema.Binding, src, tgt *model.Node) error {
	if err := checkCardinality(op, edgeID, b, src, tgt, m.opts.labeler); err != nil {
		return err
	}
	src.Put(b.Forward.Field, tgt.ID)
	tgt.Put(b.Inverse.Field, src.ID)
	return nil
}

// unapply removes an edge's partner ids from whichever endpoints are present and
// reports the fields touched on each side.
func (m *Mutator) unapply(op string, edge *model.Edge, src, tgt *model.Node) ([]schema.Field, []schema.Field, error) {
	if src != nil && tgt != nil {
		b, err := schema.Lookup(edge.Kind, src.Kind, tgt.Kind)
		if err != nil {
			return nil, nil, NewError(op).Kind(edge.Kind).Edge(edge.ID).Node(src.ID).Partner(tgt.ID).
				Cause(err).
				Messagef("%s cannot be related to %s by %s", src.Label(), tgt.Label(), edge.Kind).Err()
		}
		src.Remove(b.Forward.Field, tgt.ID)
		tgt.Remove(b.Inverse.Field, src.ID)
		return []schema.Field{b.Forward.Field}, []schema.Field{b.Inverse.Field}, nil
	}

	d, err := schema.Describe(edge.Kind)
	if err != nil {
		return nil, nil, NewError(op).Kind(edge.Kind).Edge(edge.ID).Cause(ErrUnknownEdgeKind).
			Messagef("%q is not a known relation kind", string(edge.Kind)).Err()
	}
	var srcFields, tgtFields []schema.Field
	for _, b := range d.Bindings {
		if src != nil && containsNodeKind(b.Source, src.Kind) {
			src.Remove(b.Forward.Field, edge.Target)
			srcFields = append(srcFields, b.Forward.Field)
		}
		if tgt != nil && containsNodeKind(b.Target, tgt.Kind) {
			tgt.Remove(b.Inverse.Field, edge.Source)
			tgtFields = append(tgtFields, b.Inverse.Field)
		}
	}
	return srcFields, tgtFields, nil
}

func checkEndpoints(op string, edge *model.Edge, source, target *model.Node) error {
	if edge == nil {
		return NewError(op).Cause(ErrEdgeNotFound).Messagef("no edge given").Err()
	}
	if source == nil || target == nil {
		missing := edge.Source
		if source != nil {
			missing = edge.Target
		}
		return NewError(op).Edge(edge.ID).Node(missing).Cause(ErrNodeNotFound).
			Messagef("node %s of edge %s does not exist", missing, edge.ID).Err()
	}
	if source.ID != edge.Source || target.ID != edge.Target {
		return NewError(op).Edge(edge.ID).Cause(ErrNodeNotFound).
			Messagef("endpoints do not match edge %s", edge.ID).Err()
	}
	return nil
}

func containsNodeKind(kinds []schema.NodeKind, k schema.NodeKind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
