package relations

import (
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Outcome classifies a connection attempt.
type Outcome int

const (
	Rejected Outcome = iota
	Resolved
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "Rejected"
	case Resolved:
		return "Resolved"
	case Ambiguous:
		return "Ambiguous"
	default:
		return "Unknown"
	}
}

// Resolution is the result of classifying a candidate connection.
type Resolution struct {
	Outcome        Outcome
	Kind           schema.EdgeKind   // set when Resolved
	LockConnection bool              // set when the node kinds admit only Kind
	Candidates     []schema.EdgeKind // set when Ambiguous
	Err            error             // set when Rejected
}

// HandleRole is the role of the port a connection was drawn from or to.
type HandleRole string

const (
	HandleGeneric   HandleRole = ""
	HandleTerminal  HandleRole = "terminal"
	HandleBlock     HandleRole = "block"
	HandleConnector HandleRole = "connector"
)

// EdgeKind returns the edge kind the role selects. Structural roles (terminal,
// block, connector) and the generic role select none.
func (h HandleRole) EdgeKind() (schema.EdgeKind, bool) {
	switch h {
	case HandleGeneric, HandleTerminal, HandleBlock, HandleConnector:
		return "", false
	}
	k, err := schema.ParseEdgeKind(string(h))
	if err != nil {
		return "", false
	}
	return k, true
}

// ConnectionContext carries what the graphical surface knows about a gesture.
type ConnectionContext struct {
	SourceHandle HandleRole `json:"sourceHandle,omitempty"`
	TargetHandle HandleRole `json:"targetHandle,omitempty"`
}

// Labeler renders a node id for user-facing messages.
type Labeler func(id string) string

func defaultLabeler(id string) string {
	return fmt.Sprintf("node %q", id)
}

// Option configures a Resolver or Mutator.
type Option func(*options)

type options struct {
	labeler Labeler
}

// WithLabeler names partner nodes that are known only by id in messages.
func WithLabeler(l Labeler) Option {
	return func(o *options) {
		if l != nil {
			o.labeler = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{labeler: defaultLabeler}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolver decides which edge kind, if any, a connection attempt implies. It is a
// pure function of the node snapshots it is given.
type Resolver struct {
	opts options
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	return &Resolver{opts: buildOptions(opts)}
}

// Resolve classifies a connection from source to target.
func (r *Resolver) Resolve(source, target *model.Node, cc ConnectionContext) Resolution {
	if source == nil || target == nil {
		return reject(NewError("resolve").Cause(ErrNodeNotFound).
			Messagef("both endpoints must exist to connect them").Err())
	}
	if source.ID == target.ID {
		return reject(selfLoopError("resolve", "", source))
	}

	allowed := schema.Allowed(source.Kind, target.Kind)
	if len(allowed) == 0 {
		return reject(NewError("resolve").Node(source.ID).Partner(target.ID).Cause(ErrSchemaMismatch).
			Messagef("%s cannot be connected to %s", source.Label(), target.Label()).Err())
	}

	if kind, ok := chosenKind(cc); ok {
		binding, err := schema.Lookup(kind, source.Kind, target.Kind)
		if err != nil {
			return reject(NewError("resolve").Kind(kind).Node(source.ID).Partner(target.ID).Cause(err).
				Messagef("%s cannot be related to %s by %s", source.Label(), target.Label(), kind).Err())
		}
		if err := checkCardinality("resolve", "", binding, source, target, r.opts.labeler); err != nil {
			return reject(err)
		}
		return Resolution{Outcome: Resolved, Kind: kind, LockConnection: len(allowed) == 1}
	}

	if len(allowed) == 1 {
		kind := allowed[0]
		binding, _ := schema.Lookup(kind, source.Kind, target.Kind)
		if err := checkCardinality("resolve", "", binding, source, target, r.opts.labeler); err != nil {
			return reject(err)
		}
		return Resolution{Outcome: Resolved, Kind: kind, LockConnection: true}
	}

	candidates := make([]schema.EdgeKind, 0, len(allowed))
	var firstErr error
	for _, kind := range allowed {
		binding, _ := schema.Lookup(kind, source.Kind, target.Kind)
		if err := checkCardinality("resolve", "", binding, source, target, r.opts.labeler); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		candidates = append(candidates, kind)
	}
	if len(candidates) == 0 {
		return reject(firstErr)
	}
	return Resolution{Outcome: Ambiguous, Candidates: candidates}
}

func reject(err error) Resolution {
	return Resolution{Outcome: Rejected, Err: err}
}

// chosenKind returns the edge kind selected by the handles, source handle first.
func chosenKind(cc ConnectionContext) (schema.EdgeKind, bool) {
	if k, ok := cc.SourceHandle.EdgeKind(); ok {
		return k, true
	}
	return cc.TargetHandle.EdgeKind()
}

// checkCardinality rejects a binding whose scalar fields are already occupied on
// either endpoint. An occupied scalar is never overwritten, even with the same id.
func checkCardinality(op, edgeID string, b schema.Binding, source, target *model.Node, label Labeler) error {
	sides := []struct {
		node    *model.Node
		partner *model.Node
		field   schema.FieldSpec
	}{
		{source, target, b.Forward},
		{target, source, b.Inverse},
	}
	for _, side := range sides {
		if side.field.Cardinality != schema.One {
			continue
		}
		current := side.node.Scalar(side.field.Field)
		if current == "" {
			continue
		}
		occupant := label(current)
		if current == side.partner.ID {
			occupant = side.partner.Label()
		}
		return NewError(op).Kind(b.Kind).Edge(edgeID).
			Node(side.node.ID).Partner(current).Field(side.field.Field).
			Cause(ErrCardinalityViolation).
			Messagef("%s %s %s", side.node.Label(), occupiedPhrase(side.field.Field), occupant).
			Err()
	}
	return nil
}

func selfLoopError(op, edgeID string, n *model.Node) error {
	return NewError(op).Edge(edgeID).Node(n.ID).Partner(n.ID).Cause(ErrSelfLoop).
		Messagef("%s cannot be connected to itself", n.Label()).Err()
}
