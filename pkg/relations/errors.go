package relations

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Sentinel errors for the relation taxonomy.
var (
	ErrUnknownEdgeKind      = schema.ErrUnknownEdgeKind
	ErrSchemaMismatch       = schema.ErrSchemaMismatch
	ErrSelfLoop             = errors.New("self-loop forbidden")
	ErrCardinalityViolation = errors.New("cardinality violation")
	ErrLockedEdge           = errors.New("edge is locked")
	ErrAsymmetricRelation   = errors.New("asymmetric relation")
	ErrDanglingReference    = errors.New("dangling reference")
	ErrPersistenceFailure   = errors.New("persistence failure")
	ErrAmbiguous            = errors.New("edge kind is ambiguous")
	ErrEdgeState            = errors.New("invalid edge state transition")
	ErrBusy                 = errors.New("operation already in progress")
	ErrNodeNotFound         = errors.New("node not found")
	ErrEdgeNotFound         = errors.New("edge not found")
)

// Error provides structured information about a rejected relation operation.
type Error struct {
	Op        string          // Operation that failed (e.g. "commit", "retype")
	Kind      schema.EdgeKind // Edge kind involved, if any
	EdgeID    string          // Edge involved, if any
	NodeID    string          // Node the rule was violated on, if any
	PartnerID string          // Partner node id, if any
	Field     schema.Field    // Relation field involved, if any
	Message   string          // Human-readable description naming nodes and rule
	Cause     error           // Underlying sentinel or error
}

// Error implements the error interface.
func (e *Error) Error() string {
	subject := e.Op
	if e.EdgeID != "" {
		subject = fmt.Sprintf("%s edge %s", e.Op, e.EdgeID)
	} else if e.NodeID != "" {
		subject = fmt.Sprintf("%s node %s", e.Op, e.NodeID)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", subject, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %v", subject, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// UserMessage returns the single notification shown for a rejected operation.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}

// UserMessage extracts the human-readable message of err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var relErr *Error
	if errors.As(err, &relErr) {
		return relErr.UserMessage()
	}
	return err.Error()
}

// ErrorBuilder provides a fluent interface for building relation errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op}}
}

// Kind sets the edge kind.
func (b *ErrorBuilder) Kind(kind schema.EdgeKind) *ErrorBuilder {
	b.err.Kind = kind
	return b
}

// Edge sets the edge id.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.EdgeID = id
	return b
}

// Node sets the node the rule was violated on.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.NodeID = id
	return b
}

// Partner sets the partner node id.
func (b *ErrorBuilder) Partner(id string) *ErrorBuilder {
	b.err.PartnerID = id
	return b
}

// Field sets the relation field.
func (b *ErrorBuilder) Field(f schema.Field) *ErrorBuilder {
	b.err.Field = f
	return b
}

// Messagef sets the human-readable message.
func (b *ErrorBuilder) Messagef(format string, args ...any) *ErrorBuilder {
	b.err.Message = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() *Error {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// PersistenceError wraps a collaborator failure so that it matches
// ErrPersistenceFailure as well as the original cause.
func PersistenceError(op string, edgeID string, cause error) error {
	return &Error{
		Op:      op,
		EdgeID:  edgeID,
		Message: fmt.Sprintf("could not save changes: %v", cause),
		Cause:   fmt.Errorf("%w: %w", ErrPersistenceFailure, cause),
	}
}

// IsValidation reports whether err is a synchronous rule violation rather than a
// collaborator failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownEdgeKind) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrSelfLoop) ||
		errors.Is(err, ErrCardinalityViolation) ||
		errors.Is(err, ErrLockedEdge) ||
		errors.Is(err, ErrEdgeState)
}

// occupiedPhrase describes a scalar field that already holds a partner, as in
// `Terminal "T1" is already a terminal of Block "B1"`.
func occupiedPhrase(f schema.Field) string {
	switch f {
	case schema.TerminalOf:
		return "is already a terminal of"
	case schema.DirectPartOf:
		return "is already part of"
	case schema.TransfersTo:
		return "already transfers to"
	case schema.TransferedBy:
		return "is already transferred by"
	case schema.SpecialisationOf:
		return "is already a specialisation of"
	case schema.ProxyOf:
		return "is already a proxy of"
	default:
		return fmt.Sprintf("already has %s set to", f)
	}
}
