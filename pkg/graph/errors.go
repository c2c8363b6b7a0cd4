package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/relations"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// ErrInvalidModel is matched by every ValidationError.
var ErrInvalidModel = errors.New("model violates relation constraints")

// ValidationError rejects a whole data set. It lists every blocking violation.
type ValidationError struct {
	Op         string
	Violations []constraints.Violation
}

func (e *ValidationError) Error() string {
	switch len(e.Violations) {
	case 0:
		return fmt.Sprintf("%s: %v", e.Op, ErrInvalidModel)
	case 1:
		return fmt.Sprintf("%s: %v: %s", e.Op, ErrInvalidModel, e.Violations[0].Message)
	default:
		return fmt.Sprintf("%s: %v: %s (and %d more)", e.Op, ErrInvalidModel,
			e.Violations[0].Message, len(e.Violations)-1)
	}
}

// Unwrap returns ErrInvalidModel.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidModel
}

// Messages returns the message of every violation, in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Message)
	}
	return out
}

// Report renders all messages, one per line.
func (e *ValidationError) Report() string {
	return strings.Join(e.Messages(), "\n")
}

// blocking keeps the Error-severity violations.
func blocking(violations []constraints.Violation) []constraints.Violation {
	var out []constraints.Violation
	for _, v := range violations {
		if v.Severity == constraints.Error {
			out = append(out, v)
		}
	}
	return out
}

// reason names the class of a failed operation for metrics.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, relations.ErrPersistenceFailure):
		return "persistence_failure"
	case errors.Is(err, ErrInvalidModel):
		return "invalid_model"
	case errors.Is(err, relations.ErrSelfLoop):
		return "self_loop"
	case errors.Is(err, relations.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, relations.ErrCardinalityViolation):
		return "cardinality_violation"
	case errors.Is(err, relations.ErrLockedEdge):
		return "locked_edge"
	case errors.Is(err, relations.ErrEdgeState):
		return "edge_state"
	case errors.Is(err, relations.ErrBusy):
		return "busy"
	case errors.Is(err, relations.ErrUnknownEdgeKind), errors.Is(err, schema.ErrUnknownNodeKind):
		return "unknown_kind"
	case errors.Is(err, relations.ErrNodeNotFound), errors.Is(err, relations.ErrEdgeNotFound):
		return "not_found"
	default:
		return "other"
	}
}
