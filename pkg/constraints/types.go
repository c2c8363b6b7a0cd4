package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// GraphReader defines the read-only operations needed for constraint validation.
// Constraints never mutate what they read.
type GraphReader interface {
	// Node operations
	GetNode(id string) (*model.Node, bool)
	GetAllNodes() []*model.Node

	// Edge operations
	GetAllEdges() []*model.Edge
	GetOutgoingEdges(nodeID string) []*model.Edge
	GetIncomingEdges(nodeID string) []*model.Edge
}

// Severity indicates the importance of a violation
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ViolationType categorizes the type of constraint violation
type ViolationType int

const (
	SchemaMismatch ViolationType = iota
	AsymmetricRelation
	CardinalityViolation
	DanglingReference
	DuplicateID
	DuplicateEdge
	UnknownKind
	MalformedEntry
)

func (vt ViolationType) String() string {
	switch vt {
	case SchemaMismatch:
		return "SchemaMismatch"
	case AsymmetricRelation:
		return "AsymmetricRelation"
	case CardinalityViolation:
		return "CardinalityViolation"
	case DanglingReference:
		return "DanglingReference"
	case DuplicateID:
		return "DuplicateID"
	case DuplicateEdge:
		return "DuplicateEdge"
	case UnknownKind:
		return "UnknownKind"
	case MalformedEntry:
		return "MalformedEntry"
	default:
		return "Unknown"
	}
}

// MarshalText renders the type by name in JSON reports.
func (vt ViolationType) MarshalText() ([]byte, error) {
	return []byte(vt.String()), nil
}

// UnmarshalText parses a type name.
func (vt *ViolationType) UnmarshalText(text []byte) error {
	for t := SchemaMismatch; t <= MalformedEntry; t++ {
		if t.String() == string(text) {
			*vt = t
			return nil
		}
	}
	return fmt.Errorf("unknown violation type %q", text)
}

// MarshalText renders the severity by name in JSON reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	for sev := Info; sev <= Error; sev++ {
		if sev.String() == string(text) {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Violation represents a constraint violation. NodeID and EdgeID are empty when
// the violation does not concern a node or edge.
type Violation struct {
	Type       ViolationType  `json:"type"`
	Severity   Severity       `json:"severity"`
	NodeID     string         `json:"nodeId,omitempty"`
	EdgeID     string         `json:"edgeId,omitempty"`
	Field      schema.Field   `json:"field,omitempty"`
	Constraint string         `json:"constraint"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// Constraint is the interface that all constraint types must implement.
type Constraint interface {
	// Validate checks the constraint against the graph
	// Returns a list of violations (empty if valid)
	Validate(graph GraphReader) ([]Violation, error)

	// Name returns a human-readable name for the constraint
	Name() string
}
