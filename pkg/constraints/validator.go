package constraints

import (
	"time"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// ValidationResult contains the results of validating a graph against constraints
type ValidationResult struct {
	Valid      bool        `json:"valid"`      // True if no violations found
	Violations []Violation `json:"violations"` // List of all violations
	CheckedAt  time.Time   `json:"checkedAt"`  // When validation was performed
}

// GetViolationsBySeverity returns violations filtered by severity level
func (vr *ValidationResult) GetViolationsBySeverity(severity Severity) []Violation {
	filtered := make([]Violation, 0)
	for _, v := range vr.Violations {
		if v.Severity == severity {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// GetViolationsByType returns violations filtered by type
func (vr *ValidationResult) GetViolationsByType(violationType ViolationType) []Violation {
	filtered := make([]Violation, 0)
	for _, v := range vr.Violations {
		if v.Type == violationType {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Messages returns the human-readable message of every violation, in order.
func (vr *ValidationResult) Messages() []string {
	out := make([]string, 0, len(vr.Violations))
	for _, v := range vr.Violations {
		out = append(out, v.Message)
	}
	return out
}

// Validator manages a set of constraints and validates graphs against them
type Validator struct {
	constraints []Constraint
}

// NewValidator creates a new empty validator
func NewValidator() *Validator {
	return &Validator{
		constraints: make([]Constraint, 0),
	}
}

// DefaultValidator returns a validator carrying every relation constraint.
func DefaultValidator() *Validator {
	v := NewValidator()
	v.AddConstraints([]Constraint{
		&UniquenessConstraint{},
		&KindConstraint{},
		&SchemaConstraint{},
		&SymmetryConstraint{},
		&CardinalityConstraint{},
		&ReferenceConstraint{},
	})
	return v
}

// AddConstraint adds a constraint to the validator
func (v *Validator) AddConstraint(constraint Constraint) {
	v.constraints = append(v.constraints, constraint)
}

// AddConstraints adds multiple constraints to the validator
func (v *Validator) AddConstraints(constraints []Constraint) {
	v.constraints = append(v.constraints, constraints...)
}

// Validate runs all constraints against the graph and returns the results.
// Every constraint runs; violations are never short-circuited.
func (v *Validator) Validate(graph GraphReader) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:      true,
		Violations: make([]Violation, 0),
		CheckedAt:  time.Now(),
	}

	for _, constraint := range v.constraints {
		violations, err := constraint.Validate(graph)
		if err != nil {
			return nil, err
		}

		if len(violations) > 0 {
			result.Valid = false
			result.Violations = append(result.Violations, violations...)
		}
	}

	return result, nil
}

// GetConstraints returns all constraints in the validator
func (v *Validator) GetConstraints() []Constraint {
	return v.constraints
}

// Validate checks a node/edge set against every relation constraint.
func Validate(nodes []*model.Node, edges []*model.Edge) []Violation {
	result, err := DefaultValidator().Validate(NewSnapshot(nodes, edges))
	if err != nil {
		// Built-in constraints only fail on reader errors, which a Snapshot never returns.
		return []Violation{{Type: DanglingReference, Severity: Error, Constraint: "Validator", Message: err.Error()}}
	}
	return result.Violations
}

// Snapshot is an in-memory GraphReader over node and edge slices. When ids repeat,
// the first occurrence is the one looked up.
type Snapshot struct {
	nodes    []*model.Node
	edges    []*model.Edge
	byID     map[string]*model.Node
	outgoing map[string][]*model.Edge
	incoming map[string][]*model.Edge
}

// NewSnapshot indexes nodes and edges for validation.
func NewSnapshot(nodes []*model.Node, edges []*model.Edge) *Snapshot {
	s := &Snapshot{
		nodes:    nodes,
		edges:    edges,
		byID:     make(map[string]*model.Node, len(nodes)),
		outgoing: make(map[string][]*model.Edge),
		incoming: make(map[string][]*model.Edge),
	}
	for _, n := range nodes {
		if _, ok := s.byID[n.ID]; !ok {
			s.byID[n.ID] = n
		}
	}
	for _, e := range edges {
		s.outgoing[e.Source] = append(s.outgoing[e.Source], e)
		s.incoming[e.Target] = append(s.incoming[e.Target], e)
	}
	return s
}

func (s *Snapshot) GetNode(id string) (*model.Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

func (s *Snapshot) GetAllNodes() []*model.Node { return s.nodes }

func (s *Snapshot) GetAllEdges() []*model.Edge { return s.edges }

func (s *Snapshot) GetOutgoingEdges(nodeID string) []*model.Edge { return s.outgoing[nodeID] }

func (s *Snapshot) GetIncomingEdges(nodeID string) []*model.Edge { return s.incoming[nodeID] }
