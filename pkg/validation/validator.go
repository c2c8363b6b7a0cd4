package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxIDLength   = 128
	MaxNameLength = 256
	MaxBatchSize  = 10000

	idPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

// Rules that check a value against the relation schema.
const (
	RuleNodeKind = "nodekind"
	RuleEdgeKind = "edgekind"
	RuleAspect   = "aspect"
	RuleField    = "relfield"
	RuleEntityID = "entityid"
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(RuleNodeKind, func(fl validator.FieldLevel) bool {
		return schema.NodeKind(fl.Field().String()).Valid()
	})
	mustRegister(RuleEdgeKind, func(fl validator.FieldLevel) bool {
		_, err := schema.ParseEdgeKind(fl.Field().String())
		return err == nil
	})
	mustRegister(RuleAspect, func(fl validator.FieldLevel) bool {
		return model.Aspect(fl.Field().String()).Valid()
	})
	mustRegister(RuleField, func(fl validator.FieldLevel) bool {
		return schema.Field(fl.Field().String()).Valid()
	})
	mustRegister(RuleEntityID, func(fl validator.FieldLevel) bool {
		return idPattern.MatchString(fl.Field().String())
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: registering %s: %v", tag, err))
	}
}

// NodeRequest is the header of a node as it arrives over the wire.
type NodeRequest struct {
	ID     string `json:"id" validate:"required,max=128,entityid"`
	Kind   string `json:"kind" validate:"required,nodekind"`
	Aspect string `json:"aspect" validate:"omitempty,aspect"`
	Name   string `json:"name" validate:"max=256"`
}

// EdgeRequest is an edge as it arrives over the wire.
type EdgeRequest struct {
	ID             string `json:"id" validate:"required,max=128,entityid"`
	Kind           string `json:"kind" validate:"required,edgekind"`
	Source         string `json:"source" validate:"required,max=128,entityid"`
	Target         string `json:"target" validate:"required,max=128,entityid,nefield=Source"`
	LockConnection bool   `json:"lockConnection"`
}

// PatchRequest lists the relation fields a node update replaces.
type PatchRequest struct {
	Fields []string `json:"fields" validate:"required,min=1,dive,relfield"`
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// Check validates v against its struct tags and returns every failure.
func Check(v any) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, FieldError{Field: e.Field(), Rule: e.Tag(), Message: describe(e)})
	}
	return out
}

// ValidateNodeRequest validates a node creation request
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}
	return first(Check(req))
}

// ValidateEdgeRequest validates an edge creation or update request
func ValidateEdgeRequest(req *EdgeRequest) error {
	if req == nil {
		return errors.New("edge request cannot be nil")
	}
	return first(Check(req))
}

// ValidatePatchRequest validates a node update request
func ValidatePatchRequest(req *PatchRequest) error {
	if req == nil {
		return errors.New("patch request cannot be nil")
	}
	return first(Check(req))
}

// ValidateBatchSize validates the number of entries in one document
func ValidateBatchSize(size int) error {
	if size > MaxBatchSize {
		return fmt.Errorf("document must not exceed %d entries, got %d", MaxBatchSize, size)
	}
	return nil
}

func first(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// describe converts a validator error to a user-friendly message
func describe(e validator.FieldError) string {
	field := e.Field()
	value := fmt.Sprint(e.Value())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: field is required", field)
	case "min":
		return fmt.Sprintf("%s: must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s: must not exceed %s characters", field, e.Param())
	case "nefield":
		return fmt.Sprintf("%s: must differ from %s", field, strings.ToLower(e.Param()))
	case RuleNodeKind:
		return fmt.Sprintf("%s: %q is not a node kind (Block, Connector, Terminal)", field, value)
	case RuleEdgeKind:
		return fmt.Sprintf("%s: %q is not a relation kind", field, value)
	case RuleAspect:
		return fmt.Sprintf("%s: %q is not an aspect", field, value)
	case RuleField:
		return fmt.Sprintf("%s: %q is not a relation field", field, value)
	case RuleEntityID:
		return fmt.Sprintf("%s: %q contains invalid characters", field, value)
	default:
		return fmt.Sprintf("%s: validation failed (%s)", field, e.Tag())
	}
}
