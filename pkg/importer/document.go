// Package importer reads node and edge documents produced outside the editor and
// admits them into the model only when they are entirely consistent.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
	"github.com/dd0wney/cluso-modeler/pkg/validation"
)

// constraintName tags violations found while reading the documents.
const constraintName = "ImportDocument"

// Document is the decoded content of a nodes document and an edges document.
type Document struct {
	Nodes []*model.Node
	Edges []*model.Edge
}

var headerKeys = map[string]bool{"id": true, "kind": true, "aspect": true, "name": true}

// Parse decodes both documents. Malformed JSON is an error; entries that decode
// but break a structural rule are reported as violations and left out of the
// document. Either reader may be nil.
func Parse(nodesJSON, edgesJSON io.Reader) (*Document, []constraints.Violation, error) {
	rawNodes, err := decodeArray(nodesJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding nodes document: %w", err)
	}
	rawEdges, err := decodeArray(edgesJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding edges document: %w", err)
	}
	if err := validation.ValidateBatchSize(len(rawNodes)); err != nil {
		return nil, nil, fmt.Errorf("nodes document: %w", err)
	}
	if err := validation.ValidateBatchSize(len(rawEdges)); err != nil {
		return nil, nil, fmt.Errorf("edges document: %w", err)
	}

	doc := &Document{}
	var violations []constraints.Violation

	for i, raw := range rawNodes {
		n, vs := parseNode(i, raw)
		violations = append(violations, vs...)
		if n != nil {
			doc.Nodes = append(doc.Nodes, n)
		}
	}
	for i, raw := range rawEdges {
		e, vs := parseEdge(i, raw)
		violations = append(violations, vs...)
		if e != nil {
			doc.Edges = append(doc.Edges, e)
		}
	}
	return doc, violations, nil
}

// Validate runs the consistency validator over a parsed document.
func Validate(doc *Document) []constraints.Violation {
	return constraints.Validate(doc.Nodes, doc.Edges)
}

func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	if r == nil {
		return nil, nil
	}
	var out []json.RawMessage
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

func parseNode(index int, raw json.RawMessage) (*model.Node, []constraints.Violation) {
	var hdr validation.NodeRequest
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, []constraints.Violation{malformed("", "", "node #%d: %v", index+1, err)}
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, []constraints.Violation{malformed("", "", "node #%d: %v", index+1, err)}
	}

	var violations []constraints.Violation
	usable := true
	for _, fe := range validation.Check(&hdr) {
		switch fe.Rule {
		case validation.RuleAspect:
			// Reported by the consistency validator.
		case validation.RuleNodeKind:
			usable = false
			violations = append(violations, newViolation(constraints.UnknownKind, constraints.Error, hdr.ID, "", "",
				"node %s: %s", describeEntry(index, hdr.ID), fe.Message))
		default:
			usable = false
			violations = append(violations, malformed(hdr.ID, "", "node %s: %s", describeEntry(index, hdr.ID), fe.Message))
		}
	}
	if !usable {
		return nil, violations
	}

	n := model.NewNode(hdr.ID, schema.NodeKind(hdr.Kind), model.Aspect(hdr.Aspect), hdr.Name)
	for _, key := range slices.Sorted(maps.Keys(attrs)) {
		if headerKeys[key] {
			continue
		}
		field, err := schema.ParseField(key)
		if err != nil {
			violations = append(violations, newViolation(constraints.MalformedEntry, constraints.Warning, n.ID, "", "",
				"%s: attribute %q is not a relation field and was ignored", n.Label(), key))
			continue
		}
		ids, err := decodeRefs(attrs[key])
		if err != nil {
			violations = append(violations, newViolation(constraints.MalformedEntry, constraints.Error, n.ID, "", field,
				"%s: %s: %v", n.Label(), field, err))
			continue
		}
		if field.Scalar() && len(ids) > 1 {
			violations = append(violations, newViolation(constraints.CardinalityViolation, constraints.Error, n.ID, "", field,
				"%s lists %d partners in %s; at most one is allowed", n.Label(), len(ids), field))
		}
		n.Assign(field, ids)
	}
	return n, violations
}

func parseEdge(index int, raw json.RawMessage) (*model.Edge, []constraints.Violation) {
	var req validation.EdgeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, []constraints.Violation{malformed("", "", "edge #%d: %v", index+1, err)}
	}

	var violations []constraints.Violation
	for _, fe := range validation.Check(&req) {
		typ := constraints.MalformedEntry
		switch fe.Rule {
		case validation.RuleEdgeKind:
			typ = constraints.UnknownKind
		case "nefield":
			typ = constraints.SchemaMismatch
		}
		violations = append(violations, newViolation(typ, constraints.Error, "", req.ID, "",
			"edge %s: %s", describeEntry(index, req.ID), fe.Message))
	}
	if len(violations) > 0 {
		return nil, violations
	}

	kind, _ := schema.ParseEdgeKind(req.Kind)
	return &model.Edge{
		ID:             req.ID,
		Kind:           kind,
		Source:         req.Source,
		Target:         req.Target,
		LockConnection: req.LockConnection,
	}, nil
}

// decodeRefs reads a relation value written as null, a string id, an {"id": ...}
// object, or a list of either. Empty ids and repeats are dropped.
func decodeRefs(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	} else {
		items = []json.RawMessage{trimmed}
	}

	var ids []string
	seen := make(map[string]bool)
	for _, item := range items {
		id, err := decodeRef(item)
		if err != nil {
			return nil, err
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func decodeRef(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return "", nil
	case trimmed[0] == '"':
		var id string
		err := json.Unmarshal(trimmed, &id)
		return id, err
	case trimmed[0] == '{':
		var ref model.Ref
		err := json.Unmarshal(trimmed, &ref)
		return ref.ID, err
	case bytes.Equal(trimmed, []byte("null")):
		return "", nil
	default:
		return "", fmt.Errorf("expected an id, an {\"id\"} object or a list, got %s", trimmed)
	}
}

func describeEntry(index int, id string) string {
	if id != "" {
		return fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("#%d", index+1)
}

func malformed(nodeID, edgeID string, format string, args ...any) constraints.Violation {
	return newViolation(constraints.MalformedEntry, constraints.Error, nodeID, edgeID, "", format, args...)
}

func newViolation(typ constraints.ViolationType, sev constraints.Severity, nodeID, edgeID string, field schema.Field, format string, args ...any) constraints.Violation {
	return constraints.Violation{
		Type:       typ,
		Severity:   sev,
		NodeID:     nodeID,
		EdgeID:     edgeID,
		Field:      field,
		Constraint: constraintName,
		Message:    fmt.Sprintf(format, args...),
	}
}
