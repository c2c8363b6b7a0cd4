package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

func TestRelationsPutAndRemove(t *testing.T) {
	var r Relations

	if !r.Put(schema.Terminals, "t1") {
		t.Fatal("first insert into set should change the field")
	}
	if r.Put(schema.Terminals, "t1") {
		t.Error("repeated insert into set should be a no-op")
	}
	r.Put(schema.Terminals, "t2")
	if diff := cmp.Diff([]string{"t1", "t2"}, r.Get(schema.Terminals)); diff != "" {
		t.Errorf("terminals mismatch (-want +got):\n%s", diff)
	}

	r.Put(schema.TerminalOf, "b1")
	if r.Remove(schema.TerminalOf, "b2") {
		t.Error("removing a different id must not clear a scalar field")
	}
	if r.Scalar(schema.TerminalOf) != "b1" {
		t.Errorf("TerminalOf = %q, want b1", r.TerminalOf)
	}
	if !r.Remove(schema.TerminalOf, "b1") || r.TerminalOf != "" {
		t.Errorf("TerminalOf should be cleared, got %q", r.TerminalOf)
	}

	r.Remove(schema.Terminals, "t1")
	r.Remove(schema.Terminals, "t2")
	if r.Terminals != nil {
		t.Errorf("emptied set should be nil, got %v", r.Terminals)
	}
	if !r.Empty() {
		t.Error("relations should be empty")
	}
}

func TestCloneIsDeep(t *testing.T) {
	n := NewNode("b1", schema.Block, AspectFunction, "Pump")
	n.Put(schema.DirectParts, "b2")

	c := n.Clone()
	c.Put(schema.DirectParts, "b3")
	c.Name = "Other"

	if n.Len(schema.DirectParts) != 1 {
		t.Errorf("original mutated through clone: %v", n.DirectParts)
	}
	if n.Name != "Pump" {
		t.Errorf("original name mutated: %q", n.Name)
	}
}

func TestPatchApply(t *testing.T) {
	n := NewNode("t1", schema.Terminal, AspectNone, "")
	n.Put(schema.TerminalOf, "b1")
	n.Put(schema.ConnectedTo, "c1")

	updated := n.Clone()
	updated.Remove(schema.TerminalOf, "b1")
	p := PatchOf(updated, schema.TerminalOf)

	p.Apply(n)
	if n.TerminalOf != "" {
		t.Errorf("TerminalOf = %q, want cleared", n.TerminalOf)
	}
	if !n.Contains(schema.ConnectedTo, "c1") {
		t.Error("untouched field was modified by the patch")
	}
}

func TestNodeJSONFlattensRelations(t *testing.T) {
	n := NewNode("b1", schema.Block, AspectProduct, "Pump")
	n.Put(schema.Terminals, "t1")

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"id":"b1","kind":"Block","aspect":"Product","name":"Pump","terminals":[{"id":"t1"}]}`
	if string(data) != want {
		t.Errorf("json = %s\nwant   %s", data, want)
	}

	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(n, &back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
