package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
	"github.com/google/go-cmp/cmp"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

func plant() ([]*model.Node, []*model.Edge) {
	pump := model.NewNode("B1", schema.Block, model.AspectFunction, "Pump")
	site := model.NewNode("B2", schema.Block, model.AspectNone, "Plant")
	inlet := model.NewNode("T1", schema.Terminal, model.AspectNone, `In "A"`)
	pump.DirectPartOf = "B2"
	pump.Terminals = []model.Ref{{ID: "T1"}}
	site.DirectParts = []model.Ref{{ID: "B1"}}
	inlet.TerminalOf = "B1"
	return []*model.Node{pump, site, inlet}, []*model.Edge{
		{ID: "e2", Kind: schema.PartOf, Source: "B1", Target: "B2"},
		{ID: "e1", Kind: schema.Connected, Source: "T1", Target: "B1", LockConnection: true},
	}
}

func TestWriteText(t *testing.T) {
	nodes, edges := plant()
	var buf bytes.Buffer
	if err := WriteText(&buf, nodes, edges); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}

	want := `Block "Pump" (B1) directPartOf Block "Plant" (B2)
Terminal "In \"A\"" (T1) terminalOf Block "Pump" (B1)
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("text export mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTextUnknownEndpoint(t *testing.T) {
	var buf bytes.Buffer
	edges := []*model.Edge{{ID: "e1", Kind: schema.PartOf, Source: "B1", Target: "gone"}}
	if err := WriteText(&buf, []*model.Node{model.NewNode("B1", schema.Block, "", "")}, edges); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	if !strings.Contains(buf.String(), `Block "B1" (B1) PartOf <missing node> (gone)`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteNTriples(t *testing.T) {
	nodes, edges := plant()
	var buf bytes.Buffer
	if err := WriteNTriples(&buf, nodes, edges, "http://example.org/plant#"); err != nil {
		t.Fatalf("WriteNTriples() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<http://example.org/plant#node/B1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/plant#Block> .`,
		`<http://example.org/plant#node/B1> <http://www.w3.org/2000/01/rdf-schema#label> "Pump" .`,
		`<http://example.org/plant#node/B1> <http://example.org/plant#aspect> "Function" .`,
		`<http://example.org/plant#node/B1> <http://example.org/plant#directPartOf> <http://example.org/plant#node/B2> .`,
		`<http://example.org/plant#node/B2> <http://example.org/plant#directParts> <http://example.org/plant#node/B1> .`,
		`<http://example.org/plant#node/B1> <http://example.org/plant#PartOf> <http://example.org/plant#node/B2> .`,
		`<http://example.org/plant#node/T1> <http://www.w3.org/2000/01/rdf-schema#label> "In \"A\"" .`,
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("missing triple %s", want)
		}
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// 3 types, 3 labels, 1 aspect, 4 relation entries, 2 edges.
	if len(lines) != 13 {
		t.Errorf("got %d triples, want 13:\n%s", len(lines), out)
	}
}

func TestWriteNTriplesDefaultBase(t *testing.T) {
	var buf bytes.Buffer
	nodes := []*model.Node{model.NewNode("a b", schema.Connector, "", "")}
	if err := WriteNTriples(&buf, nodes, nil, ""); err != nil {
		t.Fatal(err)
	}
	want := "<urn:cluso:node/a%20b> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <urn:cluso:Connector> .\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLiteralEscaping(t *testing.T) {
	if got := literal("a\\b\n\x01"); got != `"a\\b\n\u0001"` {
		t.Errorf("literal() = %s", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	nodes, edges := plant()
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, nodes, edges); err != nil {
		t.Fatalf("WriteSnapshot() error = %v", err)
	}

	snap, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot() error = %v", err)
	}
	if diff := cmp.Diff(nodes, snap.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(edges, snap.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSnapshotRejectsBadInput(t *testing.T) {
	if _, err := ReadSnapshot(strings.NewReader("not snappy")); err == nil {
		t.Error("garbage accepted")
	}
	future := snappy.Encode(nil, []byte(`{"version": 99}`))
	if _, err := ReadSnapshot(bytes.NewReader(future)); !errors.Is(err, ErrSnapshotVersion) {
		t.Errorf("ReadSnapshot(version 99) error = %v, want ErrSnapshotVersion", err)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploadSnapshot(t *testing.T) {
	fake := &fakeS3{}
	u := newS3Uploader(fake, S3Config{Bucket: "models", Prefix: "exports"}, nil)
	nodes, edges := plant()

	if err := u.UploadSnapshot(context.Background(), "plant.snap", nodes, edges); err != nil {
		t.Fatalf("UploadSnapshot() error = %v", err)
	}
	if got := aws.ToString(fake.input.Bucket); got != "models" {
		t.Errorf("bucket = %q", got)
	}
	if got := aws.ToString(fake.input.Key); got != "exports/plant.snap" {
		t.Errorf("key = %q", got)
	}
	snap, err := ReadSnapshot(bytes.NewReader(fake.body))
	if err != nil {
		t.Fatalf("uploaded body is not a snapshot: %v", err)
	}
	if len(snap.Nodes) != 3 || len(snap.Edges) != 2 {
		t.Errorf("uploaded %d nodes and %d edges", len(snap.Nodes), len(snap.Edges))
	}
}

func TestS3UploadFailure(t *testing.T) {
	boom := errors.New("access denied")
	u := newS3Uploader(&fakeS3{err: boom}, S3Config{Bucket: "models"}, nil)
	err := u.Upload(context.Background(), "plant.txt", "text/plain", strings.NewReader("x"))
	if !errors.Is(err, boom) {
		t.Errorf("Upload() error = %v, want wrapped cause", err)
	}
	if !strings.Contains(err.Error(), "s3://models/plant.txt") {
		t.Errorf("error does not name the object: %v", err)
	}
}

func TestNewS3UploaderRequiresBucket(t *testing.T) {
	if _, err := NewS3Uploader(context.Background(), S3Config{}, nil); err == nil {
		t.Error("missing bucket accepted")
	}
}
