package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

// ErrSnapshotVersion is returned when a snapshot was written by an unknown format
// version.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the decoded content of a compressed snapshot.
type Snapshot struct {
	Version int           `json:"version"`
	Nodes   []*model.Node `json:"nodes"`
	Edges   []*model.Edge `json:"edges"`
}

// WriteSnapshot writes nodes and edges as snappy-compressed JSON.
func WriteSnapshot(w io.Writer, nodes []*model.Node, edges []*model.Edge) error {
	data, err := json.Marshal(Snapshot{Version: SnapshotVersion, Nodes: nodes, Edges: edges})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := w.Write(snappy.Encode(nil, data)); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	return &snap, nil
}
