// Package export writes read-only views of the model: a plain text listing of
// every relation, RDF N-Triples, and compressed snapshots that can be shipped to
// S3.
package export

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// WriteText writes one sorted line per relation, for example
//
//	Block "Pump" (B1) directPartOf Block "Plant" (B2)
func WriteText(w io.Writer, nodes []*model.Node, edges []*model.Edge) error {
	byID := index(nodes)
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		src, tgt := byID[e.Source], byID[e.Target]
		lines = append(lines, fmt.Sprintf("%s (%s) %s %s (%s)",
			src.Label(), e.Source, predicate(e, src, tgt), tgt.Label(), e.Target))
	}
	slices.Sort(lines)

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// predicate names the relation an edge establishes from its source, falling back
// to the edge kind when the endpoints do not match the schema.
func predicate(e *model.Edge, src, tgt *model.Node) string {
	if src != nil && tgt != nil {
		if b, err := schema.Lookup(e.Kind, src.Kind, tgt.Kind); err == nil {
			return string(b.Forward.Field)
		}
	}
	return string(e.Kind)
}

func index(nodes []*model.Node) map[string]*model.Node {
	out := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out
}
