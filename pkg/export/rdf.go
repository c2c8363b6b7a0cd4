package export

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

const (
	rdfType   = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
	rdfsLabel = "<http://www.w3.org/2000/01/rdf-schema#label>"
)

// DefaultBaseIRI is used when WriteNTriples is given an empty base.
const DefaultBaseIRI = "urn:cluso:"

// WriteNTriples writes the model as RDF N-Triples. Each node gets a type and a
// label, each relation field entry one triple, and each edge one triple whose
// predicate is the edge kind. Output is sorted.
func WriteNTriples(w io.Writer, nodes []*model.Node, edges []*model.Edge, baseIRI string) error {
	if baseIRI == "" {
		baseIRI = DefaultBaseIRI
	}
	iri := func(local string) string { return "<" + baseIRI + local + ">" }
	subject := func(id string) string { return iri("node/" + url.PathEscape(id)) }

	var triples []string
	add := func(s, p, o string) {
		triples = append(triples, s+" "+p+" "+o+" .")
	}

	for _, n := range nodes {
		s := subject(n.ID)
		add(s, rdfType, iri(string(n.Kind)))
		if n.Name != "" {
			add(s, rdfsLabel, literal(n.Name))
		}
		if n.Aspect != model.AspectNone {
			add(s, iri("aspect"), literal(string(n.Aspect)))
		}
		for _, p := range n.Partners() {
			add(s, iri(string(p.Field)), subject(p.ID))
		}
	}
	for _, e := range edges {
		add(subject(e.Source), iri(string(e.Kind)), subject(e.Target))
	}
	slices.Sort(triples)
	triples = slices.Compact(triples)

	bw := bufio.NewWriter(w)
	for _, t := range triples {
		if _, err := fmt.Fprintln(bw, t); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// literal quotes s as an N-Triples string literal.
func literal(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
