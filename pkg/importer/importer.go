package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/graph"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/notify"
)

// ErrRejected is matched by every ImportError.
var ErrRejected = errors.New("import rejected")

// ImportError carries every blocking problem found in an import. Nothing from a
// rejected import reaches the model.
type ImportError struct {
	Violations []constraints.Violation
}

func (e *ImportError) Error() string {
	switch len(e.Violations) {
	case 0:
		return ErrRejected.Error()
	case 1:
		return fmt.Sprintf("%v: %s", ErrRejected, e.Violations[0].Message)
	default:
		return fmt.Sprintf("%v: %d problems, first: %s", ErrRejected, len(e.Violations), e.Violations[0].Message)
	}
}

// Unwrap returns ErrRejected.
func (e *ImportError) Unwrap() error {
	return ErrRejected
}

// Messages returns one human-readable line per problem.
func (e *ImportError) Messages() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Message)
	}
	return out
}

// Report summarises an accepted import.
type Report struct {
	Nodes    int
	Edges    int
	Warnings []constraints.Violation
}

// Importer admits documents into a Service.
type Importer struct {
	svc      *graph.Service
	logger   logging.Logger
	metrics  *metrics.Registry
	notifier notify.Notifier
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer logger.
func WithLogger(l logging.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// WithMetrics enables violation counting.
func WithMetrics(r *metrics.Registry) Option {
	return func(im *Importer) { im.metrics = r }
}

// WithNotifier reports documents rejected before they reach the service.
func WithNotifier(n notify.Notifier) Option {
	return func(im *Importer) { im.notifier = n }
}

// New creates an importer writing into svc.
func New(svc *graph.Service, opts ...Option) *Importer {
	im := &Importer{
		svc:      svc,
		logger:   logging.NewNopLogger(),
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = im.logger.With(logging.Component("importer"))
	return im
}

// Import parses both documents, validates them together with the current model
// and hands them to the service. Any blocking violation aborts the import with
// an *ImportError listing all of them.
func (im *Importer) Import(ctx context.Context, nodes, edges io.Reader) (*Report, error) {
	doc, violations, err := Parse(nodes, edges)
	if err != nil {
		im.notifier.NotifyError(err.Error())
		return nil, err
	}
	nodesNow, edgesNow := im.svc.Snapshot()
	violations = append(violations, constraints.Validate(
		append(nodesNow, doc.Nodes...), append(edgesNow, doc.Edges...))...)

	var blocking, warnings []constraints.Violation
	for _, v := range violations {
		if v.Severity == constraints.Error {
			blocking = append(blocking, v)
		} else {
			warnings = append(warnings, v)
		}
	}

	if len(blocking) > 0 {
		im.recordViolations(blocking)
		ierr := &ImportError{Violations: blocking}
		im.logger.Warn("import rejected", logging.Count(len(blocking)),
			logging.Int("nodes", len(doc.Nodes)), logging.Int("edges", len(doc.Edges)))
		im.notifier.NotifyError(ierr.Error())
		return nil, ierr
	}

	if err := im.svc.Import(ctx, doc.Nodes, doc.Edges); err != nil {
		var verr *graph.ValidationError
		if errors.As(err, &verr) {
			return nil, &ImportError{Violations: verr.Violations}
		}
		return nil, err
	}

	im.logger.Info("import accepted", logging.Int("nodes", len(doc.Nodes)),
		logging.Int("edges", len(doc.Edges)), logging.Int("warnings", len(warnings)))
	return &Report{Nodes: len(doc.Nodes), Edges: len(doc.Edges), Warnings: warnings}, nil
}

// ImportFiles imports the documents stored at the given paths. edgesPath may be
// empty.
func (im *Importer) ImportFiles(ctx context.Context, nodesPath, edgesPath string) (*Report, error) {
	nodes, err := os.Open(nodesPath)
	if err != nil {
		return nil, fmt.Errorf("opening nodes document: %w", err)
	}
	defer nodes.Close()

	var edges io.Reader
	if edgesPath != "" {
		f, err := os.Open(edgesPath)
		if err != nil {
			return nil, fmt.Errorf("opening edges document: %w", err)
		}
		defer f.Close()
		edges = f
	}
	return im.Import(ctx, nodes, edges)
}

func (im *Importer) recordViolations(vs []constraints.Violation) {
	if im.metrics == nil {
		return
	}
	counts := make(map[string]int)
	for _, v := range vs {
		counts[v.Type.String()]++
	}
	im.metrics.RecordImportViolations(counts)
}
