package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/notify"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
	"github.com/dd0wney/cluso-modeler/pkg/relations"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// Service operation names used in logs and metrics.
const (
	OpLoad       = "load"
	OpCreateNode = "create_node"
	OpConnect    = "connect"
	OpDeleteEdge = "delete_edge"
	OpRetypeEdge = "retype_edge"
	OpDeleteNode = "delete_node"
	OpImport     = "import"
)

// Service is the only writer of relation fields. Every operation validates both
// endpoints, persists through the client and only then updates the Store.
type Service struct {
	store    *Store
	client   persistence.Client
	resolver *relations.Resolver
	mutator  *relations.Mutator
	notifier notify.Notifier
	logger   logging.Logger
	metrics  *metrics.Registry
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where operation outcomes are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics enables metrics recording.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Service) { s.metrics = r }
}

// WithIDGenerator replaces the uuid generator used for new nodes and edges.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService creates a service with an empty store.
func NewService(client persistence.Client, opts ...Option) *Service {
	s := &Service{
		store:    NewStore(),
		client:   client,
		notifier: notify.Nop{},
		logger:   logging.NewNopLogger(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("graph"))
	s.resolver = relations.NewResolver(relations.WithLabeler(s.store.Label))
	s.mutator = relations.NewMutator(relations.WithLabeler(s.store.Label))
	return s
}

// Store returns the read side of the model.
func (s *Service) Store() *Store {
	return s.store
}

// Snapshot returns copies of every node and committed edge.
func (s *Service) Snapshot() ([]*model.Node, []*model.Edge) {
	return s.store.GetAllNodes(), s.store.GetAllEdges()
}

// Validate runs the consistency validator over the current model.
func (s *Service) Validate() (*constraints.ValidationResult, error) {
	return constraints.DefaultValidator().Validate(s.store)
}

// Load replaces the store with the collaborator's data. Data with blocking
// violations is rejected as a whole with a *ValidationError.
func (s *Service) Load(ctx context.Context) error {
	start := time.Now()

	var nodes []*model.Node
	var edges []*model.Edge
	err := s.persist(persistence.OpListNodes, func() (err error) {
		nodes, err = s.client.ListNodes(ctx)
		return err
	})
	if err == nil {
		err = s.persist(persistence.OpListEdges, func() (err error) {
			edges, err = s.client.ListEdges(ctx)
			return err
		})
	}
	if err != nil {
		return s.finish(OpLoad, start, relations.PersistenceError(OpLoad, "", err), "")
	}

	if violations := blocking(constraints.Validate(nodes, edges)); len(violations) > 0 {
		return s.finish(OpLoad, start, &ValidationError{Op: OpLoad, Violations: violations}, "")
	}

	s.store.replace(nodes, edges)
	return s.finish(OpLoad, start, nil,
		fmt.Sprintf("Loaded %d nodes and %d relations", len(nodes), len(edges)))
}

// CreateNode persists a new node with empty relations.
func (s *Service) CreateNode(ctx context.Context, kind schema.NodeKind, aspect model.Aspect, name string) (*model.Node, error) {
	start := time.Now()

	if !kind.Valid() {
		return nil, s.finish(OpCreateNode, start,
			fmt.Errorf("%w: %q", schema.ErrUnknownNodeKind, string(kind)), "")
	}
	if !aspect.Valid() {
		return nil, s.finish(OpCreateNode, start, fmt.Errorf("unknown aspect %q", string(aspect)), "")
	}

	node := model.NewNode(s.newID(), kind, aspect, name)
	err := s.persist(persistence.OpCreateNode, func() error {
		_, err := s.client.CreateNode(ctx, node)
		return err
	})
	if err != nil {
		return nil, s.finish(OpCreateNode, start, relations.PersistenceError(OpCreateNode, "", err), "")
	}

	s.store.insertNode(node)
	return node.Clone(), s.finish(OpCreateNode, start, nil, fmt.Sprintf("Created %s", node.Label()))
}

// Connect resolves a connection gesture and commits the edge when the kind is
// determined. An ambiguous gesture returns the candidates and changes nothing.
func (s *Service) Connect(ctx context.Context, sourceID, targetID string, cc relations.ConnectionContext) (relations.Resolution, *model.Edge, error) {
	start := time.Now()

	source, _ := s.store.GetNode(sourceID)
	target, _ := s.store.GetNode(targetID)
	res := s.resolver.Resolve(source, target, cc)
	if s.metrics != nil {
		s.metrics.RecordResolverOutcome(res.Outcome.String())
	}

	switch res.Outcome {
	case relations.Rejected:
		return res, nil, s.finish(OpConnect, start, res.Err, "")
	case relations.Ambiguous:
		s.logger.Debug("connection needs a relation kind",
			logging.NodeID(sourceID), logging.String("partner_id", targetID),
			logging.Any("candidates", res.Candidates))
		return res, nil, nil
	}

	edge, err := s.commit(ctx, sourceID, targetID, res.Kind, res.LockConnection)
	return res, edge, s.finish(OpConnect, start, err, s.connectedMessage(edge))
}

// ConnectAs commits an edge of a kind the caller has already chosen. The edge
// is locked only when the node kinds admit no other kind.
func (s *Service) ConnectAs(ctx context.Context, sourceID, targetID string, kind schema.EdgeKind) (*model.Edge, error) {
	start := time.Now()
	edge, err := s.commit(ctx, sourceID, targetID, kind, false)
	return edge, s.finish(OpConnect, start, err, s.connectedMessage(edge))
}

// DeleteEdge retracts an edge and removes it.
func (s *Service) DeleteEdge(ctx context.Context, id string) error {
	start := time.Now()

	edge, err := s.lookupEdge(relations.OpRetract, id)
	if err != nil {
		return s.finish(OpDeleteEdge, start, err, "")
	}
	keys := []string{edgeKey(id), nodeKey(edge.Source), nodeKey(edge.Target)}
	if err := s.acquire(string(relations.OpRetract), keys...); err != nil {
		return s.finish(OpDeleteEdge, start, err, "")
	}
	defer s.store.release(keys...)

	msg := fmt.Sprintf("Removed %s relation between %s and %s",
		edge.Kind, s.store.Label(edge.Source), s.store.Label(edge.Target))
	return s.finish(OpDeleteEdge, start, s.retract(ctx, id), msg)
}

// RetypeEdge moves an unlocked edge to a new kind.
func (s *Service) RetypeEdge(ctx context.Context, id string, kind schema.EdgeKind) (*model.Edge, error) {
	start := time.Now()
	op := string(relations.OpRetype)

	edge, err := s.lookupEdge(relations.OpRetype, id)
	if err != nil {
		return nil, s.finish(OpRetypeEdge, start, err, "")
	}
	keys := []string{edgeKey(id), nodeKey(edge.Source), nodeKey(edge.Target)}
	if err := s.acquire(op, keys...); err != nil {
		return nil, s.finish(OpRetypeEdge, start, err, "")
	}
	defer s.store.release(keys...)

	retyped, err := s.retype(ctx, id, kind)
	if err != nil {
		return nil, s.finish(OpRetypeEdge, start, err, "")
	}
	msg := fmt.Sprintf("Changed relation between %s and %s to %s",
		s.store.Label(retyped.Source), s.store.Label(retyped.Target), retyped.Kind)
	return retyped, s.finish(OpRetypeEdge, start, nil, msg)
}

// DeleteNode retracts every incident edge and then deletes the node. Each edge
// is retracted in its own transaction, so a failure part way leaves the edges
// already removed consistently retracted and the node in place.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	start := time.Now()

	node, ok := s.store.GetNode(id)
	if !ok {
		return s.finish(OpDeleteNode, start, nodeNotFound(OpDeleteNode, id), "")
	}

	incident := s.store.IncidentEdges(id)
	keys := []string{nodeKey(id)}
	seen := map[string]bool{nodeKey(id): true}
	for _, e := range incident {
		for _, k := range []string{edgeKey(e.ID), nodeKey(e.Other(id))} {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if err := s.acquire(OpDeleteNode, keys...); err != nil {
		return s.finish(OpDeleteNode, start, err, "")
	}
	defer s.store.release(keys...)

	for i, e := range incident {
		if i > 0 {
			ctx = context.WithoutCancel(ctx)
		}
		if err := s.retract(ctx, e.ID); err != nil {
			return s.finish(OpDeleteNode, start, err, "")
		}
	}
	if len(incident) > 0 {
		ctx = context.WithoutCancel(ctx)
	}

	err := s.persist(persistence.OpDeleteNode, func() error {
		_, err := s.client.DeleteNode(ctx, id)
		return err
	})
	if err != nil {
		return s.finish(OpDeleteNode, start, relations.PersistenceError(OpDeleteNode, "", err), "")
	}

	s.store.deleteNode(id)
	return s.finish(OpDeleteNode, start, nil, fmt.Sprintf("Deleted %s", node.Label()))
}

// Import adds a validated set of nodes and edges. The combined model must be
// free of blocking violations; otherwise nothing is stored. A persistence failure
// part way removes what was already created.
func (s *Service) Import(ctx context.Context, nodes []*model.Node, edges []*model.Edge) error {
	start := time.Now()

	allNodes := append(s.store.GetAllNodes(), nodes...)
	allEdges := append(s.store.GetAllEdges(), edges...)
	if violations := blocking(constraints.Validate(allNodes, allEdges)); len(violations) > 0 {
		if s.metrics != nil {
			counts := make(map[string]int)
			for _, v := range violations {
				counts[v.Type.String()]++
			}
			s.metrics.RecordImportViolations(counts)
		}
		return s.finish(OpImport, start, &ValidationError{Op: OpImport, Violations: violations}, "")
	}
	for _, e := range edges {
		if err := s.store.checkTransition(relations.OpCommit, e.ID); err != nil {
			return s.finish(OpImport, start, err, "")
		}
	}

	steps := make([]step, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		n := n
		steps = append(steps, step{
			op: persistence.OpCreateNode,
			do: func(ctx context.Context) error {
				_, err := s.client.CreateNode(ctx, n)
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := s.client.DeleteNode(ctx, n.ID)
				return err
			},
		})
	}
	for _, e := range edges {
		e := e
		steps = append(steps, step{
			op: persistence.OpCreateEdge,
			do: func(ctx context.Context) error {
				_, err := s.client.CreateEdge(ctx, e)
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := s.client.DeleteEdge(ctx, e.ID)
				return err
			},
		})
	}
	if err := s.run(ctx, OpImport, "", steps); err != nil {
		return s.finish(OpImport, start, err, "")
	}

	s.store.add(nodes, edges)
	return s.finish(OpImport, start, nil,
		fmt.Sprintf("Imported %d nodes and %d relations", len(nodes), len(edges)))
}

// commit creates an edge of kind between two stored nodes.
func (s *Service) commit(ctx context.Context, sourceID, targetID string, kind schema.EdgeKind, lock bool) (*model.Edge, error) {
	op := string(relations.OpCommit)

	keys := []string{nodeKey(sourceID), nodeKey(targetID)}
	if err := s.acquire(op, keys...); err != nil {
		return nil, err
	}
	defer s.store.release(keys...)

	source, ok := s.store.GetNode(sourceID)
	if !ok {
		return nil, nodeNotFound(op, sourceID)
	}
	target, ok := s.store.GetNode(targetID)
	if !ok {
		return nil, nodeNotFound(op, targetID)
	}
	// A pair that admits a single kind is structural whoever picked the kind.
	lock = lock || len(schema.Allowed(source.Kind, target.Kind)) == 1
	if existing, dup := s.store.FindEdge(kind, sourceID, targetID); dup {
		return nil, relations.NewError(op).Kind(kind).Edge(existing.ID).Node(sourceID).Partner(targetID).
			Cause(relations.ErrEdgeState).
			Messagef("%s is already related to %s by %s", source.Label(), target.Label(), kind).Err()
	}

	edge := &model.Edge{ID: s.newID(), Kind: kind, Source: sourceID, Target: targetID, LockConnection: lock}
	if err := s.store.checkTransition(relations.OpCommit, edge.ID); err != nil {
		return nil, err
	}
	change, err := s.mutator.Commit(edge, kind, source, target)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, change, source, target); err != nil {
		return nil, err
	}
	return change.Edge.Clone(), nil
}

// retract removes a committed edge. Callers hold the busy keys.
func (s *Service) retract(ctx context.Context, id string) error {
	if err := s.store.checkTransition(relations.OpRetract, id); err != nil {
		return err
	}
	edge, _ := s.store.GetEdge(id)
	source, _ := s.store.GetNode(edge.Source)
	target, _ := s.store.GetNode(edge.Target)

	change, err := s.mutator.Retract(edge, source, target)
	if err != nil {
		return err
	}
	return s.execute(ctx, change, source, target)
}

// retype changes the kind of a committed edge. Callers hold the busy keys.
func (s *Service) retype(ctx context.Context, id string, kind schema.EdgeKind) (*model.Edge, error) {
	op := string(relations.OpRetype)
	if err := s.store.checkTransition(relations.OpRetype, id); err != nil {
		return nil, err
	}
	edge, _ := s.store.GetEdge(id)
	source, _ := s.store.GetNode(edge.Source)
	target, _ := s.store.GetNode(edge.Target)

	if existing, dup := s.store.FindEdge(kind, edge.Source, edge.Target); dup && existing.ID != id {
		return nil, relations.NewError(op).Kind(kind).Edge(id).Node(edge.Source).Partner(edge.Target).
			Cause(relations.ErrEdgeState).
			Messagef("%s is already related to %s by %s", source.Label(), target.Label(), kind).Err()
	}

	change, err := s.mutator.Retype(edge, kind, source, target)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, change, source, target); err != nil {
		return nil, err
	}
	return change.Edge.Clone(), nil
}

// execute persists a planned change and applies it to the store. Commit and
// retype write the edge first and the endpoints after; retract cleans the
// endpoints before deleting the edge. source and target are the endpoint states
// before the change and are used to restore them on failure.
func (s *Service) execute(ctx context.Context, c *relations.Change, source, target *model.Node) error {
	var edgeStep step
	switch c.Op {
	case relations.OpCommit:
		edgeStep = step{
			op: persistence.OpCreateEdge,
			do: func(ctx context.Context) error {
				_, err := s.client.CreateEdge(ctx, c.Edge)
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := s.client.DeleteEdge(ctx, c.Edge.ID)
				return err
			},
		}
	case relations.OpRetype:
		edgeStep = step{
			op: persistence.OpUpdateEdge,
			do: func(ctx context.Context) error {
				_, err := s.client.UpdateEdge(ctx, c.Edge)
				return err
			},
			undo: func(ctx context.Context) error {
				_, err := s.client.UpdateEdge(ctx, c.Previous)
				return err
			},
		}
	case relations.OpRetract:
		edgeStep = step{
			op: persistence.OpDeleteEdge,
			do: func(ctx context.Context) error {
				_, err := s.client.DeleteEdge(ctx, c.Edge.ID)
				return err
			},
		}
	}

	var nodeSteps []step
	if c.Source != nil && !c.SourcePatch.Empty() {
		nodeSteps = append(nodeSteps, s.updateStep(c.Source.ID, c.SourcePatch, model.PatchOf(source, c.SourcePatch.Fields...)))
	}
	if c.Target != nil && !c.TargetPatch.Empty() {
		nodeSteps = append(nodeSteps, s.updateStep(c.Target.ID, c.TargetPatch, model.PatchOf(target, c.TargetPatch.Fields...)))
	}

	var steps []step
	if c.Op == relations.OpRetract {
		steps = append(nodeSteps, edgeStep)
	} else {
		steps = append([]step{edgeStep}, nodeSteps...)
	}

	if err := s.run(ctx, string(c.Op), c.Edge.ID, steps); err != nil {
		return err
	}
	s.store.apply(c)
	return nil
}

func (s *Service) updateStep(id string, patch, restore model.Patch) step {
	return step{
		op: persistence.OpUpdateNode,
		do: func(ctx context.Context) error {
			_, err := s.client.UpdateNode(ctx, id, patch)
			return err
		},
		undo: func(ctx context.Context) error {
			_, err := s.client.UpdateNode(ctx, id, restore)
			return err
		},
	}
}

// step is one persistence call of a transaction and the call that reverts it.
type step struct {
	op   string
	do   func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// run performs steps in order. Only the first step observes ctx cancellation;
// once it has been dispatched the rest run to completion. On failure the steps
// already done are undone in reverse order.
func (s *Service) run(ctx context.Context, op, edgeID string, steps []step) error {
	done := make([]step, 0, len(steps))
	for i, st := range steps {
		if i > 0 {
			ctx = context.WithoutCancel(ctx)
		}
		st := st
		if err := s.persist(st.op, func() error { return st.do(ctx) }); err != nil {
			s.compensate(context.WithoutCancel(ctx), op, done)
			return relations.PersistenceError(op, edgeID, err)
		}
		done = append(done, st)
	}
	return nil
}

// compensate reverts completed steps, newest first. Failures are logged and
// counted; there is nothing more to do about them.
func (s *Service) compensate(ctx context.Context, op string, done []step) {
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.undo == nil {
			continue
		}
		status := "success"
		if err := s.persist(st.op, func() error { return st.undo(ctx) }); err != nil {
			status = "failed"
			s.logger.Error("compensation failed",
				logging.Operation(op), logging.String("call", st.op), logging.Error(err))
		}
		if s.metrics != nil {
			s.metrics.CompensationsTotal.WithLabelValues(status).Inc()
		}
	}
}

// persist times one collaborator call.
func (s *Service) persist(op string, call func() error) error {
	start := time.Now()
	err := call()
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordPersistenceCall(op, status, time.Since(start))
	}
	return err
}

// finish reports the outcome of an operation: one notification, one log line
// and the operation metrics.
func (s *Service) finish(op string, start time.Time, err error, success string) error {
	elapsed := time.Since(start)

	status := "success"
	switch {
	case err == nil:
		s.logger.Info(success, logging.Operation(op), logging.Latency(elapsed))
		if success != "" {
			s.notifier.NotifySuccess(success)
		}
	case errors.Is(err, relations.ErrPersistenceFailure):
		status = "failed"
		s.logger.Error("operation failed", logging.Operation(op), logging.Error(err), logging.Latency(elapsed))
		s.notifier.NotifyError(relations.UserMessage(err))
		if s.metrics != nil {
			s.metrics.PersistenceFailuresTotal.WithLabelValues(op).Inc()
		}
	default:
		status = "rejected"
		s.logger.Warn("operation rejected", logging.Operation(op), logging.Error(err), logging.Latency(elapsed))
		s.notifier.NotifyError(relations.UserMessage(err))
	}

	if s.metrics != nil {
		s.metrics.RecordRelationOperation(op, status, reason(err), elapsed)
		s.metrics.SetModelSize(s.store.Len())
	}
	return err
}

func (s *Service) acquire(op string, keys ...string) error {
	if err := s.store.acquire(keys...); err != nil {
		return relations.NewError(op).Cause(err).
			Messagef("another change to the same element is still being saved").Err()
	}
	return nil
}

// lookupEdge returns a committed edge or the error explaining why it cannot be
// used by op.
func (s *Service) lookupEdge(op relations.Op, id string) (*model.Edge, error) {
	if edge, ok := s.store.GetEdge(id); ok {
		return edge, nil
	}
	if err := s.store.checkTransition(op, id); err != nil {
		return nil, err
	}
	return nil, relations.NewError(string(op)).Edge(id).Cause(relations.ErrEdgeNotFound).
		Messagef("edge %s does not exist", id).Err()
}

func (s *Service) connectedMessage(edge *model.Edge) string {
	if edge == nil {
		return ""
	}
	return fmt.Sprintf("Connected %s to %s as %s",
		s.store.Label(edge.Source), s.store.Label(edge.Target), edge.Kind)
}

func nodeNotFound(op, id string) error {
	return relations.NewError(op).Node(id).Cause(relations.ErrNodeNotFound).
		Messagef("node %s does not exist", id).Err()
}
