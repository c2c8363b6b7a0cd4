package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

// DBPool abstracts pgxpool.Pool so the client can be tested with a mock pool.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PGClient stores nodes and edges in PostgreSQL. Relation fields live in a JSONB
// column so a patch can replace the fields it lists in one statement.
type PGClient struct {
	pool DBPool
}

// NewPGClient connects to databaseURL, verifies the connection and creates the
// tables if needed.
func NewPGClient(ctx context.Context, databaseURL string) (*PGClient, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	c, err := NewPGClientWithPool(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// NewPGClientWithPool wraps an existing pool.
func NewPGClientWithPool(ctx context.Context, pool DBPool) (*PGClient, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	c := &PGClient{pool: pool}
	if err := c.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return c, nil
}

const pgSchema = `
	CREATE TABLE IF NOT EXISTS modeler_nodes (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		aspect TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		relations JSONB NOT NULL DEFAULT '{}'::jsonb,
		seq BIGSERIAL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS modeler_edges (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		lock_connection BOOLEAN NOT NULL DEFAULT false,
		seq BIGSERIAL
	);

	CREATE INDEX IF NOT EXISTS idx_modeler_edges_source ON modeler_edges(source);
	CREATE INDEX IF NOT EXISTS idx_modeler_edges_target ON modeler_edges(target);
	`

// migrate creates the necessary database tables
func (c *PGClient) migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, pgSchema)
	return err
}

// Ping checks database connectivity
func (c *PGClient) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

const (
	pgSelectNodes = `SELECT id, kind, aspect, name, relations FROM modeler_nodes ORDER BY seq`
	pgSelectEdges = `SELECT id, kind, source, target, lock_connection FROM modeler_edges ORDER BY seq`
	pgInsertNode  = `INSERT INTO modeler_nodes (id, kind, aspect, name, relations) VALUES ($1, $2, $3, $4, $5)`
	pgUpdateNode  = `
		UPDATE modeler_nodes
		SET relations = (relations - $2::text[]) || $3::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING id, kind, aspect, name, relations`
	pgDeleteNode = `DELETE FROM modeler_nodes WHERE id = $1`
	pgInsertEdge = `INSERT INTO modeler_edges (id, kind, source, target, lock_connection) VALUES ($1, $2, $3, $4, $5)`
	pgUpdateEdge = `UPDATE modeler_edges SET kind = $2, source = $3, target = $4, lock_connection = $5 WHERE id = $1`
	pgDeleteEdge = `DELETE FROM modeler_edges WHERE id = $1`
)

func (c *PGClient) ListNodes(ctx context.Context) ([]*model.Node, error) {
	rows, err := c.pool.Query(ctx, pgSelectNodes)
	if err != nil {
		return nil, pgError(OpListNodes, "node", "", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, pgError(OpListNodes, "node", "", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(OpListNodes, "node", "", err)
	}
	return nodes, nil
}

func (c *PGClient) ListEdges(ctx context.Context) ([]*model.Edge, error) {
	rows, err := c.pool.Query(ctx, pgSelectEdges)
	if err != nil {
		return nil, pgError(OpListEdges, "edge", "", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		e := &model.Edge{}
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Source, &e.Target, &e.LockConnection); err != nil {
			return nil, pgError(OpListEdges, "edge", "", err)
		}
		e.Kind = schema.EdgeKind(kind)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError(OpListEdges, "edge", "", err)
	}
	return edges, nil
}

func (c *PGClient) CreateNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	relations, err := json.Marshal(node.Relations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relations: %w", err)
	}
	_, err = c.pool.Exec(ctx, pgInsertNode,
		node.ID, string(node.Kind), string(node.Aspect), node.Name, string(relations))
	if err != nil {
		return nil, pgError(OpCreateNode, "node", node.ID, err)
	}
	return node.Clone(), nil
}

func (c *PGClient) UpdateNode(ctx context.Context, id string, patch model.Patch) (*model.Node, error) {
	fields := make([]string, 0, len(patch.Fields))
	for _, f := range patch.Fields {
		fields = append(fields, string(f))
	}
	values, err := json.Marshal(patch.Relations)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}

	n, err := scanNode(c.pool.QueryRow(ctx, pgUpdateNode, id, fields, string(values)))
	if err != nil {
		return nil, pgError(OpUpdateNode, "node", id, err)
	}
	return n, nil
}

func (c *PGClient) DeleteNode(ctx context.Context, id string) (string, error) {
	tag, err := c.pool.Exec(ctx, pgDeleteNode, id)
	if err != nil {
		return "", pgError(OpDeleteNode, "node", id, err)
	}
	if tag.RowsAffected() == 0 {
		return "", NodeNotFoundError(OpDeleteNode, id)
	}
	return id, nil
}

func (c *PGClient) CreateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	_, err := c.pool.Exec(ctx, pgInsertEdge,
		edge.ID, string(edge.Kind), edge.Source, edge.Target, edge.LockConnection)
	if err != nil {
		return nil, pgError(OpCreateEdge, "edge", edge.ID, err)
	}
	return edge.Clone(), nil
}

func (c *PGClient) UpdateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	tag, err := c.pool.Exec(ctx, pgUpdateEdge,
		edge.ID, string(edge.Kind), edge.Source, edge.Target, edge.LockConnection)
	if err != nil {
		return nil, pgError(OpUpdateEdge, "edge", edge.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, EdgeNotFoundError(OpUpdateEdge, edge.ID)
	}
	return edge.Clone(), nil
}

func (c *PGClient) DeleteEdge(ctx context.Context, id string) (string, error) {
	tag, err := c.pool.Exec(ctx, pgDeleteEdge, id)
	if err != nil {
		return "", pgError(OpDeleteEdge, "edge", id, err)
	}
	if tag.RowsAffected() == 0 {
		return "", EdgeNotFoundError(OpDeleteEdge, id)
	}
	return id, nil
}

// Close closes the database connection pool
func (c *PGClient) Close() error {
	c.pool.Close()
	return nil
}

func scanNode(row pgx.Row) (*model.Node, error) {
	n := &model.Node{}
	var kind, aspect string
	var relations []byte
	if err := row.Scan(&n.ID, &kind, &aspect, &n.Name, &relations); err != nil {
		return nil, err
	}
	n.Kind = schema.NodeKind(kind)
	n.Aspect = model.Aspect(aspect)
	if len(relations) > 0 {
		if err := json.Unmarshal(relations, &n.Relations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal relations: %w", err)
		}
	}
	return n, nil
}

// pgError maps driver errors onto the persistence taxonomy.
func pgError(op, entity, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NewError(op).entity(entity, id).Cause(ErrNotFound).Err()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return NewError(op).entity(entity, id).Cause(fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)).Err()
		case "28000", "28P01": // invalid authorization
			return NewError(op).entity(entity, id).Cause(fmt.Errorf("%w: %s", ErrUnauthorized, pgErr.Message)).Err()
		}
	}
	return TransportError(op, entity, id, err)
}
