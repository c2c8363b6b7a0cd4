package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

//go:embed sqlite_pragmas.sql
var sqlitePragmas string

// SQLiteClient stores a model in a single SQLite file.
type SQLiteClient struct {
	conn *sql.DB
	mu   sync.Mutex
	path string
}

// OpenSQLite opens or creates the database at path. Use ":memory:" for a
// throwaway database.
func OpenSQLite(path string) (*SQLiteClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	conn.SetMaxOpenConns(1)

	for _, pragma := range strings.Split(sqlitePragmas, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLiteClient{conn: conn, path: path}, nil
}

// Path returns the database location.
func (c *SQLiteClient) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *SQLiteClient) Close() error {
	return c.conn.Close()
}

func (c *SQLiteClient) ListNodes(ctx context.Context) ([]*model.Node, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, kind, aspect, name, relations FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, sqliteError(OpListNodes, "node", "", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		n, err := scanSQLiteNode(rows)
		if err != nil {
			return nil, sqliteError(OpListNodes, "node", "", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError(OpListNodes, "node", "", err)
	}
	return nodes, nil
}

func (c *SQLiteClient) ListEdges(ctx context.Context) ([]*model.Edge, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, kind, source, target, lock_connection FROM edges ORDER BY seq`)
	if err != nil {
		return nil, sqliteError(OpListEdges, "edge", "", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		e := &model.Edge{}
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Source, &e.Target, &e.LockConnection); err != nil {
			return nil, sqliteError(OpListEdges, "edge", "", err)
		}
		e.Kind = schema.EdgeKind(kind)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError(OpListEdges, "edge", "", err)
	}
	return edges, nil
}

func (c *SQLiteClient) CreateNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	relations, err := json.Marshal(node.Relations)
	if err != nil {
		return nil, fmt.Errorf("marshaling relations: %w", err)
	}
	_, err = c.conn.ExecContext(ctx,
		`INSERT INTO nodes (id, kind, aspect, name, relations) VALUES (?, ?, ?, ?, ?)`,
		node.ID, string(node.Kind), string(node.Aspect), node.Name, string(relations))
	if err != nil {
		return nil, sqliteError(OpCreateNode, "node", node.ID, err)
	}
	return node.Clone(), nil
}

// UpdateNode reads the stored relations, applies the patch and writes them back
// in one transaction.
func (c *SQLiteClient) UpdateNode(ctx context.Context, id string, patch model.Patch) (*model.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, sqliteError(OpUpdateNode, "node", id, err)
	}
	defer tx.Rollback()

	n, err := scanSQLiteNode(tx.QueryRowContext(ctx,
		`SELECT id, kind, aspect, name, relations FROM nodes WHERE id = ?`, id))
	if err != nil {
		return nil, sqliteError(OpUpdateNode, "node", id, err)
	}
	patch.Apply(n)

	relations, err := json.Marshal(n.Relations)
	if err != nil {
		return nil, fmt.Errorf("marshaling relations: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET relations = ? WHERE id = ?`, string(relations), id); err != nil {
		return nil, sqliteError(OpUpdateNode, "node", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, sqliteError(OpUpdateNode, "node", id, err)
	}
	return n, nil
}

func (c *SQLiteClient) DeleteNode(ctx context.Context, id string) (string, error) {
	result, err := c.conn.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return "", sqliteError(OpDeleteNode, "node", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", NodeNotFoundError(OpDeleteNode, id)
	}
	return id, nil
}

func (c *SQLiteClient) CreateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	_, err := c.conn.ExecContext(ctx,
		`INSERT INTO edges (id, kind, source, target, lock_connection) VALUES (?, ?, ?, ?, ?)`,
		edge.ID, string(edge.Kind), edge.Source, edge.Target, edge.LockConnection)
	if err != nil {
		return nil, sqliteError(OpCreateEdge, "edge", edge.ID, err)
	}
	return edge.Clone(), nil
}

func (c *SQLiteClient) UpdateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	result, err := c.conn.ExecContext(ctx,
		`UPDATE edges SET kind = ?, source = ?, target = ?, lock_connection = ? WHERE id = ?`,
		string(edge.Kind), edge.Source, edge.Target, edge.LockConnection, edge.ID)
	if err != nil {
		return nil, sqliteError(OpUpdateEdge, "edge", edge.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, EdgeNotFoundError(OpUpdateEdge, edge.ID)
	}
	return edge.Clone(), nil
}

func (c *SQLiteClient) DeleteEdge(ctx context.Context, id string) (string, error) {
	result, err := c.conn.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return "", sqliteError(OpDeleteEdge, "edge", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", EdgeNotFoundError(OpDeleteEdge, id)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteNode(row rowScanner) (*model.Node, error) {
	n := &model.Node{}
	var kind, aspect, relations string
	if err := row.Scan(&n.ID, &kind, &aspect, &n.Name, &relations); err != nil {
		return nil, err
	}
	n.Kind = schema.NodeKind(kind)
	n.Aspect = model.Aspect(aspect)
	if relations != "" {
		if err := json.Unmarshal([]byte(relations), &n.Relations); err != nil {
			return nil, fmt.Errorf("unmarshaling relations: %w", err)
		}
	}
	return n, nil
}

func sqliteError(op, entity, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(op).entity(entity, id).Cause(ErrNotFound).Err()
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return NewError(op).entity(entity, id).Cause(fmt.Errorf("%w: %v", ErrConflict, err)).Err()
	}
	return TransportError(op, entity, id, err)
}
