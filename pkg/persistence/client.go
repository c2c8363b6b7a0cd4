// Package persistence provides the clients the relation core uses to store nodes
// and edges durably.
package persistence

import (
	"context"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// Client is the persistence collaborator. Every call is a round trip that either
// completes or fails; a failed call must leave the backend unchanged.
type Client interface {
	ListNodes(ctx context.Context) ([]*model.Node, error)
	ListEdges(ctx context.Context) ([]*model.Edge, error)

	CreateNode(ctx context.Context, node *model.Node) (*model.Node, error)
	// UpdateNode applies patch to the relation fields it lists and returns the
	// stored node.
	UpdateNode(ctx context.Context, id string, patch model.Patch) (*model.Node, error)
	DeleteNode(ctx context.Context, id string) (string, error)

	CreateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error)
	UpdateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error)
	DeleteEdge(ctx context.Context, id string) (string, error)

	Close() error
}

// Operation names used in errors, metrics and fault injection.
const (
	OpListNodes  = "ListNodes"
	OpListEdges  = "ListEdges"
	OpCreateNode = "CreateNode"
	OpUpdateNode = "UpdateNode"
	OpDeleteNode = "DeleteNode"
	OpCreateEdge = "CreateEdge"
	OpUpdateEdge = "UpdateEdge"
	OpDeleteEdge = "DeleteEdge"
)
