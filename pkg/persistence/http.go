package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// HTTPClient talks to the REST store served by pkg/api.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) HTTPOption {
	return func(c *HTTPClient) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.client = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// NewHTTPClient creates a client for the store rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid store URL %q: scheme must be http or https", baseURL)
	}
	c := &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// errorBody mirrors the REST store's error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type deleteBody struct {
	ID string `json:"id"`
}

func (c *HTTPClient) do(ctx context.Context, op, entity, id, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return TransportError(op, entity, id, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return TransportError(op, entity, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(op, entity, id, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return TransportError(op, entity, id, fmt.Errorf("invalid response body: %w", err))
	}
	return nil
}

func statusError(op, entity, id string, resp *http.Response) error {
	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &eb); err != nil || eb.Message == "" {
		eb.Message = strings.TrimSpace(string(data))
	}
	detail := fmt.Sprintf("%s: %s", resp.Status, eb.Message)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusConflict:
		sentinel = ErrConflict
	default:
		return TransportError(op, entity, id, errors.New(detail))
	}
	return NewError(op).entity(entity, id).Cause(fmt.Errorf("%w: %s", sentinel, detail)).Err()
}

func (c *HTTPClient) ListNodes(ctx context.Context) ([]*model.Node, error) {
	var nodes []*model.Node
	if err := c.do(ctx, OpListNodes, "node", "", http.MethodGet, "/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *HTTPClient) ListEdges(ctx context.Context) ([]*model.Edge, error) {
	var edges []*model.Edge
	if err := c.do(ctx, OpListEdges, "edge", "", http.MethodGet, "/edges", nil, &edges); err != nil {
		return nil, err
	}
	return edges, nil
}

func (c *HTTPClient) CreateNode(ctx context.Context, node *model.Node) (*model.Node, error) {
	out := &model.Node{}
	if err := c.do(ctx, OpCreateNode, "node", node.ID, http.MethodPost, "/nodes", node, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateNode(ctx context.Context, id string, patch model.Patch) (*model.Node, error) {
	out := &model.Node{}
	if err := c.do(ctx, OpUpdateNode, "node", id, http.MethodPatch, "/nodes/"+url.PathEscape(id), patch, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteNode(ctx context.Context, id string) (string, error) {
	var out deleteBody
	if err := c.do(ctx, OpDeleteNode, "node", id, http.MethodDelete, "/nodes/"+url.PathEscape(id), nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) CreateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	out := &model.Edge{}
	if err := c.do(ctx, OpCreateEdge, "edge", edge.ID, http.MethodPost, "/edges", edge, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateEdge(ctx context.Context, edge *model.Edge) (*model.Edge, error) {
	out := &model.Edge{}
	if err := c.do(ctx, OpUpdateEdge, "edge", edge.ID, http.MethodPut, "/edges/"+url.PathEscape(edge.ID), edge, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteEdge(ctx context.Context, id string) (string, error) {
	var out deleteBody
	if err := c.do(ctx, OpDeleteEdge, "edge", id, http.MethodDelete, "/edges/"+url.PathEscape(id), nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
