// Package api serves a persistence backend over the REST contract spoken by
// persistence.HTTPClient, so several editors can share one model store.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-modeler/pkg/api/middleware"
	"github.com/dd0wney/cluso-modeler/pkg/auth"
	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/health"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
)

// DefaultMaxBodyBytes bounds request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// Config wires a Server.
type Config struct {
	Backend persistence.Client

	// Users and JWT enable bearer authentication. When JWT is nil every route
	// is open and /auth/token is not served.
	Users *auth.UserStore
	JWT   *auth.JWTManager

	Metrics      *metrics.Registry
	Logger       logging.Logger
	MaxBodyBytes int64
	TLS          bool
}

// Server represents the HTTP API server
type Server struct {
	backend       persistence.Client
	validator     auth.TokenValidator
	authHandler   *auth.AuthHandler
	metrics       *metrics.Registry
	healthChecker *health.HealthChecker
	logger        logging.Logger
	startTime     time.Time
	maxBodyBytes  int64
	tls           bool
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("api: a persistence backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		backend:       cfg.Backend,
		metrics:       cfg.Metrics,
		healthChecker: health.NewHealthChecker(0),
		logger:        cfg.Logger.With(logging.Component("api")),
		startTime:     time.Now(),
		maxBodyBytes:  cfg.MaxBodyBytes,
		tls:           cfg.TLS,
	}
	if cfg.JWT != nil {
		if cfg.Users == nil {
			return nil, errors.New("api: authentication requires a user store")
		}
		s.validator = cfg.JWT
		s.authHandler = auth.NewAuthHandler(cfg.Users, cfg.JWT, cfg.Logger)
		if cfg.Metrics != nil {
			s.authHandler.SetMetrics(cfg.Metrics)
		}
	}

	s.healthChecker.RegisterReadinessCheck("persistence", health.PersistenceCheck(s.ping))
	s.healthChecker.RegisterReadinessCheck("consistency", health.ConsistencyCheck(s.validate))
	s.healthChecker.RegisterLivenessCheck("memory", health.MemoryCheck())
	return s, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("/health/ready", s.healthChecker.ReadinessHandler())
	mux.HandleFunc("/health/live", s.healthChecker.LivenessHandler())
	mux.HandleFunc("/metrics", s.handleMetrics)
	if s.authHandler != nil {
		mux.Handle("/auth/token", s.authHandler)
	}

	mux.HandleFunc("/nodes", s.requireAuth(s.handleNodes))
	mux.HandleFunc("/nodes/", s.requireAuth(s.handleNode)) // /nodes/{id}
	mux.HandleFunc("/edges", s.requireAuth(s.handleEdges))
	mux.HandleFunc("/edges/", s.requireAuth(s.handleEdge)) // /edges/{id}
	mux.HandleFunc("/validate", s.requireAuth(s.handleValidate))

	var h http.Handler = mux
	h = middleware.BodySizeLimit(s.maxBodyBytes)(h)
	h = middleware.SecurityHeaders(s.tls)(h)
	h = middleware.Metrics(s.metrics, routeLabel)(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.RequestID()(h)
	h = middleware.Recovery(s.logger)(h)
	return h
}

// HealthChecker exposes the checker so callers can register extra checks.
func (s *Server) HealthChecker() *health.HealthChecker {
	return s.healthChecker
}

// routeLabel collapses ids out of the path so metric labels stay bounded.
func routeLabel(r *http.Request) string {
	p := r.URL.Path
	for _, prefix := range []string{"/nodes/", "/edges/"} {
		if strings.HasPrefix(p, prefix) && len(p) > len(prefix) {
			return prefix + "{id}"
		}
	}
	switch p {
	case "/nodes", "/edges", "/validate", "/auth/token", "/metrics",
		"/health", "/health/ready", "/health/live":
		return p
	}
	return "other"
}

func (s *Server) ping(ctx context.Context) error {
	if p, ok := s.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.backend.ListEdges(ctx)
	return err
}

// validate runs the consistency validator over everything the backend holds.
func (s *Server) validate(ctx context.Context) (*constraints.ValidationResult, error) {
	nodes, err := s.backend.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.backend.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SetModelSize(len(nodes), len(edges))
	}
	return constraints.DefaultValidator().Validate(constraints.NewSnapshot(nodes, edges))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.respondError(w, http.StatusNotFound, "Metrics are disabled")
		return
	}
	s.metrics.UpdateSystemMetrics(s.startTime)
	promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
