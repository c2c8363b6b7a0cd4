package persistence

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

// Config selects and configures a persistence backend.
type Config struct {
	Backend string        `mapstructure:"backend" yaml:"backend" validate:"required,oneof=memory sqlite postgres http"`
	DSN     string        `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Path    string        `mapstructure:"path" yaml:"path,omitempty"`
	URL     string        `mapstructure:"url" yaml:"url,omitempty"`
	Token   string        `mapstructure:"token" yaml:"token,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// Open creates the client named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryClient(), nil
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		return OpenSQLite(cfg.Path)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a dsn")
		}
		return NewPGClient(ctx, cfg.DSN)
	case BackendHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http backend requires a url")
		}
		opts := []HTTPOption{WithToken(cfg.Token)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewHTTPClient(cfg.URL, opts...)
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Backend)
	}
}
