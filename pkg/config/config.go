// Package config loads the modeler configuration from a YAML file and
// MODELER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-modeler/pkg/auth"
	"github.com/dd0wney/cluso-modeler/pkg/export"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
	"github.com/dd0wney/cluso-modeler/pkg/validation"
)

// EnvPrefix is prepended to every environment override, e.g.
// MODELER_PERSISTENCE_BACKEND.
const EnvPrefix = "MODELER"

const redacted = "********"

// Config is the root configuration.
type Config struct {
	Logger      logging.Options    `mapstructure:"logger" yaml:"logger"`
	Persistence persistence.Config `mapstructure:"persistence" yaml:"persistence"`
	Server      ServerConfig       `mapstructure:"server" yaml:"server"`
	Notify      NotifyConfig       `mapstructure:"notify" yaml:"notify"`
	Export      ExportConfig       `mapstructure:"export" yaml:"export"`
	Metrics     MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig configures the REST store.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	JWTSecret       string        `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
	TokenDuration   time.Duration `mapstructure:"token_duration" yaml:"token_duration"`
	BcryptCost      int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	TLS             bool          `mapstructure:"tls" yaml:"tls,omitempty"`
	Users           []UserConfig  `mapstructure:"users" yaml:"users,omitempty"`
}

// AuthEnabled reports whether the store requires bearer tokens.
func (s ServerConfig) AuthEnabled() bool {
	return s.JWTSecret != ""
}

// UserConfig is an account of the REST store. Only bcrypt hashes are stored.
type UserConfig struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
	Role         string `mapstructure:"role" yaml:"role"`
}

// NotifyConfig selects where outcome notifications go besides the log.
type NotifyConfig struct {
	// NNGAddress enables a PUB socket, e.g. tcp://127.0.0.1:7755.
	NNGAddress string `mapstructure:"nng_address" yaml:"nng_address,omitempty"`
}

// ExportConfig configures the export boundary.
type ExportConfig struct {
	BaseIRI string          `mapstructure:"base_iri" yaml:"base_iri"`
	S3      export.S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// MetricsConfig toggles the Prometheus registry.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// SetDefaults registers a default for every key, which also makes each key
// reachable through its environment variable.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.name", "modeler")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.add_source", false)

	// -- Persistence --
	v.SetDefault("persistence.backend", persistence.BackendMemory)
	v.SetDefault("persistence.dsn", "")
	v.SetDefault("persistence.path", "")
	v.SetDefault("persistence.url", "")
	v.SetDefault("persistence.token", "")
	v.SetDefault("persistence.timeout", "10s")

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_duration", auth.DefaultTokenDuration)
	v.SetDefault("server.bcrypt_cost", auth.DefaultBcryptCost)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls", false)

	// -- Notify --
	v.SetDefault("notify.nng_address", "")

	// -- Export --
	v.SetDefault("export.base_iri", export.DefaultBaseIRI)
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "")
	v.SetDefault("export.s3.region", "us-east-1")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")

	// -- Metrics --
	v.SetDefault("metrics.enabled", true)
}

// NewDefaultConfig returns the configuration used when nothing is set.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewViper returns a viper instance with defaults and environment binding.
// path may be empty, in which case modeler.yaml is looked up in the working
// directory.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("modeler")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file, if any, applies environment overrides and
// validates the result. A missing default file is not an error; a missing
// explicit path is.
func Load(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return FromViper(NewViper(path))
}

// FromViper reads and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	logger := validation.NewConfigValidator("logger").
		OneOf("level", c.Logger.Level, []string{"debug", "info", "warn", "error"}).
		OneOf("format", c.Logger.Format, []string{"json", "console"})

	p := c.Persistence
	store := validation.NewConfigValidator("persistence").
		OneOf("backend", p.Backend, []string{
			persistence.BackendMemory, persistence.BackendSQLite,
			persistence.BackendPostgres, persistence.BackendHTTP,
		}).
		When(p.Backend == persistence.BackendSQLite, func(cv *validation.ConfigValidator) {
			cv.Required("path", p.Path)
		}).
		When(p.Backend == persistence.BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("dsn", p.DSN)
		}).
		When(p.Backend == persistence.BackendHTTP, func(cv *validation.ConfigValidator) {
			cv.URL("url", p.URL, "http", "https")
		})

	s := c.Server
	server := validation.NewConfigValidator("server").
		Required("addr", s.Addr).
		MinDuration("token_duration", s.TokenDuration, time.Minute).
		MinDuration("shutdown_timeout", s.ShutdownTimeout, time.Second).
		Positive("max_body_bytes", int(min(s.MaxBodyBytes, 1<<30))).
		When(s.AuthEnabled(), func(cv *validation.ConfigValidator) {
			cv.MinLength("jwt_secret", s.JWTSecret, auth.MinSecretLength)
			cv.RangeInt("bcrypt_cost", s.BcryptCost, 4, 31)
		})
	for i, u := range s.Users {
		field := fmt.Sprintf("users[%d]", i)
		server.Required(field+".username", u.Username).
			Required(field+".password_hash", u.PasswordHash).
			OneOf(field+".role", u.Role, []string{auth.RoleAdmin, auth.RoleEditor, auth.RoleViewer})
	}

	notify := validation.NewConfigValidator("notify").
		When(c.Notify.NNGAddress != "", func(cv *validation.ConfigValidator) {
			cv.URL("nng_address", c.Notify.NNGAddress, "tcp", "ipc", "inproc")
		})

	exp := validation.NewConfigValidator("export").
		Required("base_iri", c.Export.BaseIRI).
		When(c.Export.S3.Endpoint != "", func(cv *validation.ConfigValidator) {
			cv.URL("s3.endpoint", c.Export.S3.Endpoint, "http", "https")
		}).
		Custom("s3", func() error {
			if (c.Export.S3.AccessKeyID == "") != (c.Export.S3.SecretAccessKey == "") {
				return errors.New("access_key_id and secret_access_key must be set together")
			}
			return nil
		})

	return errors.Join(logger.Validate(), store.Validate(), server.Validate(), notify.Validate(), exp.Validate())
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	out.Persistence.Token = mask(out.Persistence.Token)
	out.Persistence.DSN = mask(out.Persistence.DSN)
	out.Server.JWTSecret = mask(out.Server.JWTSecret)
	out.Export.S3.SecretAccessKey = mask(out.Export.S3.SecretAccessKey)
	out.Server.Users = make([]UserConfig, len(c.Server.Users))
	for i, u := range c.Server.Users {
		u.PasswordHash = mask(u.PasswordHash)
		out.Server.Users[i] = u
	}
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// Write dumps the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
