// Command modeler-server shares one model store between editors over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-modeler/pkg/api"
	"github.com/dd0wney/cluso-modeler/pkg/auth"
	"github.com/dd0wney/cluso-modeler/pkg/config"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
	"github.com/dd0wney/cluso-modeler/pkg/server"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(nil)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command. started, when set, receives the server once
// it has been created.
func newRootCmd(started chan<- *server.GracefulServer) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "modeler-server",
		Short:         "Serve a model store to editors over HTTP.",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfgFile, cfg, cmd.OutOrStdout(), started)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./modeler.yaml)")
	return cmd
}

func serve(ctx context.Context, cfgFile string, cfg *config.Config, out io.Writer, started chan<- *server.GracefulServer) error {
	logger := logging.NewWithWriter(cfg.Logger, out)
	defer func() { _ = logger.Sync() }()

	logger.Info("modeler server starting",
		logging.String("version", Version),
		logging.String("backend", cfg.Persistence.Backend),
		logging.Bool("auth", cfg.Server.AuthEnabled()))

	backend, err := persistence.Open(ctx, cfg.Persistence)
	if err != nil {
		return fmt.Errorf("opening %s backend: %w", cfg.Persistence.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing backend", logging.Error(err))
		}
	}()

	apiCfg := api.Config{
		Backend:      backend,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		TLS:          cfg.Server.TLS,
	}
	if cfg.Metrics.Enabled {
		apiCfg.Metrics = metrics.NewRegistry()
	}
	if cfg.Server.AuthEnabled() {
		users, jwt, err := buildAuth(cfg.Server)
		if err != nil {
			return err
		}
		apiCfg.Users, apiCfg.JWT = users, jwt
	} else {
		logger.Warn("authentication disabled: server.jwt_secret is not set")
	}

	srv, err := api.NewServer(apiCfg)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, srv.Handler(), logger)
	gs.SetShutdownTimeout(cfg.Server.ShutdownTimeout)
	gs.SetConfigReloadFunc(func() error {
		next, err := config.Load(cfgFile)
		if err != nil {
			logger.Error("config reload failed", logging.Error(err))
			return err
		}
		logger.SetLevel(logging.ParseLevel(next.Logger.Level))
		logger.Info("config reloaded", logging.String("level", next.Logger.Level))
		return nil
	})
	if started != nil {
		started <- gs
	}

	if err := gs.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("modeler server stopped")
	return nil
}

// buildAuth creates the user store from the configured accounts.
func buildAuth(cfg config.ServerConfig) (*auth.UserStore, *auth.JWTManager, error) {
	jwt, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	if err != nil {
		return nil, nil, err
	}
	users := auth.NewUserStore(cfg.BcryptCost)
	var errs []error
	for _, u := range cfg.Users {
		if _, err := users.AddUser(u.Username, u.PasswordHash, u.Role); err != nil {
			errs = append(errs, fmt.Errorf("user %q: %w", u.Username, err))
		}
	}
	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return users, jwt, nil
}
