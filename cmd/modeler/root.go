package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-modeler/pkg/config"
	"github.com/dd0wney/cluso-modeler/pkg/graph"
	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/metrics"
	"github.com/dd0wney/cluso-modeler/pkg/notify"
	"github.com/dd0wney/cluso-modeler/pkg/persistence"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// app holds what the subcommands share. Persistence, the notifier and the
// service are set up lazily so commands such as "config show" and "watch" work
// without a backend.
type app struct {
	cfgFile string

	cfg      *config.Config
	logger   *logging.ZapLogger
	metrics  *metrics.Registry
	client   persistence.Client
	svc      *graph.Service
	notifier notify.Notifier
	stderr   io.Writer
	closers  []func() error
}

// execute runs the command line in args and releases whatever the command
// opened, also when it fails.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func newRootCmd(a *app) *cobra.Command {

	root := &cobra.Command{
		Use:           "modeler",
		Short:         "Edit and check the relations of a block/connector/terminal model.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./modeler.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newCreateNodeCmd(a),
		newConnectCmd(a),
		newDeleteEdgeCmd(a),
		newRetypeCmd(a),
		newDeleteNodeCmd(a),
		newListCmd(a),
		newValidateCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

// init loads the configuration and builds the logger. Logs go to stderr so
// command output stays machine readable.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewWithWriter(cfg.Logger, cmd.ErrOrStderr())
	a.closers = append(a.closers, func() error {
		// Syncing stderr fails on some platforms; nothing useful can be done.
		_ = a.logger.Sync()
		return nil
	})
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}
	a.stderr = cmd.ErrOrStderr()
	return nil
}

func (a *app) buildNotifier(w io.Writer) notify.Notifier {
	targets := notify.Multi{newConsoleNotifier(w)}
	if addr := a.cfg.Notify.NNGAddress; addr != "" {
		pub, err := notify.NewNNGPublisher(addr, a.logger)
		if err != nil {
			a.logger.Warn("notification socket unavailable", logging.String("address", addr), logging.Error(err))
		} else {
			targets = append(targets, pub)
			a.closers = append(a.closers, pub.Close)
		}
	}
	return notify.Counted{Next: targets, Metrics: a.metrics}
}

// service opens the configured backend and loads the model into a service.
func (a *app) service(ctx context.Context) (*graph.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	client, err := persistence.Open(ctx, a.cfg.Persistence)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", a.cfg.Persistence.Backend, err)
	}
	a.client = client
	a.closers = append(a.closers, client.Close)
	a.notifier = a.buildNotifier(a.stderr)

	svc := graph.NewService(client,
		graph.WithLogger(a.logger),
		graph.WithMetrics(a.metrics),
		graph.WithNotifier(a.notifier),
	)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
