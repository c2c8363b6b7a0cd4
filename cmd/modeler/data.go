package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-modeler/pkg/constraints"
	"github.com/dd0wney/cluso-modeler/pkg/export"
	"github.com/dd0wney/cluso-modeler/pkg/importer"
	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/notify"
)

// Export formats.
const (
	formatText     = "text"
	formatNTriples = "ntriples"
	formatSnapshot = "snapshot"
)

// watchPoll bounds how long watch blocks before checking for cancellation.
const watchPoll = 250 * time.Millisecond

var contentTypes = map[string]string{
	formatText:     "text/plain; charset=utf-8",
	formatNTriples: "application/n-triples",
	formatSnapshot: "application/octet-stream",
}

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stored model for relation inconsistencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.Validate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				nodes, edges := svc.Store().Len()
				writeValidation(out, nodes, edges, result)
			}
			if n := len(result.GetViolationsBySeverity(constraints.Error)); n > 0 {
				return fmt.Errorf("model has %d consistency errors", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import NODES.json [EDGES.json]",
		Short: "Add nodes and relations from JSON documents if they are consistent",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			edgesPath := ""
			if len(args) == 2 {
				edgesPath = args[1]
			}
			im := importer.New(svc,
				importer.WithLogger(a.logger),
				importer.WithMetrics(a.metrics),
				importer.WithNotifier(a.notifier),
			)
			report, err := im.ImportFiles(cmd.Context(), args[0], edgesPath)
			if err != nil {
				var ierr *importer.ImportError
				if errors.As(err, &ierr) {
					writeViolations(cmd.OutOrStdout(), ierr.Violations)
				}
				return err
			}
			writeImportReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, output, s3Key string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the model as text, N-Triples or a compressed snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := contentTypes[format]; !ok {
				return fmt.Errorf("unknown format %q (want text, ntriples or snapshot)", format)
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			nodes, edges := svc.Snapshot()

			var buf bytes.Buffer
			if err := render(&buf, format, nodes, edges, a.cfg.Export.BaseIRI); err != nil {
				return err
			}

			if s3Key != "" {
				up, err := export.NewS3Uploader(cmd.Context(), a.cfg.Export.S3, a.logger)
				if err != nil {
					return err
				}
				if err := up.Upload(cmd.Context(), s3Key, contentTypes[format], &buf); err != nil {
					a.notifier.NotifyError(fmt.Sprintf("Upload of %s failed: %v", s3Key, err))
					return err
				}
				a.notifier.NotifySuccess(fmt.Sprintf("Uploaded %s export to %s", format, s3Key))
				return nil
			}

			if output == "" || output == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), &buf)
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			a.notifier.NotifySuccess(fmt.Sprintf("Exported %d nodes and %d relations to %s", len(nodes), len(edges), output))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "text, ntriples or snapshot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "upload to the configured S3 bucket under this key instead")
	cmd.MarkFlagsMutuallyExclusive("output", "s3-key")
	return cmd
}

func render(w io.Writer, format string, nodes []*model.Node, edges []*model.Edge, baseIRI string) error {
	switch format {
	case formatNTriples:
		return export.WriteNTriples(w, nodes, edges, baseIRI)
	case formatSnapshot:
		return export.WriteSnapshot(w, nodes, edges)
	default:
		return export.WriteText(w, nodes, edges)
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var address string
	var errorsOnly bool
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print notifications published by other modeler processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if address == "" {
				address = a.cfg.Notify.NNGAddress
			}
			if address == "" {
				return errors.New("no address: pass --address or set notify.nng_address")
			}
			var levels []notify.Level
			if errorsOnly {
				levels = append(levels, notify.LevelError)
			}
			sub, err := notify.DialNNGSubscriber(address, levels...)
			if err != nil {
				return err
			}
			defer sub.Close()

			out := cmd.OutOrStdout()
			for seen := 0; count == 0 || seen < count; {
				if err := cmd.Context().Err(); err != nil {
					return nil
				}
				n, err := sub.Recv(watchPoll)
				if errors.Is(err, notify.ErrTimeout) {
					continue
				}
				if err != nil {
					return err
				}
				style := successStyle
				if n.Level == notify.LevelError {
					style = errorStyle
				}
				fmt.Fprintf(out, "%s %s %s\n", dimStyle.Render(n.Time.Format("15:04:05")), style.Render(string(n.Level)), n.Message)
				seen++
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "publisher address (default notify.nng_address)")
	cmd.Flags().BoolVar(&errorsOnly, "errors", false, "only print errors")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many notifications")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cfg.Redacted().Write(cmd.OutOrStdout())
		},
	})
	return cmd
}
