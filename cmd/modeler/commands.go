package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-modeler/pkg/model"
	"github.com/dd0wney/cluso-modeler/pkg/relations"
	"github.com/dd0wney/cluso-modeler/pkg/schema"
)

func newCreateNodeCmd(a *app) *cobra.Command {
	var aspect, name string
	cmd := &cobra.Command{
		Use:   "create-node KIND",
		Short: "Create a Block, Connector or Terminal and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := schema.ParseNodeKind(args[0])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			node, err := svc.CreateNode(cmd.Context(), kind, model.Aspect(aspect), name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), node.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "", "aspect tag (Function, Product, Location, Installed)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newConnectCmd(a *app) *cobra.Command {
	var sourceHandle, targetHandle, kind string
	var pick bool
	cmd := &cobra.Command{
		Use:   "connect SOURCE TARGET",
		Short: "Connect two nodes, inferring the relation kind where the schema allows",
		Long: `Connect resolves the relation kind from the node kinds and the handles the
connection was drawn between. When several kinds fit, pass --kind, or --pick to
choose one interactively.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			source, target := args[0], args[1]

			if kind != "" {
				k, err := schema.ParseEdgeKind(kind)
				if err != nil {
					return err
				}
				edge, err := svc.ConnectAs(cmd.Context(), source, target, k)
				if err != nil {
					return err
				}
				writeEdge(cmd.OutOrStdout(), edge)
				return nil
			}

			cc := relations.ConnectionContext{
				SourceHandle: relations.HandleRole(sourceHandle),
				TargetHandle: relations.HandleRole(targetHandle),
			}
			res, edge, err := svc.Connect(cmd.Context(), source, target, cc)
			if err != nil {
				return err
			}
			if res.Outcome == relations.Resolved {
				writeEdge(cmd.OutOrStdout(), edge)
				return nil
			}

			names := make([]string, len(res.Candidates))
			for i, c := range res.Candidates {
				names[i] = string(c)
			}
			if !pick {
				return fmt.Errorf("%w: %s and %s can be related in several ways (%s); pass --kind",
					relations.ErrAmbiguous, source, target, strings.Join(names, ", "))
			}
			title := fmt.Sprintf("Relate %s to %s as", svc.Store().Label(source), svc.Store().Label(target))
			chosen, err := pickKind(cmd.InOrStdin(), cmd.ErrOrStderr(), title, res.Candidates)
			if err != nil {
				return err
			}
			edge, err = svc.ConnectAs(cmd.Context(), source, target, chosen)
			if err != nil {
				return err
			}
			writeEdge(cmd.OutOrStdout(), edge)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceHandle, "source-handle", "", "role of the source handle (terminal, block, connector or a relation kind)")
	cmd.Flags().StringVar(&targetHandle, "target-handle", "", "role of the target handle")
	cmd.Flags().StringVar(&kind, "kind", "", "relation kind to create, skipping inference")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose interactively when several kinds fit")
	cmd.MarkFlagsMutuallyExclusive("kind", "pick")
	return cmd
}

func newDeleteEdgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-edge ID",
		Short: "Remove a relation and clear it from both nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteEdge(cmd.Context(), args[0])
		},
	}
}

func newRetypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retype ID KIND",
		Short: "Change the kind of an unlocked relation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := schema.ParseEdgeKind(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			edge, err := svc.RetypeEdge(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			writeEdge(cmd.OutOrStdout(), edge)
			return nil
		},
	}
}

func newDeleteNodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-node ID",
		Short: "Remove a node together with every relation it takes part in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteNode(cmd.Context(), args[0])
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes and relations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			nodes, edges := svc.Snapshot()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Nodes []*model.Node `json:"nodes"`
					Edges []*model.Edge `json:"edges"`
				}{nodes, edges})
			}
			for _, n := range nodes {
				fmt.Fprintf(out, "%s\t%s\n", n.ID, n.Label())
			}
			for _, e := range edges {
				writeEdge(out, e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
