package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scaffoldr/internal/engine"
	"scaffoldr/internal/project"
)

func newGraphCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:           "graph",
		Short:         "Print the resolved task graph of each package",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "text", "json":
			default:
				return fmt.Errorf("unsupported format %q (expected text or json)", format)
			}
			w, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			return a.forEachPackage(cmd.Context(), w, cmd.OutOrStdout(), func(_ context.Context, pkg project.Package, report io.Writer) error {
				return a.graphPackage(w, pkg, format, report)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text or json")
	return cmd
}

func (a *app) graphPackage(w *workspace, pkg project.Package, format string, report io.Writer) error {
	root, err := a.compile(w, pkg)
	if err != nil {
		return err
	}
	if format == "json" {
		g, err := engine.TaskGraph(root)
		if err != nil {
			return err
		}
		b, err := json.Marshal(struct {
			Package string `json:"package"`
			Nodes   any    `json:"nodes"`
			Edges   any    `json:"edges"`
		}{pkg.Name, g.Nodes, g.Edges})
		if err != nil {
			return err
		}
		fmt.Fprintln(report, string(b))
		return nil
	}
	lines, err := engine.Describe(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(report, "%s:\n", pkg.Name)
	for _, line := range lines {
		fmt.Fprintf(report, "  %s\n", line)
	}
	return nil
}
