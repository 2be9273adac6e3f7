package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"scaffoldr/internal/compare"
	"scaffoldr/internal/project"
	"scaffoldr/internal/writer"
)

var (
	generateWritten = color.New(color.FgGreen).SprintFunc()
	generateKept    = color.New(color.FgYellow).SprintFunc()
	generateWarning = color.New(color.FgYellow, color.Bold).SprintFunc()
)

func newGenerateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate every selected package into its directory",
		Long: "generate runs the generator tree of each package, replays the stored snapshot " +
			"onto the result, writes files whose contents changed and runs post-write commands.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.loadWorkspace()
			if err != nil {
				return err
			}
			return a.forEachPackage(cmd.Context(), w, cmd.OutOrStdout(), func(ctx context.Context, pkg project.Package, report io.Writer) error {
				return a.generatePackage(ctx, w, pkg, report)
			})
		},
	}
}

func (a *app) generatePackage(ctx context.Context, w *workspace, pkg project.Package, report io.Writer) error {
	out, err := a.render(ctx, w, pkg)
	if err != nil {
		return err
	}
	snap, err := a.loadSnapshot(w, pkg)
	if err != nil {
		return err
	}
	rec, err := compare.ReconcileOutput(ctx, out, snap)
	if err != nil {
		return err
	}
	res, err := writer.Write(ctx, w.packageDir(pkg), rec.Files, out, writer.Options{
		SkipCommands:   a.opts.SkipCommands,
		CommandTimeout: a.opts.CommandTimeout,
		Stdout:         report,
		Stderr:         report,
		Logger:         a.log.WithValues("package", pkg.Name),
	})
	printGenerateReport(report, pkg.Name, rec, res)
	return err
}

func printGenerateReport(out io.Writer, name string, rec *compare.Reconciled, res *writer.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(out, "%s: %d written, %d unchanged, %d preserved\n", name, len(res.Written), len(res.Unchanged), len(res.Preserved))
	for _, p := range res.Written {
		fmt.Fprintf(out, "  %s %s\n", generateWritten("write"), p)
	}
	for _, p := range res.Preserved {
		fmt.Fprintf(out, "  %s %s\n", generateKept("keep"), p)
	}
	for _, p := range rec.Replayed {
		fmt.Fprintf(out, "  edits replayed onto %s\n", p)
	}
	for _, warning := range rec.Warnings {
		fmt.Fprintf(out, "  %s %s\n", generateWarning("warning:"), warning)
	}
	for _, c := range res.Commands {
		if c.Ran {
			fmt.Fprintf(out, "  ran %s: %s (%s)\n", c.Command.Type, c.Command.Command, c.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(out, "  skipped %s: %s (%s)\n", c.Command.Type, c.Command.Command, c.Skipped)
	}
}
