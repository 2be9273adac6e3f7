package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scaffoldr/internal/compare"
	"scaffoldr/internal/project"
	"scaffoldr/internal/snapshot"
)

func newSnapshotCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage the stored hand edits replayed onto each generation",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Record the working directory's differences as accepted edits",
			Long: "save compares a fresh generation (without replaying the current snapshot) " +
				"with the working directory and stores every difference. Binary and oversize " +
				"modifications cannot be replayed and are reported instead.",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.eachPackage(cmd, a.saveSnapshot)
			},
		},
		&cobra.Command{
			Use:           "show",
			Short:         "List the entries of each package's snapshot",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.eachPackage(cmd, a.showSnapshot)
			},
		},
		&cobra.Command{
			Use:           "clear",
			Short:         "Delete each package's snapshot",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.eachPackage(cmd, func(_ context.Context, w *workspace, pkg project.Package, report io.Writer) error {
					if err := snapshot.Clear(a.snapshotDir(w, pkg)); err != nil {
						return err
					}
					fmt.Fprintf(report, "%s: snapshot cleared\n", pkg.Name)
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) eachPackage(cmd *cobra.Command, fn func(ctx context.Context, w *workspace, pkg project.Package, report io.Writer) error) error {
	w, err := a.loadWorkspace()
	if err != nil {
		return err
	}
	return a.forEachPackage(cmd.Context(), w, cmd.OutOrStdout(), func(ctx context.Context, pkg project.Package, report io.Writer) error {
		return fn(ctx, w, pkg, report)
	})
}

func (a *app) saveSnapshot(ctx context.Context, w *workspace, pkg project.Package, report io.Writer) error {
	out, err := a.render(ctx, w, pkg)
	if err != nil {
		return err
	}
	// Diffs are stored whole so they can be replayed.
	opts, err := a.compareOptions(w, pkg)
	if err != nil {
		return err
	}
	sum, err := compare.CompareFiles(ctx, w.packageDir(pkg), out, opts)
	if err != nil {
		return err
	}
	snap, skipped := sum.Snapshot()
	if err := snapshot.Save(a.snapshotDir(w, pkg), snap); err != nil {
		return err
	}
	fmt.Fprintf(report, "%s: saved %d entries\n", pkg.Name, snap.Len())
	for _, p := range skipped {
		fmt.Fprintf(report, "  not replayable (binary or oversize): %s\n", p)
	}
	return nil
}

func (a *app) showSnapshot(_ context.Context, w *workspace, pkg project.Package, report io.Writer) error {
	snap, err := a.loadSnapshot(w, pkg)
	if err != nil {
		return err
	}
	if snap.Len() == 0 {
		fmt.Fprintf(report, "%s: no snapshot\n", pkg.Name)
		return nil
	}
	fmt.Fprintf(report, "%s: %d entries\n", pkg.Name, snap.Len())
	for _, p := range snap.Paths() {
		switch {
		case snap.IsAdded(p):
			fmt.Fprintf(report, "  added   %s\n", p)
		case snap.IsDeleted(p):
			fmt.Fprintf(report, "  deleted %s\n", p)
		default:
			fmt.Fprintf(report, "  edited  %s\n", p)
		}
	}
	return nil
}
