package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"scaffoldr/internal/compare"
	"scaffoldr/internal/pathfilter"
	"scaffoldr/internal/project"
	"scaffoldr/internal/ziputil"
)

var (
	diffAdded    = color.New(color.FgGreen).SprintFunc()
	diffRemoved  = color.New(color.FgRed).SprintFunc()
	diffHunk     = color.New(color.FgCyan).SprintFunc()
	diffHeader   = color.New(color.Bold).SprintFunc()
	diffModified = color.New(color.FgYellow).SprintFunc()
)

type diffFlags struct {
	archive  string
	nameOnly bool
	exitCode bool
}

func newDiffCommand(a *app) *cobra.Command {
	var f diffFlags
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a fresh generation with the working directory",
		Long: "diff generates every selected package in memory, replays the stored snapshot " +
			"and reports how the working directory differs: added (only in the working copy), " +
			"modified, or deleted (generated but missing).",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDiff(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.archive, "archive", "", "Also write the diffs to this ZIP archive")
	cmd.Flags().BoolVar(&f.nameOnly, "name-only", false, "List differing paths without their diffs")
	cmd.Flags().BoolVar(&f.exitCode, "exit-code", false, "Exit with status 1 when differences are found")
	return cmd
}

func (a *app) runDiff(cmd *cobra.Command, f diffFlags) error {
	w, err := a.loadWorkspace()
	if err != nil {
		return err
	}
	var (
		mu    sync.Mutex
		diffs = make(map[string]*compare.Summary, len(w.packages))
	)
	err = a.forEachPackage(cmd.Context(), w, cmd.OutOrStdout(), func(ctx context.Context, pkg project.Package, report io.Writer) error {
		sum, err := a.comparePackage(ctx, w, pkg)
		if err != nil {
			return err
		}
		mu.Lock()
		diffs[pkg.Name] = sum
		mu.Unlock()
		printSummary(report, pkg.Name, sum, !f.nameOnly)
		return nil
	})

	if f.archive != "" && len(diffs) > 0 {
		var archived []ziputil.PackageDiff
		for _, pkg := range w.packages {
			if sum, ok := diffs[pkg.Name]; ok {
				archived = append(archived, ziputil.PackageDiff{Name: pkg.Name, Summary: sum})
			}
		}
		if archiveErr := ziputil.WriteDiffArchive(f.archive, archived); archiveErr != nil {
			return archiveErr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote diff archive %s\n", f.archive)
	}
	if err != nil {
		return err
	}
	if f.exitCode {
		for _, sum := range diffs {
			if !sum.Empty() {
				return errDifferences
			}
		}
	}
	return nil
}

// comparePackage generates pkg in memory and compares it with its directory
// after replaying the stored snapshot.
func (a *app) comparePackage(ctx context.Context, w *workspace, pkg project.Package) (*compare.Summary, error) {
	out, err := a.render(ctx, w, pkg)
	if err != nil {
		return nil, err
	}
	opts, err := a.compareOptions(w, pkg)
	if err != nil {
		return nil, err
	}
	if opts.Snapshot, err = a.loadSnapshot(w, pkg); err != nil {
		return nil, err
	}
	opts.MaxDiffBytes = a.opts.MaxDiffBytes
	return compare.CompareFiles(ctx, w.packageDir(pkg), out, opts)
}

// compareOptions builds the filters for pkg: configured patterns, the
// package's ignore file, and the snapshot and templates directories, which
// are never compared.
func (a *app) compareOptions(w *workspace, pkg project.Package) (compare.Options, error) {
	dir := w.packageDir(pkg)
	ignore, err := pathfilter.ReadIgnoreFile(resolvePath(dir, a.opts.IgnoreFile))
	if err != nil {
		return compare.Options{}, err
	}
	ignore = append(ignore, a.opts.Ignore...)
	for _, own := range []string{a.snapshotDir(w, pkg), a.templatesDir(w)} {
		if rel := relativeWithin(dir, own); rel != "" {
			ignore = append(ignore, rel)
		}
	}
	return compare.Options{
		Include:       a.opts.Include,
		Ignore:        ignore,
		SkipGitignore: a.opts.SkipGitignore,
		Concurrency:   a.opts.Concurrency,
		DiffContext:   a.opts.DiffContext,
		Logger:        a.log.WithValues("package", pkg.Name),
	}, nil
}

func printSummary(out io.Writer, name string, sum *compare.Summary, withDiffs bool) {
	if sum.Empty() {
		fmt.Fprintf(out, "%s: no differences\n", name)
	} else {
		fmt.Fprintf(out, "%s: %d added, %d modified, %d deleted\n", name, sum.Added, sum.Modified, sum.Deleted)
	}
	for _, warning := range sum.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", warning)
	}
	for _, e := range sum.Entries {
		label := string(e.Kind)
		switch e.Kind {
		case compare.KindAdded:
			label = diffAdded(label)
		case compare.KindDeleted:
			label = diffRemoved(label)
		default:
			label = diffModified(label)
		}
		suffix := ""
		if e.IsBinary {
			suffix = " (binary)"
		}
		fmt.Fprintf(out, "  %s %s%s\n", label, e.Path, suffix)
	}
	if !withDiffs {
		return
	}
	for _, e := range sum.Entries {
		if e.UnifiedDiff != "" {
			writeColoredDiff(out, e.UnifiedDiff)
		}
	}
}

// writeColoredDiff prints a unified diff, coloring it when color is enabled.
func writeColoredDiff(out io.Writer, text string) {
	s := bufio.NewScanner(strings.NewReader(text))
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for s.Scan() {
		line := s.Text()
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = diffHeader(line)
		case strings.HasPrefix(line, "@@"):
			line = diffHunk(line)
		case strings.HasPrefix(line, "+"):
			line = diffAdded(line)
		case strings.HasPrefix(line, "-"):
			line = diffRemoved(line)
		}
		fmt.Fprintln(out, line)
	}
}
