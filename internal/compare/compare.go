// Package compare reconciles a fresh generator output with a developer's
// working directory.
//
// Classification per path:
//   - generated only: deleted (the working copy no longer has it)
//   - working only: added
//   - both, byte-identical: no entry
//   - both, differing: modified
//   - both, generated with NeverOverwrite: no entry
//
// Generated paths are read from dir directly, so ignore files only hide
// working-only paths.
// Diffs run from generated to working, so a stored diff replays the
// developer's edits onto the next generation. Binary files are compared by
// bytes only and carry no diff.
package compare

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"scaffoldr/internal/diff"
	"scaffoldr/internal/output"
	"scaffoldr/internal/pathfilter"
	"scaffoldr/internal/snapshot"
	"scaffoldr/internal/textutil"
	"scaffoldr/internal/walkwalk"
)

// Kind classifies a differing path.
type Kind string

const (
	KindAdded    Kind = "added"
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
)

// Entry is one differing path.
type Entry struct {
	Path        string `json:"path"`
	Kind        Kind   `json:"kind"`
	IsBinary    bool   `json:"isBinary"`
	UnifiedDiff string `json:"unifiedDiff,omitempty"`
	// Oversize is set when the diff was replaced by a placeholder.
	Oversize bool `json:"oversize,omitempty"`
}

// Summary is the result of one comparison.
type Summary struct {
	Entries  []Entry  `json:"entries"`
	Added    int      `json:"added"`
	Modified int      `json:"modified"`
	Deleted  int      `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

// Empty reports whether generated output and working directory agree.
func (s *Summary) Empty() bool { return len(s.Entries) == 0 }

// Options tunes a comparison.
type Options struct {
	// Include restricts both sides to matching paths; empty means all.
	Include []string
	// Ignore excludes matching paths from both sides.
	Ignore []string
	// SkipGitignore disables .gitignore handling in the working scan.
	SkipGitignore bool
	// Snapshot is replayed onto the generated files first; nil means none.
	Snapshot *snapshot.Snapshot
	// Concurrency bounds per-file work; 0 uses GOMAXPROCS.
	Concurrency int
	// DiffContext is the number of context lines; 0 uses the diff default.
	DiffContext int
	// MaxDiffBytes replaces larger diffs with a placeholder; 0 means no limit.
	MaxDiffBytes int
	Logger       logr.Logger
}

func (o Options) diffOptions() diff.Options {
	return diff.Options{Context: o.DiffContext, MaxBytes: o.MaxDiffBytes}
}

func (o Options) logger() logr.Logger {
	if o.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return o.Logger
}

// CompareFiles compares out against the files under dir. The working
// directory is only read.
func CompareFiles(ctx context.Context, dir string, out *output.Output, opts Options) (*Summary, error) {
	log := opts.logger()
	filter, err := pathfilter.New(opts.Include, opts.Ignore)
	if err != nil {
		return nil, err
	}

	rec, err := ReconcileOutput(ctx, out, opts.Snapshot)
	if err != nil {
		return nil, err
	}
	generated := make(map[string][]byte, len(rec.Files))
	for p, b := range rec.Files {
		if filter.Allow(p) {
			generated[p] = b
		}
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve working directory")
	}
	working := make(map[string]string, len(generated))
	for p := range generated {
		working[p] = filepath.Join(root, filepath.FromSlash(p))
	}
	scanned, err := walkwalk.Scan(root, walkwalk.Options{Filter: filter, UseGitignore: !opts.SkipGitignore})
	if err != nil {
		return nil, err
	}
	for _, f := range scanned {
		if _, ok := working[f.RelPath]; ok || opts.Snapshot.IsAdded(f.RelPath) {
			continue
		}
		working[f.RelPath] = f.AbsPath
	}

	paths := unionPaths(generated, working)
	log.V(1).Info("comparing files", "dir", dir, "generated", len(generated), "working", len(working))

	results := make([]*Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gen, inGenerated := generated[p]
			var work []byte
			inWorking := false
			if abs, ok := working[p]; ok {
				b, err := os.ReadFile(abs)
				switch {
				case err == nil:
					work, inWorking = b, true
				case os.IsNotExist(err), errors.Is(err, syscall.ENOTDIR):
					// Not on disk: absent.
				default:
					return errors.Wrapf(err, "read %s", p)
				}
			}
			if inGenerated && inWorking && rec.Options[p].NeverOverwrite {
				// The writer keeps the existing file.
				return nil
			}
			results[i] = classify(p, gen, inGenerated, work, inWorking, opts.diffOptions())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Warnings: rec.Warnings}
	for _, e := range results {
		if e == nil {
			continue
		}
		sum.Entries = append(sum.Entries, *e)
		switch e.Kind {
		case KindAdded:
			sum.Added++
		case KindModified:
			sum.Modified++
		case KindDeleted:
			sum.Deleted++
		}
	}
	log.V(1).Info("comparison done", "added", sum.Added, "modified", sum.Modified, "deleted", sum.Deleted)
	return sum, nil
}

func classify(p string, gen []byte, inGenerated bool, work []byte, inWorking bool, dopts diff.Options) *Entry {
	switch {
	case inGenerated && !inWorking:
		e := &Entry{Path: p, Kind: KindDeleted, IsBinary: textutil.IsBinary(gen)}
		if !e.IsBinary {
			e.UnifiedDiff, e.Oversize = diff.Removed("a/"+p, gen, dopts)
		}
		return e
	case !inGenerated && inWorking:
		e := &Entry{Path: p, Kind: KindAdded, IsBinary: textutil.IsBinary(work)}
		if !e.IsBinary {
			e.UnifiedDiff, e.Oversize = diff.Added("b/"+p, work, dopts)
		}
		return e
	case inGenerated && inWorking:
		if string(gen) == string(work) {
			return nil
		}
		e := &Entry{Path: p, Kind: KindModified, IsBinary: textutil.IsBinary(gen) || textutil.IsBinary(work)}
		if !e.IsBinary {
			e.UnifiedDiff, e.Oversize = diff.Unified("a/"+p, "b/"+p, gen, work, dopts)
		}
		return e
	}
	return nil
}

func unionPaths(generated map[string][]byte, working map[string]string) []string {
	set := make(map[string]struct{}, len(generated)+len(working))
	for p := range generated {
		set[p] = struct{}{}
	}
	for p := range working {
		set[p] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
