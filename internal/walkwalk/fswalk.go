// Package walkwalk provides a deterministic, filterable filesystem walker
// used to scan a working directory before comparing it with generated output.
package walkwalk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/pkg/errors"

	"scaffoldr/internal/pathfilter"
)

// FileInfo is a minimal, deterministic descriptor of a scanned file.
type FileInfo struct {
	RelPath string // root-relative path with forward slashes
	AbsPath string // absolute filesystem path
	Size    int64  // size in bytes
}

// Options tunes a scan.
type Options struct {
	// Filter restricts which files are reported; ignored directories are
	// not descended into.
	Filter *pathfilter.Filter
	// UseGitignore applies the root .gitignore.
	UseGitignore bool
	// FollowSymlinks reports symlinked regular files.
	FollowSymlinks bool
	// MaxFileBytes skips larger files; 0 means no limit.
	MaxFileBytes int64
}

// alwaysSkipped directories are never part of a generated tree.
var alwaysSkipped = map[string]struct{}{
	".git": {},
	".hg":  {},
	".svn": {},
}

type walkState struct {
	opts      Options
	root      string
	gitignore *patternmatcher.PatternMatcher
	files     []FileInfo
}

// Scan walks root and returns the files passing opts, sorted by RelPath.
// A missing root yields no files.
func Scan(root string, opts Options) ([]FileInfo, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve scan root")
	}
	state := &walkState{opts: opts, root: rootAbs}
	if opts.UseGitignore {
		patterns, err := pathfilter.ReadGitignore(filepath.Join(rootAbs, ".gitignore"))
		if err != nil {
			return nil, err
		}
		if len(patterns) > 0 {
			m, err := patternmatcher.New(patterns)
			if err != nil {
				return nil, errors.Wrap(err, "compile .gitignore")
			}
			state.gitignore = m
		}
	}
	if err := filepath.WalkDir(rootAbs, state.visit); err != nil {
		return nil, errors.Wrapf(err, "scan %s", root)
	}
	sort.Slice(state.files, func(i, j int) bool { return state.files[i].RelPath < state.files[j].RelPath })
	return state.files, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if path == ws.root {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		// Unreadable entries below the root are skipped.
		return nil
	}
	rel, ok := ws.relative(path)
	if !ok {
		return nil
	}
	if rel == "." {
		return nil
	}
	if ws.shouldSkip(rel, d) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if d.IsDir() {
		return ws.handleDir(d)
	}
	return ws.handleFile(path, rel, d)
}

func (ws *walkState) relative(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

func (ws *walkState) shouldSkip(rel string, d fs.DirEntry) bool {
	if d.IsDir() {
		if _, skip := alwaysSkipped[d.Name()]; skip {
			return true
		}
	}
	if ws.gitignore != nil {
		if ignored, err := ws.gitignore.MatchesOrParentMatches(rel); err == nil && ignored {
			return true
		}
	}
	if d.IsDir() {
		return ws.opts.Filter.Ignored(rel)
	}
	return !ws.opts.Filter.Allow(rel)
}

func (ws *walkState) handleDir(d fs.DirEntry) error {
	if !ws.opts.FollowSymlinks && isSymlink(d) {
		return filepath.SkipDir
	}
	return nil
}

func (ws *walkState) handleFile(path, rel string, d fs.DirEntry) error {
	if !ws.opts.FollowSymlinks && isSymlink(d) {
		return nil
	}
	info, err := d.Info()
	if err == nil && isSymlink(d) {
		// Followed symlinks report their target; linked directories are
		// not descended into.
		info, err = os.Stat(path)
	}
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if ws.opts.MaxFileBytes > 0 && info.Size() > ws.opts.MaxFileBytes {
		return nil
	}
	ws.files = append(ws.files, FileInfo{
		RelPath: rel,
		AbsPath: path,
		Size:    info.Size(),
	})
	return nil
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}
