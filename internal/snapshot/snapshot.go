// Package snapshot persists the human edits a developer accepted on top of
// generated files, so they can be replayed onto fresh output before the next
// comparison.
//
// Conventions:
//   - The manifest is stored at: <dir>/manifest.json
//   - Diff blobs are stored at:   <dir>/diffs/<encoded path>.diff
//   - A manifest entry is either {"added": bool} or {"diffFile": name}
//
// added:true marks a file that intentionally exists only in the working
// directory; added:false marks a generated file the developer intentionally
// deleted; diffFile names a unified diff (generated -> accepted) to apply.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"scaffoldr/internal/fsutil"
)

const (
	manifestFileName = "manifest.json"
	diffsDirName     = "diffs"
)

// Entry is one manifest record.
type Entry struct {
	Added    *bool  `json:"added,omitempty"`
	DiffFile string `json:"diffFile,omitempty"`
}

// Manifest is the on-disk index.
type Manifest struct {
	Files map[string]Entry `json:"files"`
}

// Snapshot is a loaded manifest together with its diff blobs.
type Snapshot struct {
	Manifest Manifest
	// Diffs maps diff file names to unified diff text.
	Diffs map[string]string
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		Manifest: Manifest{Files: make(map[string]Entry)},
		Diffs:    make(map[string]string),
	}
}

// Len returns the number of manifest entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Manifest.Files)
}

// Paths returns the manifest paths in sorted order.
func (s *Snapshot) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Manifest.Files))
	for p := range s.Manifest.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsAdded reports whether p is recorded as intentionally working-only.
func (s *Snapshot) IsAdded(p string) bool {
	if s == nil {
		return false
	}
	e, ok := s.Manifest.Files[p]
	return ok && e.Added != nil && *e.Added
}

// IsDeleted reports whether p is recorded as intentionally deleted.
func (s *Snapshot) IsDeleted(p string) bool {
	if s == nil {
		return false
	}
	e, ok := s.Manifest.Files[p]
	return ok && e.Added != nil && !*e.Added
}

// Diff returns the stored patch for p.
func (s *Snapshot) Diff(p string) (string, bool) {
	if s == nil {
		return "", false
	}
	e, ok := s.Manifest.Files[p]
	if !ok || e.DiffFile == "" {
		return "", false
	}
	d, ok := s.Diffs[e.DiffFile]
	return d, ok
}

// MarkAdded records p as intentionally working-only.
func (s *Snapshot) MarkAdded(p string) {
	t := true
	s.Manifest.Files[p] = Entry{Added: &t}
}

// MarkDeleted records p as intentionally deleted.
func (s *Snapshot) MarkDeleted(p string) {
	f := false
	s.Manifest.Files[p] = Entry{Added: &f}
}

// SetDiff stores patch for p under a unique encoded name.
func (s *Snapshot) SetDiff(p, patch string) {
	used := make(map[string]struct{}, len(s.Diffs))
	for name := range s.Diffs {
		used[name] = struct{}{}
	}
	if prev, ok := s.Manifest.Files[p]; ok && prev.DiffFile != "" {
		delete(s.Diffs, prev.DiffFile)
		delete(used, prev.DiffFile)
	}
	name := uniqueDiffName(EncodePath(p), p, used)
	s.Manifest.Files[p] = Entry{DiffFile: name}
	s.Diffs[name] = patch
}

// ManifestError reports an inconsistent manifest.
type ManifestError struct {
	Path string
	Msg  string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("snapshot manifest: %s: %s", e.Path, e.Msg)
}

// Load reads the snapshot stored in dir.
// If no manifest exists, it returns (nil, nil) so callers can treat it as
// "no snapshot" without branching on errors.
func Load(dir string) (*Snapshot, error) {
	b, ok, err := fsutil.ReadFileIfExists(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot manifest")
	}
	if !ok {
		return nil, nil
	}
	s := New()
	if err := json.Unmarshal(b, &s.Manifest); err != nil {
		return nil, errors.Wrap(err, "decode snapshot manifest")
	}
	if s.Manifest.Files == nil {
		s.Manifest.Files = make(map[string]Entry)
	}
	for _, p := range s.Paths() {
		e := s.Manifest.Files[p]
		switch {
		case e.Added != nil && e.DiffFile != "":
			return nil, &ManifestError{Path: p, Msg: "entry has both added and diffFile"}
		case e.Added == nil && e.DiffFile == "":
			return nil, &ManifestError{Path: p, Msg: "entry has neither added nor diffFile"}
		case e.DiffFile != "":
			if !validDiffName(e.DiffFile) {
				return nil, &ManifestError{Path: p, Msg: fmt.Sprintf("invalid diff file name %q", e.DiffFile)}
			}
			data, err := os.ReadFile(filepath.Join(dir, diffsDirName, e.DiffFile))
			if err != nil {
				return nil, errors.Wrapf(err, "read snapshot diff for %s", p)
			}
			s.Diffs[e.DiffFile] = string(data)
		}
	}
	return s, nil
}

// Save writes s to dir atomically: diff blobs first, then the manifest, so a
// reader never sees a manifest pointing at a missing blob. Blobs no longer
// referenced are removed afterwards.
func Save(dir string, s *Snapshot) error {
	if s == nil {
		s = New()
	}
	diffDir := filepath.Join(dir, diffsDirName)
	referenced := make(map[string]struct{})
	for _, p := range s.Paths() {
		e := s.Manifest.Files[p]
		if e.DiffFile == "" {
			continue
		}
		data, ok := s.Diffs[e.DiffFile]
		if !ok {
			return &ManifestError{Path: p, Msg: "diff blob missing from snapshot"}
		}
		if err := fsutil.WriteFileAtomic(filepath.Join(diffDir, e.DiffFile), []byte(data), 0o644); err != nil {
			return errors.Wrapf(err, "write snapshot diff for %s", p)
		}
		referenced[e.DiffFile] = struct{}{}
	}

	b, err := json.MarshalIndent(s.Manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot manifest")
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, manifestFileName), append(b, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write snapshot manifest")
	}

	entries, err := os.ReadDir(diffDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "list snapshot diffs")
	}
	for _, de := range entries {
		if _, keep := referenced[de.Name()]; keep || de.IsDir() || !strings.HasSuffix(de.Name(), diffSuffix) {
			continue
		}
		_ = os.Remove(filepath.Join(diffDir, de.Name())) // best-effort cleanup
	}
	return nil
}

// Clear removes the snapshot directory.
// Safe to call even if the directory does not exist.
func Clear(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}
