package ziputil

import (
	"archive/zip"
	"bytes"

	"github.com/pkg/errors"

	"scaffoldr/internal/compare"
	"scaffoldr/internal/fsutil"
	"scaffoldr/internal/snapshot"
)

// PackageDiff is one package's comparison result.
type PackageDiff struct {
	Name    string
	Summary *compare.Summary
}

type archiveIndex struct {
	Packages []archivePackage `json:"packages"`
}

type archivePackage struct {
	Name     string `json:"name"`
	Added    int    `json:"added"`
	Modified int    `json:"modified"`
	Deleted  int    `json:"deleted"`
}

type archiveSummary struct {
	Package  string         `json:"package"`
	Entries  []archiveEntry `json:"entries"`
	Warnings []string       `json:"warnings,omitempty"`
}

type archiveEntry struct {
	Path     string       `json:"path"`
	Kind     compare.Kind `json:"kind"`
	IsBinary bool         `json:"isBinary,omitempty"`
	Oversize bool         `json:"oversize,omitempty"`
	DiffFile string       `json:"diffFile,omitempty"`
}

// WriteDiffArchive writes diffs for offline review:
//
//	index.json                    per-package counts
//	<package>/summary.json        entries and warnings
//	<package>/diffs/<name>.diff   one unified diff per text entry
//
// The archive is byte-for-byte reproducible for identical input.
func WriteDiffArchive(path string, diffs []PackageDiff) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	ix := archiveIndex{Packages: make([]archivePackage, 0, len(diffs))}
	for _, d := range diffs {
		ix.Packages = append(ix.Packages, archivePackage{
			Name:     d.Name,
			Added:    d.Summary.Added,
			Modified: d.Summary.Modified,
			Deleted:  d.Summary.Deleted,
		})
	}
	if err := WriteJSON(zw, "index.json", ix); err != nil {
		return err
	}

	for _, d := range diffs {
		base := SanitizePath(d.Name)
		used := make(map[string]struct{})
		sum := archiveSummary{Package: d.Name, Entries: make([]archiveEntry, 0, len(d.Summary.Entries)), Warnings: d.Summary.Warnings}
		for _, e := range d.Summary.Entries {
			ae := archiveEntry{Path: e.Path, Kind: e.Kind, IsBinary: e.IsBinary, Oversize: e.Oversize}
			if e.UnifiedDiff != "" {
				ae.DiffFile = EnsureUniqueName(snapshot.EncodePath(e.Path), used)
				if err := WriteText(zw, base+"/diffs/"+ae.DiffFile, []byte(e.UnifiedDiff)); err != nil {
					return err
				}
			}
			sum.Entries = append(sum.Entries, ae)
		}
		if err := WriteJSON(zw, base+"/summary.json", sum); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finish archive")
	}
	return errors.Wrapf(fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644), "write archive %s", path)
}
