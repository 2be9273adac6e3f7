// Package templates manages a directory of reusable file templates.
//
// Layout:
//
//	<dir>/templates.json      index of every template
//	<dir>/<name>/<path>       template files
//
// Templates are extracted from a working directory, listed, regenerated from
// the files present and deleted. The static-files generator renders them.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"

	"scaffoldr/internal/fsutil"
	"scaffoldr/internal/pathfilter"
	"scaffoldr/internal/textutil"
	"scaffoldr/internal/walkwalk"
)

// IndexFileName is the index file inside a templates directory.
const IndexFileName = "templates.json"

// Template is one index entry.
type Template struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Files       []string `json:"files"`
}

// Index is the decoded templates.json.
type Index struct {
	Templates []Template `json:"templates"`
}

// Lookup returns the entry named name.
func (ix *Index) Lookup(name string) (Template, bool) {
	for _, t := range ix.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

func (ix *Index) put(t Template) {
	for i := range ix.Templates {
		if ix.Templates[i].Name == t.Name {
			ix.Templates[i] = t
			return
		}
	}
	ix.Templates = append(ix.Templates, t)
	sort.Slice(ix.Templates, func(i, j int) bool { return ix.Templates[i].Name < ix.Templates[j].Name })
}

func (ix *Index) remove(name string) bool {
	for i := range ix.Templates {
		if ix.Templates[i].Name == name {
			ix.Templates = append(ix.Templates[:i], ix.Templates[i+1:]...)
			return true
		}
	}
	return false
}

var reTemplateName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidName reports whether name can be used as a template directory.
func ValidName(name string) bool {
	return reTemplateName.MatchString(name) && name != IndexFileName
}

// ErrNotFound is returned for an unknown template name.
var ErrNotFound = errors.New("template not found")

// List reads the index of dir. A missing index is an empty list.
func List(dir string) (*Index, error) {
	b, ok, err := fsutil.ReadFileIfExists(filepath.Join(dir, IndexFileName))
	if err != nil {
		return nil, errors.Wrap(err, "read templates index")
	}
	ix := &Index{}
	if !ok {
		return ix, nil
	}
	if err := json.Unmarshal(b, ix); err != nil {
		return nil, errors.Wrap(err, "decode templates index")
	}
	return ix, nil
}

func writeIndex(dir string, ix *Index) error {
	if ix.Templates == nil {
		ix.Templates = []Template{}
	}
	b, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode templates index")
	}
	return errors.Wrap(fsutil.WriteFileAtomic(filepath.Join(dir, IndexFileName), append(b, '\n'), 0o644), "write templates index")
}

// ExtractOptions tunes Extract.
type ExtractOptions struct {
	Description string
	Include     []string
	Ignore      []string
	// Force replaces an existing template of the same name.
	Force bool
}

// Extract copies the files under src into template name. Text files are
// stored LF-normalized; binary files are copied as is. .gitignore is
// honored.
func Extract(dir, name, src string, opts ExtractOptions) (*Template, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid template name %q", name)
	}
	ix, err := List(dir)
	if err != nil {
		return nil, err
	}
	if _, exists := ix.Lookup(name); exists && !opts.Force {
		return nil, fmt.Errorf("template %q already exists", name)
	}
	filter, err := pathfilter.New(opts.Include, opts.Ignore)
	if err != nil {
		return nil, err
	}
	absDir, _ := filepath.Abs(dir)
	files, err := walkwalk.Scan(src, walkwalk.Options{Filter: filter, UseGitignore: true})
	if err != nil {
		return nil, err
	}

	target := filepath.Join(dir, name)
	if err := os.RemoveAll(target); err != nil {
		return nil, errors.Wrapf(err, "reset template %s", name)
	}
	t := Template{Name: name, Description: opts.Description, Files: []string{}}
	for _, f := range files {
		// Never copy the templates directory into itself.
		if abs, _ := filepath.Abs(f.AbsPath); isWithin(absDir, abs) {
			continue
		}
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", f.RelPath)
		}
		if !textutil.IsBinary(data) {
			data = textutil.NormalizeUTF8LF(data)
		}
		if err := fsutil.WriteFileAtomic(filepath.Join(target, filepath.FromSlash(f.RelPath)), data, 0o644); err != nil {
			return nil, errors.Wrapf(err, "write template file %s", f.RelPath)
		}
		t.Files = append(t.Files, f.RelPath)
	}
	ix.put(t)
	if err := writeIndex(dir, ix); err != nil {
		return nil, err
	}
	return &t, nil
}

// Generate rebuilds the index from the template directories present in dir.
// Descriptions of templates already indexed are kept.
func Generate(dir string) (*Index, error) {
	old, err := List(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			entries = nil
		} else {
			return nil, errors.Wrap(err, "list templates directory")
		}
	}
	ix := &Index{Templates: []Template{}}
	for _, de := range entries {
		if !de.IsDir() || !ValidName(de.Name()) {
			continue
		}
		files, err := walkwalk.Scan(filepath.Join(dir, de.Name()), walkwalk.Options{})
		if err != nil {
			return nil, err
		}
		t := Template{Name: de.Name(), Files: make([]string, 0, len(files))}
		if prev, ok := old.Lookup(de.Name()); ok {
			t.Description = prev.Description
		}
		for _, f := range files {
			t.Files = append(t.Files, f.RelPath)
		}
		ix.put(t)
	}
	if err := writeIndex(dir, ix); err != nil {
		return nil, err
	}
	return ix, nil
}

// Delete removes template name and its index entry.
func Delete(dir, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid template name %q", name)
	}
	ix, err := List(dir)
	if err != nil {
		return err
	}
	if !ix.remove(name) {
		return errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
		return errors.Wrapf(err, "remove template %s", name)
	}
	return writeIndex(dir, ix)
}

// Files returns the contents of every file in template name, keyed by
// slash-separated relative path.
func Files(dir, name string) (map[string][]byte, error) {
	ix, err := List(dir)
	if err != nil {
		return nil, err
	}
	t, ok := ix.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	out := make(map[string][]byte, len(t.Files))
	for _, rel := range t.Files {
		data, err := os.ReadFile(filepath.Join(dir, name, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.Wrapf(err, "read template %s file %s", name, rel)
		}
		out[rel] = data
	}
	return out, nil
}

func isWithin(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel))
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
