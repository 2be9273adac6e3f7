package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"scaffoldr/internal/engine"
	"scaffoldr/internal/generator"
	"scaffoldr/internal/generators"
	"scaffoldr/internal/output"
	"scaffoldr/internal/project"
	"scaffoldr/internal/snapshot"
	"scaffoldr/internal/validate"
)

// workspace is a loaded, validated project and the directory it lives in.
type workspace struct {
	root     string
	project  *project.Project
	packages []project.Package
}

func (a *app) loadWorkspace() (*workspace, error) {
	root, err := filepath.Abs(a.opts.Directory)
	if err != nil {
		return nil, errors.Wrap(err, "resolve working directory")
	}
	proj, err := project.Load(resolvePath(root, a.opts.ProjectFile))
	if err != nil {
		return nil, err
	}
	reg, err := generators.NewRegistry()
	if err != nil {
		return nil, err
	}
	if err := validate.Project(proj, reg.Names()); err != nil {
		return nil, err
	}
	pkgs, err := proj.Select(a.opts.Packages)
	if err != nil {
		return nil, err
	}
	return &workspace{root: root, project: proj, packages: pkgs}, nil
}

func (w *workspace) packageDir(pkg project.Package) string {
	return filepath.Join(w.root, filepath.FromSlash(pkg.Directory))
}

func (a *app) templatesDir(w *workspace) string {
	return resolvePath(w.root, a.opts.TemplatesDir)
}

func (a *app) snapshotDir(w *workspace, pkg project.Package) string {
	return resolvePath(w.packageDir(pkg), a.opts.SnapshotDir)
}

// compile builds the generator tree of pkg against a fresh registry.
func (a *app) compile(w *workspace, pkg project.Package) (*generator.Node, error) {
	reg, err := generators.NewRegistry()
	if err != nil {
		return nil, err
	}
	return project.Compile(pkg, reg, project.CompileOptions{
		ProjectName:  w.project.Name,
		ProjectRoot:  w.root,
		Dir:          w.packageDir(pkg),
		TemplatesDir: a.templatesDir(w),
	})
}

// render compiles and executes pkg, returning its raw output.
func (a *app) render(ctx context.Context, w *workspace, pkg project.Package) (*output.Output, error) {
	root, err := a.compile(w, pkg)
	if err != nil {
		return nil, err
	}
	return engine.Execute(ctx, root, engine.WithLogger(a.log.WithValues("package", pkg.Name)))
}

func (a *app) loadSnapshot(w *workspace, pkg project.Package) (*snapshot.Snapshot, error) {
	return snapshot.Load(a.snapshotDir(w, pkg))
}

// forEachPackage runs fn for every selected package, at most
// opts.Concurrency at a time. A failing package does not stop the others.
// Each package reports into its own buffer; buffers are flushed to out in
// package order once all are done.
func (a *app) forEachPackage(ctx context.Context, w *workspace, out io.Writer, fn func(ctx context.Context, pkg project.Package, report io.Writer) error) error {
	reports := make([]bytes.Buffer, len(w.packages))
	errs := make([]error, len(w.packages))
	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, pkg := range w.packages {
		g.Go(func() error {
			if err := fn(ctx, pkg, &reports[i]); err != nil {
				errs[i] = errors.Wrapf(err, "package %s", pkg.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	var combined error
	for i := range w.packages {
		_, _ = reports[i].WriteTo(out)
		if errs[i] != nil {
			a.log.Error(errs[i], "package failed", "package", w.packages[i].Name)
			combined = multierr.Append(combined, errs[i])
		}
	}
	return combined
}

// resolvePath joins p onto base unless p is absolute.
func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, filepath.FromSlash(p))
}

// relativeWithin returns target relative to base in slash form, or "" when
// target lies outside base.
func relativeWithin(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}
