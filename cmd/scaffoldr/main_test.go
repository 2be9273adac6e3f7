package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const shopProject = `
name: shop
packages:
  - name: web
    directory: apps/web
    root:
      generator: node-package
      options:
        name: "@shop/web"
        install: false
      children:
        - name: build
          generator: script
          options: {name: build, command: vite build}
        - name: readme
          generator: static-files
          options:
            files:
              README.md: "# {{.PackageName}}\n\nline two\nline three\n"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--color", "never", "--skip-commands"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func newWorkspace(t *testing.T, def string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scaffoldr.project.yaml"), def)
	return dir
}

func TestGenerateThenDiffIsClean(t *testing.T) {
	dir := newWorkspace(t, shopProject)
	out, err := execute(t, "generate", "-C", dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "web: 2 written") {
		t.Fatalf("unexpected report:\n%s", out)
	}
	pkgJSON := readFile(t, filepath.Join(dir, "apps/web/package.json"))
	if !strings.Contains(pkgJSON, `"build": "vite build"`) || !strings.HasSuffix(pkgJSON, "}\n") {
		t.Fatalf("package.json not formatted as expected:\n%s", pkgJSON)
	}
	if strings.Contains(out, "ran ") {
		t.Fatalf("no command may run with --skip-commands:\n%s", out)
	}

	out, err = execute(t, "diff", "-C", dir, "--exit-code")
	if err != nil {
		t.Fatalf("diff after generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "web: no differences") {
		t.Fatalf("unexpected diff output:\n%s", out)
	}

	out, err = execute(t, "generate", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "web: 0 written, 2 unchanged") {
		t.Fatalf("second generate should change nothing:\n%s", out)
	}
}

func TestSnapshotKeepsHandEdits(t *testing.T) {
	dir := newWorkspace(t, shopProject)
	if _, err := execute(t, "generate", "-C", dir); err != nil {
		t.Fatal(err)
	}
	readme := filepath.Join(dir, "apps/web/README.md")
	edited := "# @shop/web\n\nline two, edited by hand\nline three\n"
	writeFile(t, readme, edited)
	writeFile(t, filepath.Join(dir, "apps/web/NOTES.md"), "mine\n")

	out, err := execute(t, "diff", "-C", dir, "--exit-code")
	if !errors.Is(err, errDifferences) {
		t.Fatalf("expected differences, got %v\n%s", err, out)
	}
	for _, want := range []string{"web: 1 added, 1 modified, 0 deleted", "added NOTES.md", "modified README.md", "+line two, edited by hand"} {
		if !strings.Contains(out, want) {
			t.Fatalf("diff output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "snapshot", "save", "-C", dir)
	if err != nil {
		t.Fatalf("snapshot save: %v", err)
	}
	if !strings.Contains(out, "web: saved 2 entries") {
		t.Fatalf("unexpected save report:\n%s", out)
	}
	out, err = execute(t, "snapshot", "show", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "added   NOTES.md") || !strings.Contains(out, "edited  README.md") {
		t.Fatalf("unexpected snapshot listing:\n%s", out)
	}

	if out, err := execute(t, "diff", "-C", dir, "--exit-code"); err != nil {
		t.Fatalf("diff after snapshot save: %v\n%s", err, out)
	}
	if _, err := execute(t, "generate", "-C", dir); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, readme); got != edited {
		t.Fatalf("regeneration lost the hand edit: %q", got)
	}

	if _, err := execute(t, "snapshot", "clear", "-C", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "diff", "-C", dir, "--exit-code"); !errors.Is(err, errDifferences) {
		t.Fatalf("cleared snapshot should surface the edits again, got %v", err)
	}
}

func TestDiffArchive(t *testing.T) {
	dir := newWorkspace(t, shopProject)
	if _, err := execute(t, "generate", "-C", dir); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "apps/web/README.md"), "changed\n")
	archive := filepath.Join(t.TempDir(), "diff.zip")
	out, err := execute(t, "diff", "-C", dir, "--name-only", "--archive", archive)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "@@") {
		t.Fatalf("--name-only must not print diffs:\n%s", out)
	}
	if st, err := os.Stat(archive); err != nil || st.Size() == 0 {
		t.Fatalf("archive not written: %v", err)
	}
}

const brokenPackage = `
  - name: broken
    directory: apps/broken
    root:
      generator: static-files
      options:
        files:
          x.txt: "{{ .Nope"
`

func TestPackageFailuresAreIndependent(t *testing.T) {
	dir := newWorkspace(t, shopProject+brokenPackage)
	_, err := execute(t, "generate", "-C", dir)
	if err == nil || !strings.Contains(err.Error(), "package broken") {
		t.Fatalf("expected failure of package broken, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "apps/web/package.json")); statErr != nil {
		t.Fatalf("healthy package should still be generated: %v", statErr)
	}
}

func TestPackageSelection(t *testing.T) {
	dir := newWorkspace(t, shopProject)
	if _, err := execute(t, "generate", "-C", dir, "--package", "api"); err == nil || !strings.Contains(err.Error(), `unknown package "api"`) {
		t.Fatalf("expected unknown package error, got %v", err)
	}
}

func TestConfigFileProvidesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "custom.project.yaml"), shopProject)
	writeFile(t, filepath.Join(dir, "scaffoldr.yaml"), "project: custom.project.yaml\n")
	if _, err := execute(t, "generate", "-C", dir); err != nil {
		t.Fatalf("generate with config file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "apps/web/README.md")); err != nil {
		t.Fatal(err)
	}
}

func TestGraph(t *testing.T) {
	dir := newWorkspace(t, shopProject)
	out, err := execute(t, "graph", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"web:", "1. web#main", "package <- web#main (node-package)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("graph output lacks %q:\n%s", want, out)
		}
	}
	out, err = execute(t, "graph", "-C", dir, "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, `{"package":"web","nodes":["web#main"`) {
		t.Fatalf("unexpected json graph: %s", out)
	}
}

func TestGraphReportsEveryPackage(t *testing.T) {
	dir := newWorkspace(t, shopProject+brokenPackage)
	out, err := execute(t, "graph", "-C", dir)
	if err == nil || !strings.Contains(err.Error(), "package broken") {
		t.Fatalf("expected failure of package broken, got %v", err)
	}
	if !strings.Contains(out, "1. web#main") {
		t.Fatalf("healthy package graph missing:\n%s", out)
	}
}

func TestTemplatesLifecycle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "starter")
	writeFile(t, filepath.Join(src, "index.ts"), "export {}\r\n")
	writeFile(t, filepath.Join(src, "src/app.ts"), "console.log(1)\n")

	out, err := execute(t, "templates", "extract", "starter", src, "-C", dir, "--description", "Starter app")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Extracted template starter (2 files)") {
		t.Fatalf("unexpected extract output:\n%s", out)
	}
	stored := readFile(t, filepath.Join(dir, ".scaffoldr/templates/starter/index.ts"))
	if stored != "export {}\n" {
		t.Fatalf("template text should be LF-normalized, got %q", stored)
	}

	out, err = execute(t, "templates", "list", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "starter") || !strings.Contains(out, "Starter app") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
	if _, err := execute(t, "templates", "generate", "-C", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "templates", "delete", "starter", "-C", dir); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "templates", "list", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No templates.") {
		t.Fatalf("template should be gone:\n%s", out)
	}
}

func TestHandleError(t *testing.T) {
	var buf bytes.Buffer
	handleError(&buf, errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Fatalf("got %q", buf.String())
	}
	buf.Reset()
	handleError(&buf, errDifferences)
	handleError(&buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("got %q", out)
	}
}
