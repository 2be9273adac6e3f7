package generators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scaffoldr/internal/engine"
	"scaffoldr/internal/output"
	"scaffoldr/internal/project"
	"scaffoldr/internal/templates"
)

func run(t *testing.T, def string, opts project.CompileOptions) (*output.Output, error) {
	t.Helper()
	p, err := project.Parse([]byte(def))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	opts.ProjectName = p.Name
	root, err := project.Compile(p.Packages[0], reg, opts)
	if err != nil {
		return nil, err
	}
	return engine.Execute(context.Background(), root)
}

func formatted(t *testing.T, out *output.Output, p string) string {
	t.Helper()
	b, err := out.FormatFile(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

const webApp = `
name: shop
packages:
  - name: web
    root:
      generator: node-package
      options:
        name: "@shop/web"
        type: module
        dependencies: {react: ^18.0.0}
      children:
        - name: lint
          generator: script
          options:
            name: lint
            command: eslint .
            devDependencies: {eslint: ^9.0.0}
        - name: build
          generator: script
          options: {name: build, command: vite build, runAfterWrite: true}
        - name: readme
          generator: static-files
          options:
            files:
              README.md: "# {{.PackageName}}\n\nPart of {{.Project}} ({{.Data.stage}}).\n"
            data: {stage: beta}
            dependencies: {zod: ^3.0.0}
`

func TestNodePackageCollectsFromDescendants(t *testing.T) {
	out, err := run(t, webApp, project.CompileOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := `{
  "name": "@shop/web",
  "version": "0.1.0",
  "private": true,
  "type": "module",
  "scripts": {
    "build": "vite build",
    "lint": "eslint ."
  },
  "dependencies": {
    "react": "^18.0.0",
    "zod": "^3.0.0"
  },
  "devDependencies": {
    "eslint": "^9.0.0"
  }
}
`
	if diff := cmp.Diff(want, formatted(t, out, "package.json")); diff != "" {
		t.Fatalf("package.json (-want +got):\n%s", diff)
	}
	if got := formatted(t, out, "README.md"); got != "# @shop/web\n\nPart of shop (beta).\n" {
		t.Fatalf("README.md = %q", got)
	}

	var cmds []string
	for _, c := range out.PostWriteCommands {
		cmds = append(cmds, c.Type.String()+": "+c.Command)
	}
	if diff := cmp.Diff([]string{"dependency-install: npm install", "script: npm run build"}, cmds); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"package.json"}, out.PostWriteCommands[0].Options.OnlyIfChanged); diff != "" {
		t.Fatalf("install should only run when package.json changes (-want +got):\n%s", diff)
	}
}

func TestScriptConflict(t *testing.T) {
	def := `
name: x
packages:
  - name: app
    root:
      generator: node-package
      options: {scripts: {test: vitest}}
      children:
        - generator: script
          options: {name: test, command: jest}
`
	_, err := run(t, def, project.CompileOptions{Dir: t.TempDir()})
	var conflict *ScriptConflictError
	if !errors.As(err, &conflict) || conflict.Existing != "vitest" {
		t.Fatalf("expected ScriptConflictError, got %v", err)
	}
}

func TestScriptWithoutPackageFails(t *testing.T) {
	def := `
name: x
packages:
  - name: app
    root:
      generator: script
      options: {name: test, command: jest}
`
	if _, err := run(t, def, project.CompileOptions{}); err == nil || !strings.Contains(err.Error(), "node-package") {
		t.Fatalf("expected missing provider error, got %v", err)
	}
}

func TestStaticFilesFromTemplate(t *testing.T) {
	tmplDir := t.TempDir()
	src := t.TempDir()
	for rel, body := range map[string]string{
		"src/main.ts.tmpl": "console.log({{printf \"%q\" .Package}})\n",
		"public/logo.bin":  "\x00\x01",
		"tsconfig.json":    `{"strict":true}`,
	} {
		p := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := templates.Extract(tmplDir, "starter", src, templates.ExtractOptions{}); err != nil {
		t.Fatal(err)
	}

	def := `
name: x
packages:
  - name: app
    root:
      generator: static-files
      options: {template: starter, target: web, format: true, neverOverwrite: true}
`
	out, err := run(t, def, project.CompileOptions{TemplatesDir: tmplDir})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"web/public/logo.bin", "web/src/main.ts", "web/tsconfig.json"}, out.Paths()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if got := string(out.Files["web/src/main.ts"].Contents); got != "console.log(\"app\")\n" {
		t.Fatalf("rendered = %q", got)
	}
	if out.Files["web/public/logo.bin"].Options.ShouldFormat {
		t.Fatalf("binary files must not ask for formatting")
	}
	if !out.Files["web/tsconfig.json"].Options.NeverOverwrite {
		t.Fatalf("neverOverwrite not carried")
	}
}

func TestStaticFilesRejectsBadTemplate(t *testing.T) {
	def := `
name: x
packages:
  - name: app
    root:
      generator: static-files
      options:
        files: {a.txt: "{{.Nope"}
`
	_, err := run(t, def, project.CompileOptions{})
	if err == nil || !strings.Contains(err.Error(), "parse inline file a.txt") {
		t.Fatalf("expected parse error at compile time, got %v", err)
	}
}

func TestJSONFormatter(t *testing.T) {
	got, err := JSONFormatter{}.Format(context.Background(), "a.json", []byte(`{"a":[1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n" {
		t.Fatalf("unexpected %q", got)
	}
	if _, err := (JSONFormatter{}).Format(context.Background(), "a.json", []byte("{")); err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
}
