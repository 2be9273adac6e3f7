package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExtractListFilesDelete(t *testing.T) {
	src := t.TempDir()
	write(t, src, map[string]string{
		"src/index.ts":      "export {}\r\n",
		"README.md":         "# app\n",
		".gitignore":        "dist\n",
		"dist/bundle.js":    "built",
		".scaffoldr/x.json": "{}",
	})
	dir := filepath.Join(src, ".scaffoldr", "templates")

	tmpl, err := Extract(dir, "starter", src, ExtractOptions{Description: "base app", Ignore: []string{".scaffoldr"}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]string{".gitignore", "README.md", "src/index.ts"}, tmpl.Files); diff != "" {
		t.Fatalf("files (-want +got):\n%s", diff)
	}

	ix, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := &Index{Templates: []Template{{Name: "starter", Description: "base app", Files: tmpl.Files}}}
	if diff := cmp.Diff(want, ix); diff != "" {
		t.Fatalf("index (-want +got):\n%s", diff)
	}

	files, err := Files(dir, "starter")
	if err != nil {
		t.Fatal(err)
	}
	if got := string(files["src/index.ts"]); got != "export {}\n" {
		t.Fatalf("text should be LF-normalized, got %q", got)
	}

	if _, err := Extract(dir, "starter", src, ExtractOptions{}); err == nil {
		t.Fatalf("expected error extracting over an existing template")
	}

	if err := Delete(dir, "starter"); err != nil {
		t.Fatal(err)
	}
	if err := Delete(dir, "starter"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "starter")); !os.IsNotExist(err) {
		t.Fatalf("template directory should be gone")
	}
}

func TestGenerateRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, map[string]string{
		"api/server.ts":  "listen()\n",
		"web/index.html": "<html></html>\n",
		"notes.txt":      "not a template",
	})
	write(t, dir, map[string]string{IndexFileName: `{"templates":[{"name":"web","description":"frontend","files":[]},{"name":"gone","files":["x"]}]}`})

	ix, err := Generate(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := &Index{Templates: []Template{
		{Name: "api", Files: []string{"server.ts"}},
		{Name: "web", Description: "frontend", Files: []string{"index.html"}},
	}}
	if diff := cmp.Diff(want, ix); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	reread, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, reread); diff != "" {
		t.Fatalf("persisted index (-want +got):\n%s", diff)
	}
}

func TestListMissingIsEmpty(t *testing.T) {
	ix, err := List(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(ix.Templates) != 0 {
		t.Fatalf("expected empty index, got %+v %v", ix, err)
	}
}

func TestInvalidNames(t *testing.T) {
	for _, name := range []string{"", "../x", "Upper", IndexFileName} {
		if ValidName(name) {
			t.Fatalf("%q should be invalid", name)
		}
	}
}
