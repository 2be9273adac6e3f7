package pathfilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNilFilterAllowsEverything(t *testing.T) {
	var f *Filter
	if !f.Allow("anything/at/all.txt") {
		t.Fatalf("nil filter must allow")
	}
}

func TestIgnorePatterns(t *testing.T) {
	f, err := New(nil, []string{"node_modules", "**/*.log", "!keep.log"})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"src/index.ts":          true,
		"node_modules/x/y.js":   false,
		"debug.log":             false,
		"deep/dir/trace.log":    false,
		"keep.log":              true,
		"src/node_modules_x.ts": true,
	}
	for p, want := range cases {
		if got := f.Allow(p); got != want {
			t.Fatalf("Allow(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestIncludeGlobs(t *testing.T) {
	f, err := New([]string{"src/**/*.ts", "package.json"}, []string{"src/generated"})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"src/index.ts":           true,
		"src/a/b/c.ts":           true,
		"package.json":           true,
		"README.md":              false,
		"src/generated/types.ts": false,
	}
	for p, want := range cases {
		if got := f.Allow(p); got != want {
			t.Fatalf("Allow(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestGitignorePatterns(t *testing.T) {
	in := []byte("# deps\nnode_modules/\n/dist\n*.log\n!important.log\nsrc/tmp\n\n")
	got := GitignorePatterns(in)
	want := []string{"**/node_modules", "dist", "**/*.log", "!**/important.log", "src/tmp"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	f, err := New(nil, got)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"packages/web/node_modules/react/index.js": false,
		"dist/main.js":       false,
		"lib/dist/main.js":   true,
		"logs/a.log":         false,
		"logs/important.log": true,
		"src/tmp/scratch.ts": false,
		"other/src/tmp/x.ts": true,
	}
	for p, want := range cases {
		if got := f.Allow(p); got != want {
			t.Fatalf("Allow(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestReadIgnoreFileMissing(t *testing.T) {
	got, err := ReadIgnoreFile(filepath.Join(t.TempDir(), ".scaffoldrignore"))
	if err != nil || got != nil {
		t.Fatalf("expected no patterns, got %v %v", got, err)
	}
}

func TestReadIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".scaffoldrignore")
	if err := os.WriteFile(path, []byte("# comment\n*.tmp\n!keep.tmp\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadIgnoreFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"*.tmp", "!keep.tmp"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
