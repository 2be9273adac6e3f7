package compare

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"scaffoldr/internal/output"
	"scaffoldr/internal/snapshot"
)

func buildOutput(t *testing.T, files map[string]string) *output.Output {
	t.Helper()
	b := output.NewBuilder()
	for p, body := range files {
		if err := b.WriteFile("test#main", p, []byte(body), output.WriteOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	return b.Output()
}

func writeTree(t *testing.T, root string, files map[string]string) {
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

type kinds map[string]Kind

func kindsOf(s *Summary) kinds {
	out := kinds{}
	for _, e := range s.Entries {
		out[e.Path] = e.Kind
	}
	return out
}

func TestWorkingOnlyFileIsAdded(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.ts": "foo", "b.ts": "bar"})
	out := buildOutput(t, map[string]string{"a.ts": "foo"})

	sum, err := CompareFiles(context.Background(), dir, out, Options{})
	if err != nil {
		t.Fatalf("CompareFiles: %v", err)
	}
	if len(sum.Entries) != 1 {
		t.Fatalf("expected one entry, got %+v", sum.Entries)
	}
	e := sum.Entries[0]
	if e.Path != "b.ts" || e.Kind != KindAdded || sum.Added != 1 {
		t.Fatalf("unexpected entry %+v (added=%d)", e, sum.Added)
	}
}

func TestIdenticalTreesHaveNoEntries(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"a.ts": "foo\n", "src/b.ts": "bar\n"}
	writeTree(t, dir, files)
	sum, err := CompareFiles(context.Background(), dir, buildOutput(t, files), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Empty() {
		t.Fatalf("expected no entries, got %+v", sum.Entries)
	}
}

func TestOneByteChangeEitherSide(t *testing.T) {
	for _, tc := range []struct{ gen, work string }{
		{"hello\n", "hellp\n"},
		{"hellp\n", "hello\n"},
	} {
		dir := t.TempDir()
		writeTree(t, dir, map[string]string{"x.txt": tc.work})
		sum, err := CompareFiles(context.Background(), dir, buildOutput(t, map[string]string{"x.txt": tc.gen}), Options{})
		if err != nil {
			t.Fatal(err)
		}
		if len(sum.Entries) != 1 || sum.Entries[0].Kind != KindModified || sum.Modified != 1 {
			t.Fatalf("expected one modified entry, got %+v", sum.Entries)
		}
		if sum.Entries[0].UnifiedDiff == "" {
			t.Fatalf("modified text entry must carry a diff")
		}
	}
}

func TestClassification(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"same.ts":   "same",
		"edited.ts": "mine",
		"extra.md":  "notes",
		"logo.png":  "\x00\x01\x02",
	})
	out := buildOutput(t, map[string]string{
		"same.ts":   "same",
		"edited.ts": "theirs",
		"gone.ts":   "removed by developer",
		"logo.png":  "\x00\x01\x03",
	})
	sum, err := CompareFiles(context.Background(), dir, out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := kinds{
		"edited.ts": KindModified,
		"extra.md":  KindAdded,
		"gone.ts":   KindDeleted,
		"logo.png":  KindModified,
	}
	if diff := cmp.Diff(want, kindsOf(sum)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	for _, e := range sum.Entries {
		if e.Path == "logo.png" && (!e.IsBinary || e.UnifiedDiff != "") {
			t.Fatalf("binary entry should have no diff: %+v", e)
		}
	}
	paths := make([]string, len(sum.Entries))
	for i, e := range sum.Entries {
		paths[i] = e.Path
	}
	if diff := cmp.Diff([]string{"edited.ts", "extra.md", "gone.ts", "logo.png"}, paths); diff != "" {
		t.Fatalf("entries not sorted (-want +got):\n%s", diff)
	}
	if sum.Added != 1 || sum.Modified != 2 || sum.Deleted != 1 {
		t.Fatalf("counts %d/%d/%d", sum.Added, sum.Modified, sum.Deleted)
	}
}

func TestFiltersApplyToBothSides(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".gitignore":        "node_modules/\n",
		"node_modules/x.js": "dep",
		"src/a.ts":          "changed",
		"build/out.js":      "artifact",
	})
	out := buildOutput(t, map[string]string{
		"src/a.ts":     "original",
		"build/out.js": "different artifact",
		"docs/x.md":    "generated doc",
		".gitignore":   "node_modules/\n",
	})
	sum, err := CompareFiles(context.Background(), dir, out, Options{
		Include: []string{"src/**", "build/**", ".gitignore", "node_modules/**"},
		Ignore:  []string{"build"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(kinds{"src/a.ts": KindModified}, kindsOf(sum)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestGitignoredGeneratedFileIsStillCompared(t *testing.T) {
	files := map[string]string{".gitignore": ".env\n", ".env": "A=1\n"}
	dir := t.TempDir()
	writeTree(t, dir, files)
	sum, err := CompareFiles(context.Background(), dir, buildOutput(t, files), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Empty() {
		t.Fatalf("identical gitignored file reported: %+v", sum.Entries)
	}

	writeTree(t, dir, map[string]string{".env": "A=2\n"})
	sum, err = CompareFiles(context.Background(), dir, buildOutput(t, files), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(kinds{".env": KindModified}, kindsOf(sum)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	// Working-only files stay hidden by .gitignore.
	writeTree(t, dir, map[string]string{"local.env": "x", ".gitignore": ".env\n*.env\n"})
	files[".gitignore"] = ".env\n*.env\n"
	files[".env"] = "A=2\n"
	sum, err = CompareFiles(context.Background(), dir, buildOutput(t, files), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Empty() {
		t.Fatalf("ignored working-only file reported: %+v", sum.Entries)
	}
}

func TestNeverOverwriteFilesKeepUserEdits(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"config.json": `{"edited":true}`})
	b := output.NewBuilder()
	for _, p := range []string{"config.json", "seed.json"} {
		if err := b.WriteFile("test#main", p, []byte("{}"), output.WriteOptions{NeverOverwrite: true}); err != nil {
			t.Fatal(err)
		}
	}
	sum, err := CompareFiles(context.Background(), dir, b.Output(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	// An existing file is left alone; a missing one would still be written.
	if diff := cmp.Diff(kinds{"seed.json": KindDeleted}, kindsOf(sum)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestSnapshotReplay(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/index.ts": "line1\nline2 edited\nline3\n",
		"NOTES.md":     "my notes",
	})
	out := buildOutput(t, map[string]string{
		"src/index.ts":  "line1\nline2\nline3\n",
		"src/unused.ts": "nobody wants me",
	})

	first, err := CompareFiles(context.Background(), dir, out, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := kinds{"src/index.ts": KindModified, "NOTES.md": KindAdded, "src/unused.ts": KindDeleted}
	if diff := cmp.Diff(want, kindsOf(first)); diff != "" {
		t.Fatalf("first pass (-want +got):\n%s", diff)
	}

	snap, skipped := first.Snapshot()
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped entries: %v", skipped)
	}
	snapDir := filepath.Join(t.TempDir(), "snapshot")
	if err := snapshot.Save(snapDir, snap); err != nil {
		t.Fatal(err)
	}
	loaded, err := snapshot.Load(snapDir)
	if err != nil {
		t.Fatal(err)
	}

	second, err := CompareFiles(context.Background(), dir, out, Options{Snapshot: loaded})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Empty() || len(second.Warnings) != 0 {
		t.Fatalf("replayed snapshot should reconcile everything, got %+v warnings=%v", second.Entries, second.Warnings)
	}
}

func TestSnapshotDiffThatNoLongerApplies(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "brand new generator output\n"})
	snap := snapshot.New()
	snap.SetDiff("a.txt", "--- a/a.txt\n+++ b/a.txt\n@@ -1 +1 @@\n-old line\n+edited line\n")
	out := buildOutput(t, map[string]string{"a.txt": "brand new generator output\n"})

	sum, err := CompareFiles(context.Background(), dir, out, Options{Snapshot: snap})
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Empty() {
		t.Fatalf("fallback to generated contents should match, got %+v", sum.Entries)
	}
	if len(sum.Warnings) != 1 || !strings.Contains(sum.Warnings[0], "a.txt") {
		t.Fatalf("expected one warning about a.txt, got %v", sum.Warnings)
	}
}

func TestReconcileOutputFormatsAndReplays(t *testing.T) {
	b := output.NewBuilder()
	if err := b.AddGlobalFormatter(upperFormatter{}); err != nil {
		t.Fatal(err)
	}
	_ = b.WriteFile("t", "a.up", []byte("abc\n"), output.WriteOptions{ShouldFormat: true})
	_ = b.WriteFile("t", "b.txt", []byte("keep\n"), output.WriteOptions{})
	_ = b.WriteFile("t", "c.txt", []byte("deleted\n"), output.WriteOptions{})

	snap := snapshot.New()
	snap.SetDiff("a.up", "--- a\n+++ b\n@@ -1 +1,2 @@\n ABC\n+def\n")
	snap.MarkDeleted("c.txt")

	rec, err := ReconcileOutput(context.Background(), b.Output(), snap)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]string{}
	for p, c := range rec.Files {
		got[p] = string(c)
	}
	want := map[string]string{"a.up": "ABC\ndef\n", "b.txt": "keep\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.up"}, rec.Replayed); diff != "" {
		t.Fatalf("replayed (-want +got):\n%s", diff)
	}
}

func TestCompareHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.ts": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CompareFiles(ctx, dir, buildOutput(t, map[string]string{"a.ts": "y"}), Options{}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

type upperFormatter struct{}

func (upperFormatter) Name() string         { return "upper" }
func (upperFormatter) Extensions() []string { return []string{".up"} }
func (upperFormatter) Format(_ context.Context, _ string, b []byte) ([]byte, error) {
	return []byte(strings.ToUpper(string(b))), nil
}
