package meta

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectDefaultsToNPM(t *testing.T) {
	dir := t.TempDir()
	inf := Detect(dir, dir)
	if inf.PackageManager != "npm" || inf.InstallCommand() != "npm install" {
		t.Fatalf("unexpected %+v", inf)
	}
}

func TestDetectLockfileInWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "pnpm-lock.yaml"), "lockfileVersion: 9\n")
	pkg := filepath.Join(root, "packages", "web")
	touch(t, filepath.Join(pkg, "package.json"), `{"name":"@shop/web","version":"1.2.0"}`)

	inf := Detect(pkg, root)
	if inf.PackageManager != "pnpm" || inf.Module != "@shop/web" || inf.Version != "1.2.0" {
		t.Fatalf("unexpected %+v", inf)
	}
	if inf.RunCommand("build") != "pnpm run build" {
		t.Fatalf("run command %q", inf.RunCommand("build"))
	}
}

func TestDetectPackageManagerFieldWins(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "package.json"), `{"name":"x","packageManager":"yarn@4.1.0"}`)
	touch(t, filepath.Join(dir, "package-lock.json"), `{}`)
	if got := Detect(dir, dir).PackageManager; got != "yarn" {
		t.Fatalf("got %q, want yarn", got)
	}
}

func TestDetectDoesNotEscapeTop(t *testing.T) {
	outer := t.TempDir()
	touch(t, filepath.Join(outer, "yarn.lock"), "")
	top := filepath.Join(outer, "project")
	pkg := filepath.Join(top, "app")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := Detect(pkg, top).PackageManager; got != "npm" {
		t.Fatalf("lock file above top must be ignored, got %q", got)
	}
}
