// Package meta detects metadata of an existing Node project (package
// manager, package name) so generated install commands match the tools the
// developer already uses.
//
// Goals:
//   - Best-effort parsing: tolerate partial/absent files
//   - Deterministic defaults when nothing is found (npm)
package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Info contains a minimal, tool-friendly summary of project metadata.
type Info struct {
	PackageManager string // "pnpm"|"yarn"|"bun"|"npm"
	Lockfile       string // path of the lock file that decided PackageManager, if any
	Module         string // package.json name (best-effort)
	Version        string // package.json version
}

// DefaultPackageManager is used when no hint is found.
const DefaultPackageManager = "npm"

// lockfiles in priority order; first match wins.
var lockfiles = []struct {
	name    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"bun.lock", "bun"},
	{"package-lock.json", "npm"},
	{"npm-shrinkwrap.json", "npm"},
}

// Detect probes dir and its parents up to and including top for package
// manager hints. Priority: the "packageManager" field of the nearest
// package.json, then lock files (nearest directory first).
func Detect(dir, top string) Info {
	absDir, _ := filepath.Abs(dir)
	absTop, _ := filepath.Abs(top)

	var inf Info
	for _, d := range upward(absDir, absTop) {
		if p := firstExisting(d, "package.json"); p != "" && inf.Module == "" {
			pkg := readPackageJSON(p)
			inf.Module = strField(pkg, "name")
			inf.Version = strField(pkg, "version")
			if pm := managerFromField(strField(pkg, "packageManager")); pm != "" && inf.PackageManager == "" {
				inf.PackageManager = pm
			}
		}
		if inf.PackageManager != "" {
			break
		}
		for _, lf := range lockfiles {
			if p := firstExisting(d, lf.name); p != "" {
				inf.PackageManager = lf.manager
				inf.Lockfile = p
				break
			}
		}
		if inf.PackageManager != "" {
			break
		}
	}
	if inf.PackageManager == "" {
		inf.PackageManager = DefaultPackageManager
	}
	return inf
}

// InstallCommand returns the dependency install command for the detected
// package manager.
func (i Info) InstallCommand() string {
	switch i.PackageManager {
	case "pnpm":
		return "pnpm install"
	case "yarn":
		return "yarn install"
	case "bun":
		return "bun install"
	default:
		return "npm install"
	}
}

// RunCommand returns the command that runs a package.json script.
func (i Info) RunCommand(script string) string {
	switch i.PackageManager {
	case "pnpm", "yarn", "bun":
		return i.PackageManager + " run " + script
	default:
		return "npm run " + script
	}
}

// managerFromField parses "pnpm@9.1.0" style values.
func managerFromField(v string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(v), "@")
	switch name {
	case "pnpm", "yarn", "bun", "npm":
		return name
	}
	return ""
}

// upward lists dir and its parents, stopping at top. When dir is not inside
// top only dir itself is probed.
func upward(dir, top string) []string {
	out := []string{dir}
	rel, err := filepath.Rel(top, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return out
	}
	for cur := dir; cur != top; {
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		out = append(out, parent)
		cur = parent
	}
	return out
}

// ---------------------------- helpers ---------------------------------------

func readPackageJSON(path string) map[string]any {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	return obj
}

func firstExisting(root string, names ...string) string {
	for _, n := range names {
		p := filepath.Join(root, n)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func strField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		default:
			// tolerate numbers/bools by stringifying
			return strings.TrimSpace(toString(v))
		}
	}
	return ""
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
