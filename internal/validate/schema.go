// Package validate performs lightweight validation of a project definition
// before any generator runs. It checks structural constraints that commonly
// catch bad definitions and aggregates every issue into a single error.
package validate

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"scaffoldr/internal/project"
)

// Project validates p:
//
//   - Name must be non-empty.
//   - At least one package; names unique and id-safe.
//   - Each directory must be a normalized relative path (no absolute, no
//     "..", forward slashes only) and used by one package only.
//   - Every node names a generator from generators (when non-empty).
//   - Sibling node names are unique and contain no '.' or '#'.
//   - Hoisted capability names are kebab-case.
//
// The function returns nil if everything looks fine, or a single aggregated
// error describing all the issues found.
func Project(p *project.Project, generators []string) error {
	var errs errlist

	if strings.TrimSpace(p.Name) == "" {
		errs.add("project.name must be non-empty")
	}
	if len(p.Packages) == 0 {
		errs.add("project.packages must list at least one package")
	}

	known := make(map[string]struct{}, len(generators))
	for _, g := range generators {
		known[g] = struct{}{}
	}

	names := make(map[string]struct{}, len(p.Packages))
	dirs := make(map[string]string, len(p.Packages))
	for i, pkg := range p.Packages {
		prefix := fmt.Sprintf("packages[%d] (%s)", i, pkg.Name)

		if !reName.MatchString(pkg.Name) {
			errs.add("%s: name must match %s", prefix, reName)
		}
		if _, dup := names[pkg.Name]; dup {
			errs.add("%s: duplicate package name %q", prefix, pkg.Name)
		} else if pkg.Name != "" {
			names[pkg.Name] = struct{}{}
		}

		dir := pkg.Directory
		if dir == "" {
			dir = "."
		}
		if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") {
			errs.add("%s: directory must be relative, got %q", prefix, dir)
		}
		if strings.Contains(dir, `\`) {
			errs.add("%s: directory must use forward slashes ('/'), found backslash", prefix)
		}
		if hasDotDot(dir) {
			errs.add("%s: directory must not contain '..' segments (got %q)", prefix, dir)
		}
		clean := path.Clean(dir)
		if other, dup := dirs[clean]; dup {
			errs.add("%s: directory %q is already used by package %q", prefix, clean, other)
		} else {
			dirs[clean] = pkg.Name
		}

		checkNode(&errs, prefix+".root", pkg.Root, known)
	}

	return errs.err()
}

func checkNode(errs *errlist, prefix string, n project.NodeSpec, known map[string]struct{}) {
	if strings.TrimSpace(n.Generator) == "" {
		errs.add("%s: generator must be non-empty", prefix)
	} else if len(known) > 0 {
		if _, ok := known[n.Generator]; !ok {
			errs.add("%s: unknown generator %q", prefix, n.Generator)
		}
	}
	for j, h := range n.Hoist {
		if !reCapability.MatchString(h) {
			errs.add("%s.hoist[%d]: %q is not a valid capability name", prefix, j, h)
		}
	}

	seen := make(map[string]struct{}, len(n.Children))
	for i, c := range n.Children {
		cp := fmt.Sprintf("%s.children[%d]", prefix, i)
		if c.Name != "" {
			cp = fmt.Sprintf("%s (%s)", cp, c.Name)
			if strings.ContainsAny(c.Name, ".#") {
				errs.add("%s: name must not contain '.' or '#'", cp)
			}
			if _, dup := seen[c.Name]; dup {
				errs.add("%s: duplicate sibling name %q", cp, c.Name)
			}
			seen[c.Name] = struct{}{}
		}
		checkNode(errs, cp, c, known)
	}
}

// --- helpers -----------------------------------------------------------------

var (
	reName       = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	reCapability = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	// Join with newline for readability.
	return errors.New(strings.Join(e.msgs, "\n"))
}
