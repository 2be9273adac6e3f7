// Package pathfilter decides which relative paths take part in a comparison.
// The same Filter is applied to generated paths and to the working-directory
// scan, so excluded files never surface on only one side.
package pathfilter

import (
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/pkg/errors"
)

// Filter combines include globs and ignore patterns. The zero value and a nil
// *Filter allow everything.
type Filter struct {
	include *patternmatcher.PatternMatcher
	ignore  *patternmatcher.PatternMatcher
}

// New builds a filter. With no include globs every path not ignored is
// allowed. Patterns use the .dockerignore dialect: "**" crosses directories,
// a leading "!" re-includes.
func New(include, ignore []string) (*Filter, error) {
	f := &Filter{}
	if len(include) > 0 {
		m, err := patternmatcher.New(include)
		if err != nil {
			return nil, errors.Wrap(err, "compile include globs")
		}
		f.include = m
	}
	if len(ignore) > 0 {
		m, err := patternmatcher.New(ignore)
		if err != nil {
			return nil, errors.Wrap(err, "compile ignore patterns")
		}
		f.ignore = m
	}
	return f, nil
}

// Allow reports whether the file at rel (slash-separated) passes the filter.
func (f *Filter) Allow(rel string) bool {
	if f == nil {
		return true
	}
	if f.Ignored(rel) {
		return false
	}
	if f.include == nil {
		return true
	}
	ok, err := f.include.MatchesOrParentMatches(rel)
	return err == nil && ok
}

// Ignored reports whether rel, or a parent directory of it, is ignored.
func (f *Filter) Ignored(rel string) bool {
	if f == nil || f.ignore == nil {
		return false
	}
	ok, err := f.ignore.MatchesOrParentMatches(rel)
	return err == nil && ok
}

// ReadIgnoreFile loads patterns from a .dockerignore-style file. A missing
// file yields no patterns.
func ReadIgnoreFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read ignore file %s", path)
	}
	patterns, err := ignorefile.ReadAll(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parse ignore file %s", path)
	}
	return patterns, nil
}

// GitignorePatterns converts .gitignore lines into matcher patterns:
//   - '#' comments and blank lines are dropped
//   - '!' negation is kept
//   - a pattern without an inner '/' matches at any depth ("**/" prefix)
//   - a leading '/' anchors to the root and is removed
//   - a trailing '/' is removed; directory-only semantics are not kept, so
//     "build/" also ignores a plain file named build
func GitignorePatterns(data []byte) []string {
	var out []string
	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimRight(s.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		neg := false
		if strings.HasPrefix(line, "!") {
			neg = true
			line = line[1:]
		}
		line = strings.TrimSuffix(line, "/")
		anchored := strings.Contains(line, "/")
		line = strings.TrimPrefix(line, "/")
		if line == "" {
			continue
		}
		if !anchored && !strings.HasPrefix(line, "**/") {
			line = "**/" + line
		}
		if neg {
			line = "!" + line
		}
		out = append(out, line)
	}
	return out
}

// ReadGitignore loads and converts a .gitignore file. A missing file yields
// no patterns.
func ReadGitignore(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return GitignorePatterns(raw), nil
}
