// Package diff produces and applies unified diffs for generated files.
// Generation uses github.com/pmezard/go-difflib/difflib to produce classic
// unified patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-',
// '+'). Apply parses a patch with github.com/bluekeyes/go-gitdiff and replays
// it onto a fresh copy of the original, tolerating shifted line positions.
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// NoNewlineMarker follows a line that has no trailing newline.
const NoNewlineMarker = `\ No newline at end of file`

// DefaultContext is the number of context lines when Options.Context is 0.
const DefaultContext = 3

// Options controls patch generation behavior.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded,
	// a minimal placeholder patch is returned and oversize=true.
	// 0 means "no limit".
	MaxBytes int

	// Context controls the number of context lines in unified hunks.
	Context int
}

func (o Options) context() int {
	if o.Context <= 0 {
		return DefaultContext
	}
	return o.Context
}

// Unified produces a classic unified patch for a↦b. An empty result means
// the inputs are identical.
func Unified(aName, bName string, a, b []byte, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && (len(a)+len(b)) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	u := difflib.UnifiedDiff{
		A:        splitLines(string(a)),
		B:        splitLines(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  opt.context(),
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// Added produces a patch that adds the entire content b (no old version).
func Added(bName string, b []byte, opt Options) (string, bool) {
	return Unified("/dev/null", bName, nil, b, opt)
}

// Removed produces a patch that deletes the entire content a.
func Removed(aName string, a []byte, opt Options) (string, bool) {
	return Unified(aName, "/dev/null", a, nil, opt)
}

// splitLines splits into lines keeping newline characters. A final line
// without a newline carries the marker, so "x" and "x\n" differ line-wise and
// the patch records which side lacks the newline.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	last := len(lines) - 1
	if lines[last] == "" {
		return lines[:last]
	}
	lines[last] += "\n" + NoNewlineMarker + "\n"
	return lines
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
