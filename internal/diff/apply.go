package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ParseError reports a patch that is not a well-formed unified diff.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed patch: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError reports a hunk whose context no longer matches the original.
type ConflictError struct {
	Hunk     int // 1-based
	OldStart int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("hunk #%d (at line %d) does not apply", e.Hunk, e.OldStart)
}

type hunk struct {
	oldStart, oldCount int
	old, new           []string
}

// Apply replays a unified patch onto original. Hunks are located at their
// recorded position, or the nearest offset where their context matches;
// a hunk that matches nowhere yields *ConflictError.
func Apply(original []byte, patch string) ([]byte, error) {
	if strings.TrimSpace(patch) == "" {
		return original, nil
	}
	hunks, err := parseHunks(patch)
	if err != nil {
		return nil, err
	}
	src := strings.SplitAfter(string(original), "\n")
	if src[len(src)-1] == "" {
		src = src[:len(src)-1]
	}

	var out []string
	pos := 0
	for i, h := range hunks {
		want := h.oldStart - 1
		if h.oldCount == 0 {
			want = h.oldStart
		}
		at, ok := locate(src, h.old, want, pos)
		if !ok {
			return nil, &ConflictError{Hunk: i + 1, OldStart: h.oldStart}
		}
		out = append(out, src[pos:at]...)
		out = append(out, h.new...)
		pos = at + len(h.old)
	}
	out = append(out, src[pos:]...)
	return []byte(strings.Join(out, "")), nil
}

// locate finds the first index >= floor where old matches src, searching
// outward from want.
func locate(src, old []string, want, floor int) (int, bool) {
	if want < floor {
		want = floor
	}
	limit := len(src) - len(old)
	for off := 0; ; off++ {
		below, above := want-off, want+off
		if below < floor && above > limit {
			return 0, false
		}
		if above <= limit && matchAt(src, old, above) {
			return above, true
		}
		if off > 0 && below >= floor && below <= limit && matchAt(src, old, below) {
			return below, true
		}
	}
}

func matchAt(src, old []string, at int) bool {
	if at < 0 || at+len(old) > len(src) {
		return false
	}
	for i, line := range old {
		if src[at+i] != line {
			return false
		}
	}
	return true
}

// parseHunks reads the fragments of a single-file patch. gitdiff keeps the
// trailing newline on each line and strips it where a no-newline marker
// follows.
func parseHunks(patch string) ([]hunk, error) {
	files, _, err := gitdiff.Parse(strings.NewReader(patch))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	switch {
	case len(files) == 0:
		return nil, &ParseError{Err: fmt.Errorf("no file header or hunks found")}
	case len(files) > 1:
		return nil, &ParseError{Err: fmt.Errorf("patch touches %d files, want 1", len(files))}
	case files[0].IsBinary:
		return nil, &ParseError{Err: fmt.Errorf("binary patch")}
	}

	hunks := make([]hunk, 0, len(files[0].TextFragments))
	for _, frag := range files[0].TextFragments {
		h := hunk{oldStart: int(frag.OldPosition), oldCount: int(frag.OldLines)}
		for _, l := range frag.Lines {
			switch l.Op {
			case gitdiff.OpContext:
				h.old = append(h.old, l.Line)
				h.new = append(h.new, l.Line)
			case gitdiff.OpDelete:
				h.old = append(h.old, l.Line)
			case gitdiff.OpAdd:
				h.new = append(h.new, l.Line)
			}
		}
		hunks = append(hunks, h)
	}
	return hunks, nil
}
