// Package ziputil writes reproducible ZIP archives: every entry carries the
// same timestamp and mode, and entry names never escape the archive root.
package ziputil

import (
	"archive/zip"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FixedZipTime is stamped on every entry (1980-01-01 UTC, the ZIP epoch).
var FixedZipTime = time.Unix(315532800, 0).UTC()

// SanitizePath turns p into a slash-separated relative entry name. Drive
// letters and leading slashes are dropped; ".." never climbs above the root.
func SanitizePath(p string) string {
	s := strings.ReplaceAll(p, `\`, "/")
	if len(s) > 1 && s[1] == ':' {
		s = s[2:]
	}
	var stack []string
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".":
		case "..":
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
		default:
			stack = append(stack, part)
		}
	}
	if len(stack) == 0 {
		return "entry"
	}
	return strings.Join(stack, "/")
}

// EnsureUniqueName records name in used, suffixing -1, -2, ... before the
// extension when it is taken.
func EnsureUniqueName(name string, used map[string]struct{}) string {
	candidate := name
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 1; ; n++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(n) + ext
	}
}

func create(zw *zip.Writer, name string) (io.Writer, error) {
	h := &zip.FileHeader{Name: SanitizePath(name), Method: zip.Deflate, Modified: FixedZipTime}
	h.SetMode(0o644)
	w, err := zw.CreateHeader(h)
	return w, errors.Wrapf(err, "create %s", name)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(zw *zip.Writer, name string, v any) error {
	w, err := create(zw, name)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrapf(enc.Encode(v), "write %s", name)
}

// WriteText writes data verbatim.
func WriteText(zw *zip.Writer, name string, data []byte) error {
	w, err := create(zw, name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.Wrapf(err, "write %s", name)
}
