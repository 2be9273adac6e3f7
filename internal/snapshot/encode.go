package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const diffSuffix = ".diff"

// invalidFileCharsRe contains characters that are invalid in Windows filenames.
var invalidFileCharsRe = regexp.MustCompile(`[:*?"<>|]`)

// EncodePath turns a relative path into a flat diff file name by replacing
// both separators and characters Windows rejects with '_'. The mapping is
// one-way: "a/b", "a_b" and "a:b" share a name, and Save hash-suffixes
// collisions. The manifest is what maps paths back to their files.
func EncodePath(p string) string {
	s := strings.NewReplacer("/", "_", `\`, "_").Replace(p)
	s = invalidFileCharsRe.ReplaceAllString(s, "_")
	return s + diffSuffix
}

// shortHash returns the first 8 hex characters of the SHA-256 hash of s.
func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// uniqueDiffName returns name, or a hash-suffixed variant when two paths
// encode to the same name ("a_b" and "a/b").
func uniqueDiffName(name, p string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		return name
	}
	base := strings.TrimSuffix(name, diffSuffix)
	alt := base + "-" + shortHash(p) + diffSuffix
	if _, ok := used[alt]; !ok {
		return alt
	}
	return base + "-" + shortHash(p) + "-" + shortHash(base+p) + diffSuffix
}

func validDiffName(name string) bool {
	return strings.HasSuffix(name, diffSuffix) &&
		!strings.ContainsAny(name, `/\`) &&
		name != diffSuffix &&
		!strings.HasPrefix(name, "..")
}
