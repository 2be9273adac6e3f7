package textutil

import (
	"bytes"
	"unicode/utf8"
)

// binarySniffLen bounds how much of a file IsBinary inspects.
const binarySniffLen = 8000

// IsBinary reports whether b looks like binary content: it contains a NUL
// byte or is not valid UTF-8 within the sniffed prefix.
func IsBinary(b []byte) bool {
	head := b
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
		// Do not split a multi-byte rune at the cut.
		for i := 0; i < utf8.UTFMax && len(head) > 0 && !utf8.RuneStart(b[len(head)]); i++ {
			head = head[:len(head)-1]
		}
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	return !utf8.Valid(head)
}

// NormalizeUTF8LF converts CRLF to LF and ensures the output is valid UTF-8
// by replacing invalid byte sequences with the Unicode replacement character.
func NormalizeUTF8LF(b []byte) []byte {
	// Normalize newlines first
	b = bytes.ReplaceAll(b, []byte("\r\n"), []byte("\n"))
	b = bytes.ReplaceAll(b, []byte("\r"), []byte("\n"))
	// Ensure valid UTF-8
	return bytes.ToValidUTF8(b, []byte("�"))
}

// EnsureTrailingLF appends a single \n if not already present.
func EnsureTrailingLF(b []byte) []byte {
	if len(b) == 0 || b[len(b)-1] == '\n' {
		return b
	}
	return append(b, '\n')
}
