package output

import (
	"fmt"

	"scaffoldr/internal/capability"
)

// DuplicateFileWriteError reports a second write to an already-written path.
type DuplicateFileWriteError struct {
	Path     string
	FirstID  string
	SecondID string
}

func (e *DuplicateFileWriteError) Error() string {
	return fmt.Sprintf("file %q written twice (first by %s, then by %s)", e.Path, e.FirstID, e.SecondID)
}

func (e *DuplicateFileWriteError) Unwrap() error { return capability.ErrConfiguration }

// BinaryFormatError reports binary contents that requested text formatting.
type BinaryFormatError struct {
	Path string
	ID   string
}

func (e *BinaryFormatError) Error() string {
	return fmt.Sprintf("file %q from %s is binary and cannot be formatted", e.Path, e.ID)
}

func (e *BinaryFormatError) Unwrap() error { return capability.ErrConfiguration }

// InvalidPathError reports an output path that is absolute or escapes the root.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid output path %q: must be relative and stay inside the package", e.Path)
}

func (e *InvalidPathError) Unwrap() error { return capability.ErrConfiguration }

// FormatterConflictError reports two formatters claiming one extension.
type FormatterConflictError struct {
	Extension string
	Existing  string
	Incoming  string
}

func (e *FormatterConflictError) Error() string {
	return fmt.Sprintf("formatter %s claims extension %s already claimed by %s", e.Incoming, e.Extension, e.Existing)
}

func (e *FormatterConflictError) Unwrap() error { return capability.ErrConfiguration }

// InvalidCommandError reports a malformed post-write command.
type InvalidCommandError struct {
	Command string
	Reason  string
}

func (e *InvalidCommandError) Error() string {
	if e.Command == "" {
		return "invalid post-write command: " + e.Reason
	}
	return fmt.Sprintf("invalid post-write command %q: %s", e.Command, e.Reason)
}

func (e *InvalidCommandError) Unwrap() error { return capability.ErrConfiguration }

// FormatError wraps a formatter failure.
type FormatError struct {
	Path      string
	Formatter string
	Err       error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s with %s: %v", e.Path, e.Formatter, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
