// Package output accumulates what generator tasks produce during the build
// phase: files, post-write commands and global formatters.
//
// The Builder is write-once per path: a second write to the same normalized
// path is an error, never a silent overwrite. Tasks run one at a time, so the
// builder does no locking.
package output

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"scaffoldr/internal/textutil"
)

// WriteOptions controls how a generated file is written.
type WriteOptions struct {
	// ShouldFormat runs the global formatter claiming the file's extension.
	ShouldFormat bool
	// NeverOverwrite writes the file only when it does not exist yet.
	NeverOverwrite bool
}

// FileData is one generated file.
type FileData struct {
	ID       string
	Contents []byte
	Options  WriteOptions
}

// IsBinary reports whether the contents look binary.
func (f FileData) IsBinary() bool { return textutil.IsBinary(f.Contents) }

// CommandType orders post-write commands. Lower values run first.
type CommandType int

const (
	CommandDependencyInstall CommandType = iota
	CommandGeneration
	CommandScript
)

func (t CommandType) String() string {
	switch t {
	case CommandDependencyInstall:
		return "dependency-install"
	case CommandGeneration:
		return "generation"
	case CommandScript:
		return "script"
	default:
		return "unknown"
	}
}

// ParseCommandType maps the kebab-case name back to a CommandType.
func ParseCommandType(s string) (CommandType, bool) {
	switch s {
	case "dependency-install":
		return CommandDependencyInstall, true
	case "generation":
		return CommandGeneration, true
	case "script":
		return CommandScript, true
	}
	return 0, false
}

// CommandOptions tunes how the writer runs a command.
type CommandOptions struct {
	// WorkingDirectory is relative to the package directory.
	WorkingDirectory string
	// OnlyIfChanged restricts the command to runs that changed one of these
	// paths. Empty means always run.
	OnlyIfChanged []string
	// Timeout bounds the command; zero uses the writer default.
	Timeout time.Duration
}

// Command is a post-write command.
type Command struct {
	Command string
	Type    CommandType
	Options CommandOptions
}

// Formatter rewrites generated files of the extensions it claims.
type Formatter interface {
	Name() string
	// Extensions returns the claimed extensions including the dot (".json").
	Extensions() []string
	Format(ctx context.Context, path string, contents []byte) ([]byte, error)
}

// Output is the result of one engine invocation.
type Output struct {
	Files             map[string]FileData
	PostWriteCommands []Command
	GlobalFormatters  []Formatter
}

// Paths returns the generated paths in sorted order.
func (o *Output) Paths() []string {
	out := make([]string, 0, len(o.Files))
	for p := range o.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FormatterFor returns the formatter claiming p's extension, if any.
func (o *Output) FormatterFor(p string) Formatter {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == "" {
		return nil
	}
	for _, f := range o.GlobalFormatters {
		for _, claimed := range f.Extensions() {
			if strings.ToLower(claimed) == ext {
				return f
			}
		}
	}
	return nil
}

// FormatFile returns the contents of p after formatting, when the file
// asked for it and a formatter claims its extension.
func (o *Output) FormatFile(ctx context.Context, p string) ([]byte, error) {
	f, ok := o.Files[p]
	if !ok {
		return nil, nil
	}
	if !f.Options.ShouldFormat {
		return f.Contents, nil
	}
	formatter := o.FormatterFor(p)
	if formatter == nil {
		return f.Contents, nil
	}
	formatted, err := formatter.Format(ctx, p, f.Contents)
	if err != nil {
		return nil, &FormatError{Path: p, Formatter: formatter.Name(), Err: err}
	}
	return formatted, nil
}

// NormalizePath cleans p into a slash-separated path relative to the output
// root. Absolute paths and paths escaping the root are rejected.
func NormalizePath(p string) (string, error) {
	s := strings.ReplaceAll(p, `\`, "/")
	if s == "" || strings.HasPrefix(s, "/") || (len(s) > 1 && s[1] == ':') {
		return "", &InvalidPathError{Path: p}
	}
	s = path.Clean(s)
	if s == "." || s == ".." || strings.HasPrefix(s, "../") {
		return "", &InvalidPathError{Path: p}
	}
	return s, nil
}
