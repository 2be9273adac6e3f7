package output

import (
	"sort"
	"strings"

	"scaffoldr/internal/textutil"
)

// Builder is the shared accumulator handed to every task's build phase.
type Builder struct {
	files      map[string]FileData
	commands   []Command
	formatters []Formatter
	claimed    map[string]string // extension -> formatter name
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		files:   make(map[string]FileData),
		claimed: make(map[string]string),
	}
}

// WriteFile records a generated file. id identifies the writer (typically
// the generator task) for error messages and write tracking.
func (b *Builder) WriteFile(id, p string, contents []byte, opts WriteOptions) error {
	norm, err := NormalizePath(p)
	if err != nil {
		return err
	}
	if prev, exists := b.files[norm]; exists {
		return &DuplicateFileWriteError{Path: norm, FirstID: prev.ID, SecondID: id}
	}
	if opts.ShouldFormat && textutil.IsBinary(contents) {
		return &BinaryFormatError{Path: norm, ID: id}
	}
	data := make([]byte, len(contents))
	copy(data, contents)
	b.files[norm] = FileData{ID: id, Contents: data, Options: opts}
	return nil
}

// AddPostWriteCommand queues a command to run after files are written.
func (b *Builder) AddPostWriteCommand(command string, typ CommandType, opts CommandOptions) error {
	if strings.TrimSpace(command) == "" {
		return &InvalidCommandError{Reason: "empty command"}
	}
	if typ < CommandDependencyInstall || typ > CommandScript {
		return &InvalidCommandError{Command: command, Reason: "unknown command type"}
	}
	only := make([]string, 0, len(opts.OnlyIfChanged))
	for _, p := range opts.OnlyIfChanged {
		norm, err := NormalizePath(p)
		if err != nil {
			return err
		}
		only = append(only, norm)
	}
	opts.OnlyIfChanged = only
	b.commands = append(b.commands, Command{Command: command, Type: typ, Options: opts})
	return nil
}

// AddGlobalFormatter registers f for the extensions it claims. Two formatters
// may not claim the same extension.
func (b *Builder) AddGlobalFormatter(f Formatter) error {
	exts := f.Extensions()
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		key := strings.ToLower(ext)
		if owner, taken := b.claimed[key]; taken {
			return &FormatterConflictError{Extension: key, Existing: owner, Incoming: f.Name()}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
	}
	for key := range seen {
		b.claimed[key] = f.Name()
	}
	b.formatters = append(b.formatters, f)
	return nil
}

// HasFormatter reports whether a formatter named name is registered.
func (b *Builder) HasFormatter(name string) bool {
	for _, f := range b.formatters {
		if f.Name() == name {
			return true
		}
	}
	return false
}

// Output returns the accumulated output with post-write commands ordered by
// type priority. Commands of the same type keep their emission order.
func (b *Builder) Output() *Output {
	files := make(map[string]FileData, len(b.files))
	for k, v := range b.files {
		files[k] = v
	}
	cmds := make([]Command, len(b.commands))
	copy(cmds, b.commands)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Type < cmds[j].Type })
	formatters := make([]Formatter, len(b.formatters))
	copy(formatters, b.formatters)
	return &Output{Files: files, PostWriteCommands: cmds, GlobalFormatters: formatters}
}
