// Package writer commits reconciled output to a package directory and runs
// the queued post-write commands.
package writer

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"scaffoldr/internal/fsutil"
	"scaffoldr/internal/output"
	"scaffoldr/internal/sortutil"
)

// Options tunes Write and RunCommands.
type Options struct {
	// SkipCommands writes files but runs no command.
	SkipCommands bool
	// CommandTimeout bounds each command; 0 means no limit.
	CommandTimeout time.Duration
	Stdout         io.Writer
	Stderr         io.Writer
	Logger         logr.Logger
}

func (o Options) logger() logr.Logger {
	if o.Logger.GetSink() == nil {
		return logr.Discard()
	}
	return o.Logger
}

// Result describes what Write did.
type Result struct {
	// Written lists files created or changed.
	Written []string
	// Unchanged lists files whose contents already matched.
	Unchanged []string
	// Preserved lists NeverOverwrite files left as they were.
	Preserved []string
	Commands  []CommandResult
}

// CommandResult is the outcome of one post-write command.
type CommandResult struct {
	Command  output.Command
	Ran      bool
	Skipped  string // reason when not run
	Duration time.Duration
}

// CommandError reports a failed post-write command.
type CommandError struct {
	Command string
	Dir     string
	Err     error
}

func (e *CommandError) Error() string {
	return "command `" + e.Command + "` in " + e.Dir + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error { return e.Err }

// Write stores files under dir, then runs out's post-write commands. files
// holds the final contents by path (formatted and with stored edits
// replayed); out supplies write options and commands. Only files whose
// contents differ are rewritten.
func Write(ctx context.Context, dir string, files map[string][]byte, out *output.Output, opts Options) (*Result, error) {
	log := opts.logger()
	res := &Result{}
	for _, p := range sortutil.SortedKeys(files) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		target := filepath.Join(dir, filepath.FromSlash(p))
		existing, exists, err := fsutil.ReadFileIfExists(target)
		if err != nil {
			return res, errors.Wrapf(err, "read %s", p)
		}
		if exists && out.Files[p].Options.NeverOverwrite {
			res.Preserved = append(res.Preserved, p)
			continue
		}
		if exists && bytes.Equal(existing, files[p]) {
			res.Unchanged = append(res.Unchanged, p)
			continue
		}
		if err := fsutil.WriteFileAtomic(target, files[p], 0o644); err != nil {
			return res, errors.Wrapf(err, "write %s", p)
		}
		res.Written = append(res.Written, p)
	}
	log.V(1).Info("files written", "dir", dir, "written", len(res.Written), "unchanged", len(res.Unchanged), "preserved", len(res.Preserved))

	if opts.SkipCommands {
		for _, c := range out.PostWriteCommands {
			res.Commands = append(res.Commands, CommandResult{Command: c, Skipped: "commands disabled"})
		}
		return res, nil
	}
	cmds, err := RunCommands(ctx, dir, out.PostWriteCommands, res.Written, opts)
	res.Commands = cmds
	return res, err
}

// RunCommands runs cmds in order from dir. A command with OnlyIfChanged runs
// only when one of those paths is in changed. The first failure stops the
// run.
func RunCommands(ctx context.Context, dir string, cmds []output.Command, changed []string, opts Options) ([]CommandResult, error) {
	log := opts.logger()
	changedSet := make(map[string]struct{}, len(changed))
	for _, p := range changed {
		changedSet[p] = struct{}{}
	}

	var results []CommandResult
	for _, c := range cmds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if len(c.Options.OnlyIfChanged) > 0 && !anyChanged(c.Options.OnlyIfChanged, changedSet) {
			results = append(results, CommandResult{Command: c, Skipped: "no watched file changed"})
			log.V(1).Info("skipping command", "command", c.Command, "type", c.Type.String())
			continue
		}
		workDir := filepath.Join(dir, filepath.FromSlash(c.Options.WorkingDirectory))
		log.Info("running command", "command", c.Command, "dir", workDir)
		start := time.Now()
		err := run(ctx, workDir, c, opts)
		results = append(results, CommandResult{Command: c, Ran: true, Duration: time.Since(start)})
		if err != nil {
			return results, &CommandError{Command: c.Command, Dir: workDir, Err: err}
		}
	}
	return results, nil
}

func run(ctx context.Context, dir string, c output.Command, opts Options) error {
	args, err := Argv(c.Command)
	if err != nil {
		return err
	}
	timeout := c.Options.Timeout
	if timeout == 0 {
		timeout = opts.CommandTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = orDiscard(opts.Stdout)
	cmd.Stderr = orDiscard(opts.Stderr)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "command interrupted")
		}
		return err
	}
	return nil
}

// Argv splits command into arguments. Commands using shell operators (pipes,
// lists, redirects) run through "sh -c".
func Argv(command string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parse command %q", command)
	}
	if p.Position >= 0 {
		return []string{"sh", "-c", command}, nil
	}
	if len(args) == 0 {
		return nil, errors.Errorf("empty command %q", command)
	}
	return args, nil
}

func anyChanged(paths []string, changed map[string]struct{}) bool {
	for _, p := range paths {
		if _, ok := changed[p]; ok {
			return true
		}
	}
	return false
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
