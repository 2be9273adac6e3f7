// Package main is the scaffoldr CLI. It composes generator trees from a
// project definition, writes their output into a working directory and
// reconciles that output with the developer's edits across regenerations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"scaffoldr/internal/config"
	"scaffoldr/internal/logging"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

// errDifferences signals that diff --exit-code found differences. It is
// reported through the exit status only.
var errDifferences = errors.New("differences found")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	opts       config.Options
	configPath string
	log        logr.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{opts: config.Defaults(), log: logr.Discard()}
	cmd := &cobra.Command{
		Use:           "scaffoldr",
		Short:         "Generate projects from composable generator trees",
		Long:          "scaffoldr builds every package of a project definition from a tree of generators, writes the result and keeps it reconciled with hand edits.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv(config.EnvPrefix+"_CONFIG"), "Config file (default: scaffoldr.yaml in the working directory, if present)")
	a.opts.BindFlags(cmd.PersistentFlags())
	cmd.AddCommand(
		newGenerateCommand(a),
		newDiffCommand(a),
		newGraphCommand(a),
		newSnapshotCommand(a),
		newTemplatesCommand(a),
		newVersionCommand(),
	)
	cmd.Example = `  # Generate every package of scaffoldr.project.yaml
  scaffoldr generate

  # Show how the working copy drifted from a fresh generation
  scaffoldr diff --package web

  # Keep the current hand edits across future regenerations
  scaffoldr snapshot save`
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	root := cmd.Root()
	if err := config.Apply(root.PersistentFlags(), a.configPath, a.opts.Directory); err != nil {
		return err
	}
	if err := a.opts.Validate(); err != nil {
		return err
	}
	log, err := logging.NewTo(cmd.ErrOrStderr(), a.opts.LogLevel)
	if err != nil {
		return err
	}
	a.log = log
	switch a.opts.ColorMode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
	return nil
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) || errors.Is(err, errDifferences) {
		return
	}
	message := err.Error()
	if errors.Is(err, context.Canceled) {
		message = fmt.Sprintf("%s\nHint: interrupted; files already written are left in place.", err)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}
