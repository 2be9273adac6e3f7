// Package config defines the flag plumbing and runtime options shared by the
// scaffoldr commands. Values come from flags, SCAFFOLDR_* environment
// variables and an optional scaffoldr.yaml, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCAFFOLDR"

// ConfigName is the base name of the optional config file.
const ConfigName = "scaffoldr"

// Options holds all CLI configuration.
type Options struct {
	LogLevel       string
	ProjectFile    string
	Directory      string
	Packages       []string
	SnapshotDir    string
	TemplatesDir   string
	Include        []string
	Ignore         []string
	IgnoreFile     string
	SkipGitignore  bool
	DiffContext    int
	MaxDiffBytes   int
	Concurrency    int
	CommandTimeout time.Duration
	SkipCommands   bool
	ColorMode      string
}

// Defaults returns an Options with every default applied.
func Defaults() Options {
	return Options{
		LogLevel:       "info",
		ProjectFile:    "scaffoldr.project.yaml",
		Directory:      ".",
		SnapshotDir:    ".scaffoldr/snapshot",
		TemplatesDir:   ".scaffoldr/templates",
		IgnoreFile:     ".scaffoldrignore",
		DiffContext:    3,
		Concurrency:    4,
		CommandTimeout: 10 * time.Minute,
		ColorMode:      "auto",
	}
}

// BindFlags attaches the shared flags to fs and returns their names.
func (o *Options) BindFlags(fs *pflag.FlagSet) []string {
	d := Defaults()
	var names []string
	fs.StringVar(&o.LogLevel, "log-level", d.LogLevel, "Log verbosity: debug, info, warn or error")
	names = append(names, "log-level")
	fs.StringVarP(&o.ProjectFile, "project", "p", d.ProjectFile, "Project definition file")
	names = append(names, "project")
	fs.StringVarP(&o.Directory, "dir", "C", d.Directory, "Working directory the project is generated into")
	names = append(names, "dir")
	fs.StringSliceVar(&o.Packages, "package", nil, "Only process the named packages (repeat or comma-separate)")
	names = append(names, "package")
	fs.StringVar(&o.SnapshotDir, "snapshot-dir", d.SnapshotDir, "Snapshot directory, relative to each package directory")
	names = append(names, "snapshot-dir")
	fs.StringVar(&o.TemplatesDir, "templates-dir", d.TemplatesDir, "Templates directory, relative to the working directory")
	names = append(names, "templates-dir")
	fs.StringSliceVar(&o.Include, "include", nil, "Only compare paths matching these globs")
	names = append(names, "include")
	fs.StringSliceVar(&o.Ignore, "ignore", nil, "Ignore paths matching these patterns")
	names = append(names, "ignore")
	fs.StringVar(&o.IgnoreFile, "ignore-file", d.IgnoreFile, "File with additional ignore patterns, relative to each package directory")
	names = append(names, "ignore-file")
	fs.BoolVar(&o.SkipGitignore, "no-gitignore", false, "Do not honor .gitignore when scanning the working directory")
	names = append(names, "no-gitignore")
	fs.IntVar(&o.DiffContext, "diff-context", d.DiffContext, "Context lines in unified diffs")
	names = append(names, "diff-context")
	fs.IntVar(&o.MaxDiffBytes, "max-diff-bytes", 0, "Replace larger diffs with a placeholder (0 = no limit)")
	names = append(names, "max-diff-bytes")
	fs.IntVarP(&o.Concurrency, "concurrency", "j", d.Concurrency, "Packages and files processed in parallel")
	names = append(names, "concurrency")
	fs.DurationVar(&o.CommandTimeout, "command-timeout", d.CommandTimeout, "Timeout for each post-write command")
	names = append(names, "command-timeout")
	fs.BoolVar(&o.SkipCommands, "skip-commands", false, "Write files but do not run post-write commands")
	names = append(names, "skip-commands")
	fs.StringVar(&o.ColorMode, "color", d.ColorMode, "Color output: auto, always or never")
	names = append(names, "color")
	return names
}

// Validate checks option values after flags and overrides are applied.
func (o *Options) Validate() error {
	switch strings.ToLower(o.ColorMode) {
	case "auto", "always", "never":
		o.ColorMode = strings.ToLower(o.ColorMode)
	default:
		return fmt.Errorf("invalid --color %q (expected auto, always, or never)", o.ColorMode)
	}
	if o.DiffContext < 0 {
		return fmt.Errorf("--diff-context must not be negative")
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}
	if o.CommandTimeout < 0 {
		return fmt.Errorf("--command-timeout must not be negative")
	}
	if strings.TrimSpace(o.ProjectFile) == "" {
		return fmt.Errorf("--project must not be empty")
	}
	return nil
}

// Apply fills flags the user did not set from the environment and the config
// file. explicitPath, when non-empty, must exist; otherwise scaffoldr.yaml is
// looked up in searchDirs and may be absent.
func Apply(fs *pflag.FlagSet, explicitPath string, searchDirs ...string) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, dir := range searchDirs {
			v.AddConfigPath(dir)
		}
	}
	if err := v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	if err := readConfigFile(v, explicitPath != ""); err != nil {
		return err
	}

	var setErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if setErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(v.GetStringSlice(f.Name)); err != nil {
				setErr = errors.Wrapf(err, "apply %s", f.Name)
			}
			return
		}
		val := fmt.Sprintf("%v", v.Get(f.Name))
		if val == "" {
			return
		}
		if err := f.Value.Set(val); err != nil {
			setErr = errors.Wrapf(err, "apply %s=%q", f.Name, val)
		}
	})
	return setErr
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		if os.IsNotExist(err) && !strict {
			return nil
		}
		return errors.Wrap(err, "read config")
	}
	return nil
}
