package generators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
	"scaffoldr/internal/meta"
	"scaffoldr/internal/output"
	"scaffoldr/internal/project"
	"scaffoldr/internal/textutil"
)

// NodePackage is the provider exported by node-package. Dependents configure
// it during their run; it is written during build.
type NodePackage struct {
	Name            string
	Version         string
	Private         bool
	Type            string
	Description     string
	Scripts         map[string]string
	Dependencies    map[string]string
	DevDependencies map[string]string
	// Directory is where package.json is written, relative to the package.
	Directory string
	// Manager is the package manager used for install and run commands.
	Manager meta.Info
}

// ScriptConflictError reports two different commands for one script name.
type ScriptConflictError struct {
	Name     string
	Existing string
	Incoming string
}

func (e *ScriptConflictError) Error() string {
	return fmt.Sprintf("script %q is already defined as %q, cannot redefine as %q", e.Name, e.Existing, e.Incoming)
}

func (e *ScriptConflictError) Unwrap() error { return capability.ErrConfiguration }

// AddScript registers a package.json script. Re-adding the same command is a
// no-op.
func (p *NodePackage) AddScript(name, command string) error {
	if prev, ok := p.Scripts[name]; ok && prev != command {
		return &ScriptConflictError{Name: name, Existing: prev, Incoming: command}
	}
	if p.Scripts == nil {
		p.Scripts = make(map[string]string)
	}
	p.Scripts[name] = command
	return nil
}

// AddDependency adds or updates a runtime dependency.
func (p *NodePackage) AddDependency(name, version string) {
	if p.Dependencies == nil {
		p.Dependencies = make(map[string]string)
	}
	p.Dependencies[name] = version
}

// AddDevDependency adds or updates a development dependency.
func (p *NodePackage) AddDevDependency(name, version string) {
	if p.DevDependencies == nil {
		p.DevDependencies = make(map[string]string)
	}
	p.DevDependencies[name] = version
}

// Path is the package.json path relative to the package directory.
func (p *NodePackage) Path() string {
	if p.Directory == "" {
		return "package.json"
	}
	return path.Join(p.Directory, "package.json")
}

type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version,omitempty"`
	Description     string            `json:"description,omitempty"`
	Private         bool              `json:"private,omitempty"`
	Type            string            `json:"type,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// JSON renders package.json compactly with sorted maps; the JSON formatter
// indents it.
func (p *NodePackage) JSON() ([]byte, error) {
	return json.Marshal(packageJSON{
		Name:            p.Name,
		Version:         p.Version,
		Description:     p.Description,
		Private:         p.Private,
		Type:            p.Type,
		Scripts:         p.Scripts,
		Dependencies:    p.Dependencies,
		DevDependencies: p.DevDependencies,
	})
}

type nodePackageOptions struct {
	Name            string            `yaml:"name"`
	Version         string            `yaml:"version"`
	Description     string            `yaml:"description"`
	Private         *bool             `yaml:"private"`
	Type            string            `yaml:"type"`
	Directory       string            `yaml:"directory"`
	PackageManager  string            `yaml:"packageManager"`
	Scripts         map[string]string `yaml:"scripts"`
	Dependencies    map[string]string `yaml:"dependencies"`
	DevDependencies map[string]string `yaml:"devDependencies"`
	// Install queues a dependency install after write; defaults to true.
	Install *bool `yaml:"install"`
}

func (c *catalogue) nodePackageTasks(env project.Env, raw *yaml.Node) ([]*generator.Task, error) {
	var opts nodePackageOptions
	if err := project.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = env.PackageName
	}
	if opts.Version == "" {
		opts.Version = "0.1.0"
	}
	if opts.Directory != "" {
		norm, err := output.NormalizePath(opts.Directory)
		if err != nil {
			return nil, err
		}
		opts.Directory = norm
	}
	install := opts.Install == nil || *opts.Install
	private := opts.Private == nil || *opts.Private

	run := func(_ context.Context, _ generator.Providers) (*generator.TaskResult, error) {
		mgr := meta.Detect(env.Dir, firstNonEmpty(env.ProjectRoot, env.Dir))
		if opts.PackageManager != "" {
			mgr.PackageManager = opts.PackageManager
		}
		pkg := &NodePackage{
			Name:        opts.Name,
			Version:     opts.Version,
			Private:     private,
			Type:        opts.Type,
			Description: opts.Description,
			Directory:   opts.Directory,
			Manager:     mgr,
		}
		for name, cmd := range opts.Scripts {
			if err := pkg.AddScript(name, cmd); err != nil {
				return nil, err
			}
		}
		for name, v := range opts.Dependencies {
			pkg.AddDependency(name, v)
		}
		for name, v := range opts.DevDependencies {
			pkg.AddDevDependency(name, v)
		}
		return &generator.TaskResult{
			Providers: map[string]any{CapNodePackage: pkg},
			Build: func(_ context.Context, b *output.Builder) error {
				body, err := pkg.JSON()
				if err != nil {
					return err
				}
				if !b.HasFormatter(jsonFormatterName) {
					if err := b.AddGlobalFormatter(JSONFormatter{}); err != nil {
						return err
					}
				}
				if err := b.WriteFile(env.NodeID, pkg.Path(), body, output.WriteOptions{ShouldFormat: true}); err != nil {
					return err
				}
				if !install {
					return nil
				}
				return b.AddPostWriteCommand(mgr.InstallCommand(), output.CommandDependencyInstall, output.CommandOptions{
					WorkingDirectory: pkg.Directory,
					OnlyIfChanged:    []string{pkg.Path()},
				})
			},
		}, nil
	}

	return []*generator.Task{{
		Name:    generator.DefaultTaskName,
		Exports: map[string]capability.Export{CapNodePackage: c.nodePackage.Export(nil, "")},
		Run:     run,
	}}, nil
}

const jsonFormatterName = "json"

// JSONFormatter re-indents JSON with two spaces and a trailing newline.
type JSONFormatter struct{}

func (JSONFormatter) Name() string         { return jsonFormatterName }
func (JSONFormatter) Extensions() []string { return []string{".json"} }

func (JSONFormatter) Format(_ context.Context, p string, contents []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(contents), "", "  "); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return textutil.EnsureTrailingLF(buf.Bytes()), nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
