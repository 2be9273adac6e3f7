package generators

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
	"scaffoldr/internal/output"
	"scaffoldr/internal/project"
)

type scriptOptions struct {
	Name            string            `yaml:"name"`
	Command         string            `yaml:"command"`
	DevDependencies map[string]string `yaml:"devDependencies"`
	// RunAfterWrite queues "<manager> run <name>" once files are written.
	RunAfterWrite bool   `yaml:"runAfterWrite"`
	CommandType   string `yaml:"commandType"`
	// Package pins the node-package node to register with.
	Package string `yaml:"package"`
}

func (c *catalogue) scriptTasks(env project.Env, raw *yaml.Node) ([]*generator.Task, error) {
	var opts scriptOptions
	if err := project.DecodeOptions(raw, &opts); err != nil {
		return nil, err
	}
	if opts.Name == "" || opts.Command == "" {
		return nil, fmt.Errorf("script needs both name and command")
	}
	typ := output.CommandScript
	if opts.CommandType != "" {
		t, ok := output.ParseCommandType(opts.CommandType)
		if !ok {
			return nil, fmt.Errorf("unknown command type %q", opts.CommandType)
		}
		typ = t
	}
	dep := c.nodePackage.Dependency()
	if opts.Package != "" {
		dep = dep.Reference(opts.Package)
	}

	run := func(_ context.Context, deps generator.Providers) (*generator.TaskResult, error) {
		pkg, err := generator.MustLookup[*NodePackage](deps, "package")
		if err != nil {
			return nil, err
		}
		if err := pkg.AddScript(opts.Name, opts.Command); err != nil {
			return nil, err
		}
		for name, v := range opts.DevDependencies {
			pkg.AddDevDependency(name, v)
		}
		if !opts.RunAfterWrite {
			return &generator.TaskResult{}, nil
		}
		return &generator.TaskResult{
			Build: func(_ context.Context, b *output.Builder) error {
				return b.AddPostWriteCommand(pkg.Manager.RunCommand(opts.Name), typ, output.CommandOptions{
					WorkingDirectory: pkg.Directory,
				})
			},
		}, nil
	}

	return []*generator.Task{{
		Name:         generator.DefaultTaskName,
		Dependencies: map[string]capability.Dependency{"package": dep},
		Run:          run,
	}}, nil
}
