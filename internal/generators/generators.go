// Package generators holds the built-in generator catalogue:
//
//   - node-package: owns a package.json; exports it so descendants can add
//     scripts and dependencies during run, then writes it during build
//   - script: adds a package.json script and optionally runs it after write
//   - static-files: renders inline files or an extracted template
package generators

import (
	"github.com/pkg/errors"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/project"
)

// Capability names exported by the built-in generators.
const (
	CapNodePackage = "node-package"
)

// Generator names.
const (
	NodePackageGenerator = "node-package"
	ScriptGenerator      = "script"
	StaticFilesGenerator = "static-files"
)

// Register adds the built-in capability types and generators to reg.
func Register(reg *project.Registry) error {
	nodePkg, err := reg.Capabilities.Register(CapNodePackage)
	if err != nil {
		return errors.Wrap(err, "register capabilities")
	}
	caps := &catalogue{nodePackage: nodePkg}
	for name, f := range map[string]project.Factory{
		NodePackageGenerator: caps.nodePackageTasks,
		ScriptGenerator:      caps.scriptTasks,
		StaticFilesGenerator: caps.staticFilesTasks,
	} {
		if err := reg.Register(name, f); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry with the built-in catalogue registered.
func NewRegistry() (*project.Registry, error) {
	reg := project.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

type catalogue struct {
	nodePackage *capability.Type
}
