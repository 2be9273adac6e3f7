package project

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
)

// Env is what a generator factory knows about the node it builds.
type Env struct {
	ProjectName string
	PackageName string
	NodeID      string
	// Dir is the package directory on disk.
	Dir string
	// ProjectRoot is the directory holding the project definition.
	ProjectRoot string
	// TemplatesDir holds extracted templates; may not exist.
	TemplatesDir string
	Capabilities *capability.Registry
}

// Factory builds the tasks of one node from its options block. opts is nil
// when the node has no options.
type Factory func(env Env, opts *yaml.Node) ([]*generator.Task, error)

// Registry holds the generator factories and capability types of one
// invocation.
type Registry struct {
	Capabilities *capability.Registry
	factories    map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Capabilities: capability.NewRegistry(),
		factories:    make(map[string]Factory),
	}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("generator registration needs a name and a factory")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("generator %q is already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered generator names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DecodeOptions decodes opts into v; a nil opts leaves v untouched.
func DecodeOptions(opts *yaml.Node, v any) error {
	if opts == nil || opts.Kind == 0 {
		return nil
	}
	return opts.Decode(v)
}
