// Package project loads a project definition and compiles each of its
// packages into a generator node tree.
//
// A definition is YAML:
//
//	name: shop
//	packages:
//	  - name: web
//	    directory: packages/web
//	    root:
//	      generator: node-package
//	      options: {name: "@shop/web"}
//	      children:
//	        - name: lint
//	          generator: script
//	          options: {name: lint, command: eslint .}
package project

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Project is a parsed project definition.
type Project struct {
	Name     string    `yaml:"name"`
	Packages []Package `yaml:"packages"`
}

// Package is one independently generated unit, written into Directory.
type Package struct {
	Name      string   `yaml:"name"`
	Directory string   `yaml:"directory"`
	Root      NodeSpec `yaml:"root"`
}

// NodeSpec describes one generator node and its children.
type NodeSpec struct {
	// Name becomes the last segment of the node id; the child index is used
	// when empty.
	Name      string     `yaml:"name,omitempty"`
	Generator string     `yaml:"generator"`
	Peer      bool       `yaml:"peer,omitempty"`
	Hoist     []string   `yaml:"hoist,omitempty"`
	Options   yaml.Node  `yaml:"options,omitempty"`
	Children  []NodeSpec `yaml:"children,omitempty"`
}

// HasOptions reports whether the node carries an options block.
func (n *NodeSpec) HasOptions() bool {
	return n.Options.Kind != 0
}

// Load reads and parses the definition at path.
func Load(path string) (*Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read project definition")
	}
	p, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return p, nil
}

// Parse decodes a definition. Unknown fields are rejected.
func Parse(data []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Project
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty project definition")
		}
		return nil, err
	}
	return &p, nil
}

// Package returns the package with the given name.
func (p *Project) Package(name string) (Package, bool) {
	for _, pkg := range p.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return Package{}, false
}

// Select returns the packages named in names, in definition order. An empty
// names selects every package.
func (p *Project) Select(names []string) ([]Package, error) {
	if len(names) == 0 {
		return append([]Package(nil), p.Packages...), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := p.Package(n); !ok {
			return nil, errors.Errorf("unknown package %q", n)
		}
		want[n] = true
	}
	var out []Package
	for _, pkg := range p.Packages {
		if want[pkg.Name] {
			out = append(out, pkg)
		}
	}
	return out, nil
}
