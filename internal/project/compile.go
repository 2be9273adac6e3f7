package project

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
)

// CompileOptions carries the invocation context into factories.
type CompileOptions struct {
	ProjectName  string
	ProjectRoot  string
	Dir          string
	TemplatesDir string
}

// UnknownGeneratorError reports a node naming an unregistered generator.
type UnknownGeneratorError struct {
	NodeID    string
	Generator string
}

func (e *UnknownGeneratorError) Error() string {
	return fmt.Sprintf("node %s: unknown generator %q", e.NodeID, e.Generator)
}

func (e *UnknownGeneratorError) Unwrap() error { return capability.ErrConfiguration }

// UnknownCapabilityError reports a hoist entry naming an unregistered
// capability.
type UnknownCapabilityError struct {
	NodeID     string
	Capability string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("node %s: cannot hoist unknown capability %q", e.NodeID, e.Capability)
}

func (e *UnknownCapabilityError) Unwrap() error { return capability.ErrConfiguration }

// Compile builds the node tree of pkg. The root id is the package name and
// each child id is "<parent id>.<child name or index>". All factory errors
// are reported together.
func Compile(pkg Package, reg *Registry, opts CompileOptions) (*generator.Node, error) {
	c := &compiler{reg: reg, opts: opts, pkg: pkg}
	root := c.node(pkg.Root, pkg.Name)
	if c.errs != nil {
		return nil, c.errs
	}
	return root, nil
}

type compiler struct {
	reg  *Registry
	opts CompileOptions
	pkg  Package
	errs error
}

func (c *compiler) node(spec NodeSpec, id string) *generator.Node {
	n := &generator.Node{
		ID:                  id,
		Generator:           spec.Generator,
		IsPeerProvider:      spec.Peer,
		HoistedCapabilities: append([]string(nil), spec.Hoist...),
	}
	for _, h := range spec.Hoist {
		if _, ok := c.reg.Capabilities.Lookup(h); !ok {
			c.errs = multierr.Append(c.errs, &UnknownCapabilityError{NodeID: id, Capability: h})
		}
	}

	factory, ok := c.reg.Lookup(spec.Generator)
	if !ok {
		c.errs = multierr.Append(c.errs, &UnknownGeneratorError{NodeID: id, Generator: spec.Generator})
	} else {
		var opts = &spec.Options
		if !spec.HasOptions() {
			opts = nil
		}
		tasks, err := factory(Env{
			ProjectName:  c.opts.ProjectName,
			PackageName:  c.pkg.Name,
			NodeID:       id,
			Dir:          c.opts.Dir,
			ProjectRoot:  c.opts.ProjectRoot,
			TemplatesDir: c.opts.TemplatesDir,
			Capabilities: c.reg.Capabilities,
		}, opts)
		if err != nil {
			c.errs = multierr.Append(c.errs, errors.Wrapf(err, "node %s (%s)", id, spec.Generator))
		}
		n.Tasks = tasks
	}

	for i, child := range spec.Children {
		seg := child.Name
		if seg == "" {
			seg = strconv.Itoa(i)
		}
		n.Children = append(n.Children, c.node(child, id+"."+seg))
	}
	return n
}
