// Package generator defines the node tree the engine executes: nodes own
// children and tasks; tasks declare capability dependencies and exports and
// supply a two-phase run/build callback.
package generator

import (
	"context"
	"fmt"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/output"
)

// Node is one unit in the composition tree, roughly one plugin instance.
type Node struct {
	ID string
	// Generator names the factory that produced the node; informational.
	Generator string
	// IsPeerProvider makes the node's exports visible to its siblings under
	// the nearest non-peer ancestor.
	IsPeerProvider bool
	// HoistedCapabilities lists capability names whose descendant exports
	// register at this node.
	HoistedCapabilities []string
	// Scopes are the named export scopes this node declares.
	Scopes   []*capability.Scope
	Children []*Node
	Tasks    []*Task
}

// Hoists reports whether n hoists the named capability.
func (n *Node) Hoists(name string) bool {
	for _, h := range n.HoistedCapabilities {
		if h == name {
			return true
		}
	}
	return false
}

// DeclaresScope reports whether n declares s.
func (n *Node) DeclaresScope(s *capability.Scope) bool {
	for _, own := range n.Scopes {
		if own == s {
			return true
		}
	}
	return false
}

// AddChild appends child and returns n for chaining.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// AddTask appends t and returns n for chaining.
func (n *Node) AddTask(t *Task) *Node {
	n.Tasks = append(n.Tasks, t)
	return n
}

// RunFunc is a task's configuration phase. It receives the resolved providers
// of its dependencies and returns the providers it exports plus a deferred
// build step.
type RunFunc func(ctx context.Context, deps Providers) (*TaskResult, error)

// BuildFunc is a task's output phase, invoked after every task has run.
type BuildFunc func(ctx context.Context, b *output.Builder) error

// TaskResult is what a RunFunc hands back to the executor.
type TaskResult struct {
	// Providers maps export names (keys of Task.Exports) to provider values.
	Providers map[string]any
	Build     BuildFunc
}

// Task is the unit of work inside a node.
type Task struct {
	Name         string
	Dependencies map[string]capability.Dependency
	Exports      map[string]capability.Export
	Run          RunFunc
}

// DefaultTaskName is the conventional name of a node's single task.
const DefaultTaskName = "main"

// TaskID returns the global id of t inside node n.
func TaskID(n *Node, t *Task) string {
	return n.ID + "#" + t.Name
}

// Providers holds the resolved dependency providers of one task, keyed by
// dependency name. An absent optional dependency is stored as nil.
type Providers map[string]any

// Get returns the provider for name. ok is false for unknown names and for
// absent optional dependencies.
func (p Providers) Get(name string) (any, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Lookup returns the provider for name as T.
func Lookup[T any](p Providers, name string) (T, bool) {
	var zero T
	v, ok := p.Get(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// MustLookup is Lookup for required dependencies; a missing or mistyped
// provider is reported as an error naming the dependency.
func MustLookup[T any](p Providers, name string) (T, error) {
	t, ok := Lookup[T](p, name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("dependency %q: provider missing or not a %T", name, zero)
	}
	return t, nil
}

// Walk visits n and its descendants in pre-order. parent is nil for the root.
// Returning an error stops the walk.
func Walk(root *Node, fn func(n, parent *Node) error) error {
	return walk(root, nil, fn)
}

func walk(n, parent *Node, fn func(n, parent *Node) error) error {
	if n == nil {
		return nil
	}
	if err := fn(n, parent); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := walk(c, n, fn); err != nil {
			return err
		}
	}
	return nil
}
