// Package engine executes a generator tree: it resolves dependencies, orders
// tasks so every provider runs before its dependents, runs each task, then
// lets every task write into one shared output builder.
package engine

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"scaffoldr/internal/generator"
	"scaffoldr/internal/graph"
	"scaffoldr/internal/output"
	"scaffoldr/internal/resolve"
	"scaffoldr/internal/sortutil"
)

type config struct {
	log logr.Logger
}

// Option configures Execute.
type Option func(*config)

// WithLogger routes execution logs to l.
func WithLogger(l logr.Logger) Option {
	return func(c *config) { c.log = l }
}

func newConfig(opts []Option) config {
	c := config{log: logr.Discard()}
	for _, o := range opts {
		o(&c)
	}
	if c.log.GetSink() == nil {
		c.log = logr.Discard()
	}
	return c
}

type plan struct {
	res   *resolve.Resolution
	order []resolve.TaskRef
}

// Execute runs the tree rooted at root and returns the collected output.
// Configuration errors are reported before any task runs. Execution is
// single-threaded; ctx is checked between tasks.
func Execute(ctx context.Context, root *generator.Node, opts ...Option) (*output.Output, error) {
	cfg := newConfig(opts)
	log := cfg.log

	p, err := planTasks(root)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("execution planned", "tasks", len(p.order))

	results := make(map[string]*generator.TaskResult, len(p.order))
	for _, t := range p.order {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "aborted before task %s", t.ID)
		}
		deps, err := providersFor(t, p.res.Dependencies[t.ID], results)
		if err != nil {
			return nil, err
		}
		log.V(1).Info("running task", "task", t.ID)
		result, err := call(t, PhaseRun, func() (*generator.TaskResult, error) {
			return t.Task.Run(ctx, deps)
		})
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = &generator.TaskResult{}
		}
		for _, name := range sortutil.SortedKeys(t.Task.Exports) {
			if _, ok := result.Providers[name]; !ok {
				return nil, &MissingExportError{TaskID: t.ID, ExportName: name}
			}
		}
		results[t.ID] = result
	}

	b := output.NewBuilder()
	for _, t := range p.order {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "aborted before building %s", t.ID)
		}
		build := results[t.ID].Build
		if build == nil {
			continue
		}
		log.V(1).Info("building task", "task", t.ID)
		if _, err := call(t, PhaseBuild, func() (*generator.TaskResult, error) {
			return nil, build(ctx, b)
		}); err != nil {
			return nil, err
		}
	}
	out := b.Output()
	log.V(1).Info("execution done", "files", len(out.Files), "commands", len(out.PostWriteCommands))
	return out, nil
}

// TaskGraph returns the resolved task graph of root: one node per task id and
// an edge from every dependent task to the task providing its dependency.
func TaskGraph(root *generator.Node) (graph.Graph, error) {
	res, err := resolve.Resolve(root)
	if err != nil {
		return graph.Graph{}, err
	}
	return taskGraph(res), nil
}

func taskGraph(res *resolve.Resolution) graph.Graph {
	var g graph.Graph
	for _, t := range res.Tasks {
		g.AddNode(t.ID)
	}
	for _, t := range res.Tasks {
		deps := res.Dependencies[t.ID]
		for _, name := range sortutil.SortedKeys(deps) {
			if rd := deps[name]; rd != nil {
				g.AddEdge(t.ID, rd.TaskID)
			}
		}
	}
	return g
}

func planTasks(root *generator.Node) (*plan, error) {
	res, err := resolve.Resolve(root)
	if err != nil {
		return nil, err
	}
	g := taskGraph(res)
	ids, err := graph.TopoSort(g.Nodes, g.Edges, graph.WithInputOrder())
	if err != nil {
		var cycle *graph.CycleError
		if errors.As(err, &cycle) {
			return nil, &CyclicalDependencyError{Path: cycle.Path}
		}
		return nil, err
	}
	byID := make(map[string]resolve.TaskRef, len(res.Tasks))
	for _, t := range res.Tasks {
		byID[t.ID] = t
	}
	order := make([]resolve.TaskRef, len(ids))
	for i, id := range ids {
		order[i] = byID[id]
	}
	return &plan{res: res, order: order}, nil
}

// providersFor collects the providers t depends on. Providers run earlier in
// topological order, so their results are always present.
func providersFor(t resolve.TaskRef, deps map[string]*resolve.ResolvedDependency, results map[string]*generator.TaskResult) (generator.Providers, error) {
	p := make(generator.Providers, len(deps))
	for name, rd := range deps {
		if rd == nil {
			p[name] = nil
			continue
		}
		r, ok := results[rd.TaskID]
		if !ok {
			return nil, errors.Errorf("task %s: provider task %s has not run", t.ID, rd.TaskID)
		}
		v, ok := r.Providers[rd.ExportName]
		if !ok {
			return nil, &MissingExportError{TaskID: rd.TaskID, ExportName: rd.ExportName}
		}
		p[name] = v
	}
	return p, nil
}

// call invokes fn and turns an error or panic into a *TaskError.
func call(t resolve.TaskRef, phase Phase, fn func() (*generator.TaskResult, error)) (res *generator.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{TaskID: t.ID, NodeID: t.Node.ID, Phase: phase, Err: errors.Errorf("panic: %v", r)}
		}
	}()
	res, err = fn()
	if err != nil {
		return nil, &TaskError{TaskID: t.ID, NodeID: t.Node.ID, Phase: phase, Err: errors.WithStack(err)}
	}
	return res, nil
}

// Describe renders the execution order of root, one task per line, with the
// providers each task receives. Used by the graph command.
func Describe(root *generator.Node) ([]string, error) {
	p, err := planTasks(root)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(p.order))
	for i, t := range p.order {
		line := fmt.Sprintf("%d. %s", i+1, t.ID)
		deps := p.res.Dependencies[t.ID]
		for _, name := range sortutil.SortedKeys(deps) {
			if rd := deps[name]; rd != nil {
				line += fmt.Sprintf("\n     %s <- %s (%s)", name, rd.TaskID, rd.ExportName)
			} else {
				line += fmt.Sprintf("\n     %s <- (absent)", name)
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}
