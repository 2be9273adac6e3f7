// Package resolve wires task dependencies to the task exports that satisfy
// them.
//
// Resolution runs in two passes over a flattened arena of the node tree. Pass
// 1 builds an index of export slots keyed by (scope node, capability, export
// name):
//   - an export registers at its declaring node, or at the nearest
//     ancestor-or-self declaring its named scope
//   - an export whose capability an ancestor hoists also registers at the
//     nearest hoisting ancestor
//   - otherwise an export of a peer-provider node also registers at the
//     nearest non-peer ancestor
//
// Pass 2 reads the index: explicit references go straight to the target
// node's slot, everything else searches upward for the nearest slot. Every
// error of both passes is returned together, before any task runs.
package resolve

import (
	"go.uber.org/multierr"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/generator"
	"scaffoldr/internal/sortutil"
)

// ResolvedDependency points a dependency at the task export that satisfies it.
type ResolvedDependency struct {
	TaskID string
	// ExportName is the key of the provider in the exporting task's Exports.
	ExportName string
	Options    capability.Dependency
}

// DependencyMap maps task id to dependency name to the resolved provider. A
// nil entry is an optional dependency with no provider.
type DependencyMap map[string]map[string]*ResolvedDependency

// TaskRef identifies a task in tree order.
type TaskRef struct {
	ID   string
	Node *generator.Node
	Task *generator.Task
}

// Resolution is the full result of resolving a tree.
type Resolution struct {
	// Tasks lists every task in pre-order of the tree, then declaration order.
	Tasks        []TaskRef
	Dependencies DependencyMap
}

// Task returns the task with the given id.
func (r *Resolution) Task(id string) (TaskRef, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskRef{}, false
}

// ExportID renders an index slot as "scopeNodeId#capability:exportName".
func ExportID(scopeNodeID, capabilityName, exportName string) string {
	return scopeNodeID + "#" + capabilityName + ":" + exportName
}

// ResolveTaskDependencies returns the dependency map of every task in root.
func ResolveTaskDependencies(root *generator.Node) (DependencyMap, error) {
	res, err := Resolve(root)
	if err != nil {
		return nil, err
	}
	return res.Dependencies, nil
}

// Resolve validates the tree and resolves every task dependency.
func Resolve(root *generator.Node) (*Resolution, error) {
	if err := generator.Validate(root); err != nil {
		return nil, err
	}
	a := buildArena(root)
	ix, indexErrs := buildIndex(a)

	r := &resolver{arena: a, index: ix}
	deps, resolveErrs := r.resolveAll()
	if err := multierr.Combine(indexErrs, resolveErrs); err != nil {
		return nil, err
	}

	tasks := make([]TaskRef, len(a.tasks))
	for i, at := range a.tasks {
		tasks[i] = TaskRef{ID: at.id, Node: a.nodes[at.node].node, Task: at.task}
	}
	return &Resolution{Tasks: tasks, Dependencies: deps}, nil
}

type resolver struct {
	arena *arena
	index *capabilityIndex
}

func (r *resolver) resolveAll() (DependencyMap, error) {
	out := make(DependencyMap, len(r.arena.tasks))
	var errs error
	for ti, at := range r.arena.tasks {
		m := make(map[string]*ResolvedDependency, len(at.task.Dependencies))
		for _, name := range sortutil.SortedKeys(at.task.Dependencies) {
			dep := at.task.Dependencies[name]
			resolved, err := r.resolveOne(ti, name, dep)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			m[name] = resolved
		}
		out[at.id] = m
	}
	return out, errs
}

func (r *resolver) resolveOne(ti int, name string, dep capability.Dependency) (*ResolvedDependency, error) {
	if target, ok := dep.Target(); ok {
		return r.resolveReference(ti, name, dep, target)
	}
	return r.resolveUpward(ti, name, dep)
}

func (r *resolver) resolveReference(ti int, name string, dep capability.Dependency, target string) (*ResolvedDependency, error) {
	at := r.arena.tasks[ti]
	capName := dep.Type().Name()
	unresolved := &UnresolvedReferenceError{
		TaskID:     at.id,
		Dependency: name,
		Capability: capName,
		ExportName: dep.ExportName(),
		TargetID:   target,
	}
	node, ok := r.arena.byID[target]
	if !ok {
		if dep.IsOptional() {
			return nil, nil
		}
		return nil, unresolved
	}
	k := exportKey{scope: node, capability: capName, exportName: dep.ExportName()}
	cands := r.candidates(k, ti)
	switch len(cands) {
	case 0:
		if dep.IsOptional() {
			return nil, nil
		}
		return nil, unresolved
	case 1:
		return r.resolved(cands[0], dep), nil
	default:
		return nil, r.duplicate(at.id, name, k, cands)
	}
}

func (r *resolver) resolveUpward(ti int, name string, dep capability.Dependency) (*ResolvedDependency, error) {
	at := r.arena.tasks[ti]
	capName := dep.Type().Name()
	start := at.node
	if dep.IsParentScopeOnly() {
		start = r.arena.nodes[at.node].parent
	}
	for cur := start; cur != -1; cur = r.arena.nodes[cur].parent {
		k := exportKey{scope: cur, capability: capName, exportName: dep.ExportName()}
		cands := r.candidates(k, ti)
		switch len(cands) {
		case 0:
			continue
		case 1:
			return r.resolved(cands[0], dep), nil
		default:
			return nil, r.duplicate(at.id, name, k, cands)
		}
	}
	if dep.IsOptional() {
		return nil, nil
	}
	return nil, &MissingProviderError{
		TaskID:     at.id,
		Dependency: name,
		Capability: capName,
		ExportName: dep.ExportName(),
	}
}

// candidates returns the providers in slot k other than the asking task.
func (r *resolver) candidates(k exportKey, self int) []provider {
	var out []provider
	for _, p := range r.index.lookup(k) {
		if p.task != self {
			out = append(out, p)
		}
	}
	return out
}

func (r *resolver) resolved(p provider, dep capability.Dependency) *ResolvedDependency {
	return &ResolvedDependency{
		TaskID:     r.arena.tasks[p.task].id,
		ExportName: p.export,
		Options:    dep,
	}
}

func (r *resolver) duplicate(taskID, name string, k exportKey, cands []provider) error {
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = r.arena.tasks[c.task].id
	}
	return &DuplicateProviderError{
		TaskID:     taskID,
		Dependency: name,
		ExportID:   ExportID(r.arena.nodeID(k.scope), k.capability, k.exportName),
		Providers:  sortutil.StablePathSort(ids),
	}
}
