package resolve

import (
	"go.uber.org/multierr"

	"scaffoldr/internal/capability"
	"scaffoldr/internal/sortutil"
)

// exportKey addresses one visibility slot: a capability under an export name
// as seen from a scope node.
type exportKey struct {
	scope      int
	capability string
	exportName string
}

// provider is a task export occupying a slot.
type provider struct {
	task   int
	export string // key in the task's Exports map
}

// capabilityIndex is the immutable result of pass 1.
type capabilityIndex struct {
	slots map[exportKey][]provider
}

func (ix *capabilityIndex) lookup(k exportKey) []provider { return ix.slots[k] }

// buildIndex registers every export of every task. It returns the index even
// when hoisting conflicts are reported so pass 2 can still surface its own
// errors in the same run.
func buildIndex(a *arena) (*capabilityIndex, error) {
	ix := &capabilityIndex{slots: make(map[exportKey][]provider)}
	hoisted := make(map[exportKey]provider)
	var errs error

	register := func(k exportKey, p provider) {
		for _, existing := range ix.slots[k] {
			if existing.task == p.task {
				return
			}
		}
		ix.slots[k] = append(ix.slots[k], p)
	}

	for ti, at := range a.tasks {
		for _, expName := range sortutil.SortedKeys(at.task.Exports) {
			exp := at.task.Exports[expName]
			capName := exp.Type().Name()
			p := provider{task: ti, export: expName}
			for _, pair := range exp.Pairs() {
				base, ok := a.scopeNode(at.node, pair.Scope)
				if !ok {
					continue
				}
				register(exportKey{scope: base, capability: capName, exportName: pair.Name}, p)

				if hoist, ok := a.hoistingAncestor(base, capName); ok {
					k := exportKey{scope: hoist, capability: capName, exportName: pair.Name}
					if first, taken := hoisted[k]; taken && first.task != ti {
						errs = multierr.Append(errs, &DuplicateHoistedProviderError{
							Capability:   capName,
							ExportName:   pair.Name,
							HoistNodeID:  a.nodeID(hoist),
							FirstTaskID:  a.tasks[first.task].id,
							SecondTaskID: at.id,
						})
						continue
					}
					hoisted[k] = p
					register(k, p)
					continue
				}

				if a.nodes[base].node.IsPeerProvider {
					if up, ok := a.nonPeerAncestor(base); ok {
						register(exportKey{scope: up, capability: capName, exportName: pair.Name}, p)
					}
				}
			}
		}
	}
	return ix, errs
}

// scopeNode returns the node an export pair registers at: the declaring node
// for the default scope, else the nearest ancestor-or-self declaring scope.
func (a *arena) scopeNode(node int, scope *capability.Scope) (int, bool) {
	if scope == nil {
		return node, true
	}
	for cur := node; cur != -1; cur = a.nodes[cur].parent {
		if a.nodes[cur].node.DeclaresScope(scope) {
			return cur, true
		}
	}
	return 0, false
}

func (a *arena) hoistingAncestor(node int, capName string) (int, bool) {
	for _, anc := range a.ancestors(node) {
		if a.nodes[anc].node.Hoists(capName) {
			return anc, true
		}
	}
	return 0, false
}

func (a *arena) nonPeerAncestor(node int) (int, bool) {
	for _, anc := range a.ancestors(node) {
		if !a.nodes[anc].node.IsPeerProvider {
			return anc, true
		}
	}
	return 0, false
}
