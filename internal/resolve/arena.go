package resolve

import (
	"scaffoldr/internal/generator"
)

// arena is the flattened node tree: nodes and tasks addressed by integer
// index, parents by index, in pre-order.
type arena struct {
	nodes []arenaNode
	tasks []arenaTask
	byID  map[string]int
}

type arenaNode struct {
	node   *generator.Node
	parent int // -1 for the root
	tasks  []int
}

type arenaTask struct {
	id   string
	node int
	task *generator.Task
}

func buildArena(root *generator.Node) *arena {
	a := &arena{byID: make(map[string]int)}
	_ = generator.Walk(root, func(n, parent *generator.Node) error {
		idx := len(a.nodes)
		p := -1
		if parent != nil {
			p = a.byID[parent.ID]
		}
		an := arenaNode{node: n, parent: p}
		for _, t := range n.Tasks {
			an.tasks = append(an.tasks, len(a.tasks))
			a.tasks = append(a.tasks, arenaTask{id: generator.TaskID(n, t), node: idx, task: t})
		}
		a.nodes = append(a.nodes, an)
		a.byID[n.ID] = idx
		return nil
	})
	return a
}

// ancestors yields the strict ancestors of node, nearest first.
func (a *arena) ancestors(node int) []int {
	var out []int
	for p := a.nodes[node].parent; p != -1; p = a.nodes[p].parent {
		out = append(out, p)
	}
	return out
}

func (a *arena) nodeID(idx int) string { return a.nodes[idx].node.ID }
