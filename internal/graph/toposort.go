package graph

import (
	"sort"
	"strings"
)

// CompareFunc orders ready nodes; negative means a is emitted before b.
type CompareFunc func(a, b string) int

type sortConfig struct {
	compare    CompareFunc
	inputOrder bool
}

// Option customizes TopoSort.
type Option func(*sortConfig)

// WithCompare breaks ties among ready nodes with fn.
func WithCompare(fn CompareFunc) Option {
	return func(c *sortConfig) {
		c.compare = fn
		c.inputOrder = false
	}
}

// WithInputOrder breaks ties by position in the node list.
func WithInputOrder() Option {
	return func(c *sortConfig) {
		c.compare = nil
		c.inputOrder = true
	}
}

// TopoSort linearizes nodes so every node follows its dependencies.
//
// The sort is Kahn's algorithm seeded with the nodes that depend on nothing,
// driven by a LIFO stack: nodes unblocked by the most recent emission are
// emitted next. Ready nodes discovered together are ordered by the comparator
// (lexicographic by default). If a cycle prevents completion, the error is a
// *CycleError carrying one concrete cycle.
func TopoSort(nodes []string, edges []Edge, opts ...Option) ([]string, error) {
	cfg := sortConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n]; dup {
			return nil, invalidf("duplicate node %q", n)
		}
		index[n] = i
	}

	less := cfg.lessFunc(nodes)

	// outgoing[u]: nodes u depends on; incoming[v]: nodes depending on v.
	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	outDeg := make([]int, len(nodes))
	seenEdge := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		from, ok := index[e[0]]
		if !ok {
			return nil, invalidf("edge %s -> %s references unknown node %q", e[0], e[1], e[0])
		}
		to, ok := index[e[1]]
		if !ok {
			return nil, invalidf("edge %s -> %s references unknown node %q", e[0], e[1], e[1])
		}
		key := [2]int{from, to}
		if _, dup := seenEdge[key]; dup {
			continue
		}
		seenEdge[key] = struct{}{}
		outgoing[from] = append(outgoing[from], to)
		incoming[to] = append(incoming[to], from)
		outDeg[from]++
	}

	var stack []int
	pushBatch := func(batch []int) {
		sort.SliceStable(batch, func(i, j int) bool { return less(batch[i], batch[j]) })
		for i := len(batch) - 1; i >= 0; i-- {
			stack = append(stack, batch[i])
		}
	}

	var seed []int
	for i := range nodes {
		if outDeg[i] == 0 {
			seed = append(seed, i)
		}
	}
	pushBatch(seed)

	emitted := make([]bool, len(nodes))
	out := make([]string, 0, len(nodes))
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		emitted[u] = true
		out = append(out, nodes[u])

		var batch []int
		for _, d := range incoming[u] {
			outDeg[d]--
			if outDeg[d] == 0 {
				batch = append(batch, d)
			}
		}
		pushBatch(batch)
	}

	if len(out) < len(nodes) {
		path := findCycle(nodes, outgoing, emitted, less)
		return nil, &CycleError{Path: path}
	}
	return out, nil
}

// lessFunc orders node indices. Comparator ties fall back to input position
// so the result never depends on sort internals.
func (c sortConfig) lessFunc(nodes []string) func(a, b int) bool {
	if c.inputOrder {
		return func(a, b int) bool { return a < b }
	}
	cmp := c.compare
	if cmp == nil {
		cmp = strings.Compare
	}
	return func(a, b int) bool {
		if r := cmp(nodes[a], nodes[b]); r != 0 {
			return r < 0
		}
		return a < b
	}
}

// findCycle runs a DFS restricted to the nodes the sort could not emit and
// returns the first cycle found, closed on its starting node. Roots and
// neighbours are visited in comparator order so the witness is stable.
func findCycle(nodes []string, outgoing [][]int, emitted []bool, less func(a, b int) bool) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(nodes))
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = -1
	}

	sorted := func(in []int) []int {
		out := make([]int, 0, len(in))
		for _, v := range in {
			if !emitted[v] {
				out = append(out, v)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
		return out
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range sorted(outgoing[u]) {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back edge u -> v closes v ... u -> v.
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	all := make([]int, len(nodes))
	for i := range all {
		all[i] = i
	}
	for _, u := range sorted(all) {
		if color[u] == white && dfs(u) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, nodes[cycle[i]])
	}
	return out
}

// FormatPath renders a cycle path as "a -> b -> a".
func FormatPath(path []string) string {
	return strings.Join(path, " -> ")
}
