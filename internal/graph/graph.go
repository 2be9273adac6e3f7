// Package graph provides a small directed-graph type and a deterministic
// topological sort used to order generator tasks.
//
// Design goals:
//   - Deterministic output for identical input, whatever the map order
//   - Locality-biased ordering: recently unblocked nodes are emitted first
//   - A concrete cycle witness on failure, not just a boolean
//
// Notes:
//   - An edge [from, to] means "from depends on to": to is emitted before from.
//   - Nodes are plain string labels; callers use task ids.
package graph

import (
	"sort"
)

// Edge is a dependency edge: Edge[0] depends on Edge[1].
type Edge = [2]string

// Graph is a simple directed graph (no weights).
type Graph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// AddNode appends n unless it is already present.
func (g *Graph) AddNode(n string) {
	for _, existing := range g.Nodes {
		if existing == n {
			return
		}
	}
	g.Nodes = append(g.Nodes, n)
}

// AddEdge records that from depends on to. Self-loops are kept so that the
// sort reports them as cycles.
func (g *Graph) AddEdge(from, to string) {
	if from == "" || to == "" {
		return
	}
	g.Edges = append(g.Edges, Edge{from, to})
}

// Normalize returns a copy with sorted, deduplicated nodes and edges, suitable
// for stable dumps.
func (g Graph) Normalize() Graph {
	nodeSet := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n != "" {
			nodeSet[n] = struct{}{}
		}
	}
	edgeSet := make(map[Edge]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if e[0] == "" || e[1] == "" {
			continue
		}
		edgeSet[e] = struct{}{}
		nodeSet[e[0]] = struct{}{}
		nodeSet[e[1]] = struct{}{}
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	edges := make([]Edge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] == edges[j][0] {
			return edges[i][1] < edges[j][1]
		}
		return edges[i][0] < edges[j][0]
	})
	return Graph{Nodes: nodes, Edges: edges}
}

// Sort orders the graph's nodes; see TopoSort.
func (g Graph) Sort(opts ...Option) ([]string, error) {
	return TopoSort(g.Nodes, g.Edges, opts...)
}
