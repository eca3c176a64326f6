// Package network holds the canonical interaction graph: a directed,
// weighted graph of characters built once from relational records and
// read by every analysis engine.
package network

import (
	"sort"
)

// Edge is a directed, weighted interaction between two characters.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// Graph is an immutable directed weighted graph. Node ids are
// case-normalised strings. Every edge endpoint is a node, every weight
// is positive and there are no self-loops.
type Graph struct {
	nodes []string
	out   map[string]map[string]float64
	in    map[string]map[string]float64
	succ  map[string][]string
	pred  map[string][]string
	edges int
	total float64
}

func newGraph() *Graph {
	return &Graph{
		out: make(map[string]map[string]float64),
		in:  make(map[string]map[string]float64),
	}
}

func (g *Graph) addNode(id string) {
	if _, ok := g.out[id]; ok {
		return
	}
	g.out[id] = make(map[string]float64)
	g.in[id] = make(map[string]float64)
}

// addEdge accumulates w onto u->v.
func (g *Graph) addEdge(u, v string, w float64) {
	g.addNode(u)
	g.addNode(v)
	if _, ok := g.out[u][v]; !ok {
		g.edges++
	}
	g.out[u][v] += w
	g.in[v][u] += w
	g.total += w
}

// seal computes the sorted node and adjacency lists. Must be called
// before the graph is handed out.
func (g *Graph) seal() *Graph {
	g.nodes = make([]string, 0, len(g.out))
	for id := range g.out {
		g.nodes = append(g.nodes, id)
	}
	sort.Strings(g.nodes)

	g.succ = make(map[string][]string, len(g.nodes))
	g.pred = make(map[string][]string, len(g.nodes))
	for _, id := range g.nodes {
		g.succ[id] = sortedKeys(g.out[id])
		g.pred[id] = sortedKeys(g.in[id])
	}
	return g
}

// clone returns an unsealed deep copy.
func (g *Graph) clone() *Graph {
	c := newGraph()
	for _, id := range g.nodes {
		c.addNode(id)
	}
	for _, u := range g.nodes {
		for _, v := range g.succ[u] {
			c.addEdge(u, v, g.out[u][v])
		}
	}
	return c
}

// Nodes returns all node ids in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct directed edges.
func (g *Graph) EdgeCount() int { return g.edges }

// TotalWeight returns the sum of all edge weights.
func (g *Graph) TotalWeight() float64 { return g.total }

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.out[id]
	return ok
}

// Weight returns the weight of u->v.
func (g *Graph) Weight(u, v string) (float64, bool) {
	w, ok := g.out[u][v]
	return w, ok
}

// Successors returns the sorted out-neighbours of u. The returned slice
// must not be modified.
func (g *Graph) Successors(u string) []string { return g.succ[u] }

// Predecessors returns the sorted in-neighbours of u. The returned slice
// must not be modified.
func (g *Graph) Predecessors(u string) []string { return g.pred[u] }

// OutDegree returns the number of distinct out-neighbours of u.
func (g *Graph) OutDegree(u string) int { return len(g.out[u]) }

// InDegree returns the number of distinct in-neighbours of u.
func (g *Graph) InDegree(u string) int { return len(g.in[u]) }

// OutStrength returns the summed weight of u's out-edges.
func (g *Graph) OutStrength(u string) float64 { return sum(g.out[u]) }

// InStrength returns the summed weight of u's in-edges.
func (g *Graph) InStrength(u string) float64 { return sum(g.in[u]) }

// Edges returns every edge ordered by (From, To).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for _, u := range g.nodes {
		for _, v := range g.succ[u] {
			edges = append(edges, Edge{From: u, To: v, Weight: g.out[u][v]})
		}
	}
	return edges
}

// Subgraph returns the subgraph induced by nodes. Ids that are not in g
// are ignored.
func (g *Graph) Subgraph(nodes []string) *Graph {
	keep := make(map[string]struct{}, len(nodes))
	for _, id := range nodes {
		if g.Has(id) {
			keep[id] = struct{}{}
		}
	}
	s := newGraph()
	for id := range keep {
		s.addNode(id)
	}
	for u := range keep {
		for v, w := range g.out[u] {
			if _, ok := keep[v]; ok {
				s.addEdge(u, v, w)
			}
		}
	}
	return s.seal()
}

// WithoutNode returns a copy of g with id and its edges removed.
func (g *Graph) WithoutNode(id string) *Graph {
	if !g.Has(id) {
		return g
	}
	rest := make([]string, 0, len(g.nodes)-1)
	for _, n := range g.nodes {
		if n != id {
			rest = append(rest, n)
		}
	}
	return g.Subgraph(rest)
}

// FilterEdges returns a copy of g that keeps every node but only the
// edges for which keep returns true.
func (g *Graph) FilterEdges(keep func(Edge) bool) *Graph {
	f := newGraph()
	for _, id := range g.nodes {
		f.addNode(id)
	}
	for _, e := range g.Edges() {
		if keep(e) {
			f.addEdge(e.From, e.To, e.Weight)
		}
	}
	return f.seal()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sum(m map[string]float64) float64 {
	var s float64
	for _, w := range m {
		s += w
	}
	return s
}
