package network

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// NodeIndex maps character ids to the int64 node ids used by gonum.
// Ids are assigned in sorted order, so the mapping is stable for a given
// node set.
type NodeIndex struct {
	names []string
	ids   map[string]int64
}

func newNodeIndex(nodes []string) *NodeIndex {
	x := &NodeIndex{names: nodes, ids: make(map[string]int64, len(nodes))}
	for i, n := range nodes {
		x.ids[n] = int64(i)
	}
	return x
}

// ID returns the gonum id for name.
func (x *NodeIndex) ID(name string) (int64, bool) {
	id, ok := x.ids[name]
	return id, ok
}

// Name returns the character id for a gonum id.
func (x *NodeIndex) Name(id int64) string {
	if id < 0 || int(id) >= len(x.names) {
		return ""
	}
	return x.names[id]
}

// Names converts gonum nodes to sorted character ids.
func (x *NodeIndex) Names(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = x.Name(n.ID())
	}
	sort.Strings(out)
	return out
}

// Nodes converts character ids to gonum nodes, skipping unknown ids.
func (x *NodeIndex) Nodes(names []string) []graph.Node {
	out := make([]graph.Node, 0, len(names))
	for _, n := range names {
		if id, ok := x.ids[n]; ok {
			out = append(out, simple.Node(id))
		}
	}
	return out
}

// Gonum returns g as a gonum weighted directed graph.
func (g *Graph) Gonum() (*simple.WeightedDirectedGraph, *NodeIndex) {
	x := newNodeIndex(g.Nodes())
	dg := simple.NewWeightedDirectedGraph(0, 0)
	for i := range x.names {
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range g.Edges() {
		dg.SetWeightedEdge(dg.NewWeightedEdge(simple.Node(x.ids[e.From]), simple.Node(x.ids[e.To]), e.Weight))
	}
	return dg, x
}

// Gonum returns u as a gonum weighted undirected graph.
func (u *Undirected) Gonum() (*simple.WeightedUndirectedGraph, *NodeIndex) {
	x := newNodeIndex(u.Nodes())
	ug := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range x.names {
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, e := range u.Edges() {
		ug.SetWeightedEdge(ug.NewWeightedEdge(simple.Node(x.ids[e.From]), simple.Node(x.ids[e.To]), e.Weight))
	}
	return ug, x
}
