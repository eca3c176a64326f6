package network

import "sort"

// Undirected is an immutable weighted undirected graph. It is produced
// from a Graph by one of the projections and consumed by the clustering,
// clique, community and bridge analyses.
type Undirected struct {
	nodes []string
	adj   map[string]map[string]float64
	nbrs  map[string][]string
	edges int
	total float64
}

// NewUndirected builds an undirected graph over nodes. Edge endpoints are
// added as nodes if missing, weights of repeated pairs are summed and
// self-loops are dropped.
func NewUndirected(nodes []string, edges []Edge) *Undirected {
	u := &Undirected{adj: make(map[string]map[string]float64)}
	for _, id := range nodes {
		u.addNode(id)
	}
	for _, e := range edges {
		u.addEdge(e.From, e.To, e.Weight)
	}
	return u.seal()
}

func (u *Undirected) addNode(id string) {
	if _, ok := u.adj[id]; !ok {
		u.adj[id] = make(map[string]float64)
	}
}

func (u *Undirected) addEdge(a, b string, w float64) {
	if a == b {
		return
	}
	u.addNode(a)
	u.addNode(b)
	if _, ok := u.adj[a][b]; !ok {
		u.edges++
	}
	u.adj[a][b] += w
	u.adj[b][a] += w
	u.total += w
}

func (u *Undirected) seal() *Undirected {
	u.nodes = make([]string, 0, len(u.adj))
	for id := range u.adj {
		u.nodes = append(u.nodes, id)
	}
	sort.Strings(u.nodes)
	u.nbrs = make(map[string][]string, len(u.nodes))
	for _, id := range u.nodes {
		u.nbrs[id] = sortedKeys(u.adj[id])
	}
	return u
}

// Undirected projects g onto an undirected graph where each pair {u,v}
// carries w(u->v) + w(v->u). Isolated nodes are kept.
func (g *Graph) Undirected() *Undirected {
	return g.project(false)
}

// Reciprocal projects g onto the pairs that interact in both directions,
// weighted by the sum of both directions. Every node is kept.
func (g *Graph) Reciprocal() *Undirected {
	return g.project(true)
}

func (g *Graph) project(reciprocalOnly bool) *Undirected {
	u := &Undirected{adj: make(map[string]map[string]float64, len(g.nodes))}
	for _, id := range g.nodes {
		u.addNode(id)
	}
	for _, e := range g.Edges() {
		back, ok := g.out[e.To][e.From]
		if reciprocalOnly && !ok {
			continue
		}
		if ok && e.To < e.From {
			// both directions present: the pair was added from the other side
			continue
		}
		u.addEdge(e.From, e.To, e.Weight+back)
	}
	return u.seal()
}

// Nodes returns all node ids in sorted order.
func (u *Undirected) Nodes() []string {
	out := make([]string, len(u.nodes))
	copy(out, u.nodes)
	return out
}

// NodeCount returns the number of nodes.
func (u *Undirected) NodeCount() int { return len(u.nodes) }

// EdgeCount returns the number of undirected edges.
func (u *Undirected) EdgeCount() int { return u.edges }

// TotalWeight returns the sum of edge weights, each edge counted once.
func (u *Undirected) TotalWeight() float64 { return u.total }

// Has reports whether id is a node.
func (u *Undirected) Has(id string) bool {
	_, ok := u.adj[id]
	return ok
}

// Weight returns the weight of {a,b}.
func (u *Undirected) Weight(a, b string) (float64, bool) {
	w, ok := u.adj[a][b]
	return w, ok
}

// Neighbors returns the sorted neighbours of id. The returned slice must
// not be modified.
func (u *Undirected) Neighbors(id string) []string { return u.nbrs[id] }

// Degree returns the number of neighbours of id.
func (u *Undirected) Degree(id string) int { return len(u.adj[id]) }

// Strength returns the summed weight of id's edges.
func (u *Undirected) Strength(id string) float64 { return sum(u.adj[id]) }

// Edges returns every edge once, with From < To, ordered by (From, To).
func (u *Undirected) Edges() []Edge {
	edges := make([]Edge, 0, u.edges)
	for _, a := range u.nodes {
		for _, b := range u.nbrs[a] {
			if a < b {
				edges = append(edges, Edge{From: a, To: b, Weight: u.adj[a][b]})
			}
		}
	}
	return edges
}

// Subgraph returns the subgraph induced by nodes.
func (u *Undirected) Subgraph(nodes []string) *Undirected {
	keep := make(map[string]struct{}, len(nodes))
	for _, id := range nodes {
		if u.Has(id) {
			keep[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(keep))
	for id := range keep {
		ids = append(ids, id)
	}
	var edges []Edge
	for _, e := range u.Edges() {
		_, okA := keep[e.From]
		_, okB := keep[e.To]
		if okA && okB {
			edges = append(edges, e)
		}
	}
	return NewUndirected(ids, edges)
}

// WithoutEdge returns a copy of u with {a,b} removed. All nodes are kept.
func (u *Undirected) WithoutEdge(a, b string) *Undirected {
	edges := make([]Edge, 0, u.edges)
	for _, e := range u.Edges() {
		if (e.From == a && e.To == b) || (e.From == b && e.To == a) {
			continue
		}
		edges = append(edges, e)
	}
	return NewUndirected(u.nodes, edges)
}

// WithoutNode returns a copy of u with id and its edges removed.
func (u *Undirected) WithoutNode(id string) *Undirected {
	rest := make([]string, 0, len(u.nodes))
	for _, n := range u.nodes {
		if n != id {
			rest = append(rest, n)
		}
	}
	return u.Subgraph(rest)
}
