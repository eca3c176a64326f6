package community

import (
	"container/heap"
	"math"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

// Divisive runs Girvan-Newman edge removal on u. The edge with the highest
// weighted betweenness (path length 1/weight) is removed until the
// component count grows. Every split level is scored by modularity on the
// original graph. With K > 0 the first level reaching K communities is
// returned; otherwise the level with maximum modularity wins, the earliest
// one on ties. Removal never goes past the fully split graph.
func Divisive(u *network.Undirected, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	nodes := u.Nodes()
	res := &Result{Algorithm: AlgorithmDivisive, Partition: Partition{}}
	if len(nodes) == 0 {
		return res, nil
	}

	work := newWorkGraph(u)
	groups := work.components()
	best := groups
	bestQ := Modularity(u, fromGroups(nodes, groups), opts.Resolution)

	for len(groups) < len(nodes) && (opts.K == 0 || len(groups) < opts.K) {
		split := false
		for work.edges > 0 {
			a, b, ok := work.mostCentralEdge()
			if !ok {
				break
			}
			work.remove(a, b)
			if next := work.components(); len(next) > len(groups) {
				groups, split = next, true
				break
			}
		}
		if !split {
			break
		}
		res.Levels++

		q := Modularity(u, fromGroups(nodes, groups), opts.Resolution)
		if opts.K > 0 || q > bestQ+1e-12 {
			best, bestQ = groups, q
		}
	}

	res.Partition = fromGroups(nodes, best)
	res.Modularity = bestQ
	return res, nil
}

type edgeKey struct{ a, b string }

func keyOf(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// workGraph is a mutable copy of the projection that edges are removed
// from.
type workGraph struct {
	nodes []string
	adj   map[string]map[string]float64
	nbrs  map[string][]string
	edges int
}

func newWorkGraph(u *network.Undirected) *workGraph {
	g := &workGraph{
		nodes: u.Nodes(),
		adj:   make(map[string]map[string]float64),
		nbrs:  make(map[string][]string),
		edges: u.EdgeCount(),
	}
	for _, v := range g.nodes {
		g.adj[v] = make(map[string]float64)
		g.nbrs[v] = append([]string(nil), u.Neighbors(v)...)
		for _, w := range g.nbrs[v] {
			g.adj[v][w], _ = u.Weight(v, w)
		}
	}
	return g
}

func (g *workGraph) remove(a, b string) {
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	g.nbrs[a] = without(g.nbrs[a], b)
	g.nbrs[b] = without(g.nbrs[b], a)
	g.edges--
}

func without(list []string, x string) []string {
	out := list[:0]
	for _, v := range list {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// components returns the connected components in sorted node order.
func (g *workGraph) components() [][]string {
	seen := make(map[string]bool, len(g.nodes))
	var out [][]string
	for _, start := range g.nodes {
		if seen[start] {
			continue
		}
		seen[start] = true
		comp := []string{start}
		for queue := []string{start}; len(queue) > 0; queue = queue[1:] {
			for _, w := range g.nbrs[queue[0]] {
				if !seen[w] {
					seen[w] = true
					comp = append(comp, w)
					queue = append(queue, w)
				}
			}
		}
		sort.Strings(comp)
		out = append(out, comp)
	}
	return out
}

// mostCentralEdge returns the edge with the highest weighted betweenness.
// Ties go to the lexicographically smallest edge. ok is false when no
// edge is left.
func (g *workGraph) mostCentralEdge() (a, b string, ok bool) {
	scores := g.edgeBetweenness()
	if len(scores) == 0 {
		return "", "", false
	}
	keys := make([]edgeKey, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	best := keys[0]
	bestScore := scores[best]
	for _, k := range keys[1:] {
		if s := scores[k]; s > bestScore+1e-9*math.Max(1, math.Abs(bestScore)) {
			best, bestScore = k, s
		}
	}
	return best.a, best.b, true
}

// edgeBetweenness runs Brandes' accumulation from every source over
// Dijkstra shortest paths.
func (g *workGraph) edgeBetweenness() map[edgeKey]float64 {
	scores := make(map[edgeKey]float64, g.edges)
	for v, row := range g.adj {
		for w := range row {
			if v < w {
				scores[edgeKey{v, w}] = 0
			}
		}
	}

	for _, s := range g.nodes {
		dist := map[string]float64{s: 0}
		sigma := map[string]float64{s: 1}
		preds := make(map[string][]string)
		done := make(map[string]bool)
		var order []string

		pq := &distQueue{{node: s}}
		for pq.Len() > 0 {
			it := heap.Pop(pq).(distItem)
			if done[it.node] {
				continue
			}
			done[it.node] = true
			order = append(order, it.node)
			for _, w := range g.nbrs[it.node] {
				if done[w] {
					continue
				}
				alt := it.dist + 1/g.adj[it.node][w]
				d, seen := dist[w]
				eps := 1e-12 * math.Max(1, alt)
				switch {
				case !seen || alt < d-eps:
					dist[w] = alt
					sigma[w] = sigma[it.node]
					preds[w] = []string{it.node}
					heap.Push(pq, distItem{node: w, dist: alt})
				case math.Abs(alt-d) <= eps:
					sigma[w] += sigma[it.node]
					preds[w] = append(preds[w], it.node)
				}
			}
		}

		delta := make(map[string]float64, len(order))
		for i := len(order) - 1; i >= 0; i-- {
			w := order[i]
			for _, v := range preds[w] {
				c := sigma[v] / sigma[w] * (1 + delta[w])
				scores[keyOf(v, w)] += c
				delta[v] += c
			}
		}
	}
	return scores
}

type distItem struct {
	node string
	dist float64
}

type distQueue []distItem

func (q distQueue) Len() int { return len(q) }
func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)   { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
