package stats

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

// ComponentDiameter is the longest shortest path inside one strongly
// connected component.
type ComponentDiameter struct {
	Size     int      `json:"size"`
	Diameter int      `json:"diameter"`
	Members  []string `json:"members"`
}

// ConnectivityReport summarises weak and strong connectivity of a graph.
type ConnectivityReport struct {
	Nodes            int                 `json:"nodes"`
	Edges            int                 `json:"edges"`
	Density          float64             `json:"density"`
	WeakComponents   [][]string          `json:"weak_components"`
	StrongComponents [][]string          `json:"strong_components"`
	WeakSizes        map[int]int         `json:"weak_sizes"`
	StrongSizes      map[int]int         `json:"strong_sizes"`
	Diameters        []ComponentDiameter `json:"diameters"`
}

// WeakCount returns the number of weakly connected components.
func (r ConnectivityReport) WeakCount() int { return len(r.WeakComponents) }

// StrongCount returns the number of strongly connected components.
func (r ConnectivityReport) StrongCount() int { return len(r.StrongComponents) }

// Connectivity enumerates components, their size histograms, the
// diameter of every strongly connected component with more than one
// node, and the directed density m / (n(n-1)).
func Connectivity(g *network.Graph) ConnectivityReport {
	r := ConnectivityReport{
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		WeakSizes:   map[int]int{},
		StrongSizes: map[int]int{},
	}
	r.Density = Density(g)
	if g.NodeCount() == 0 {
		return r
	}

	r.WeakComponents = WeakComponents(g.Undirected())
	r.StrongComponents = StrongComponents(g)
	for _, c := range r.WeakComponents {
		r.WeakSizes[len(c)]++
	}
	for _, c := range r.StrongComponents {
		r.StrongSizes[len(c)]++
		if len(c) > 1 {
			r.Diameters = append(r.Diameters, ComponentDiameter{
				Size:     len(c),
				Diameter: diameter(g.Subgraph(c)),
				Members:  c,
			})
		}
	}
	return r
}

// Density returns m / (n(n-1)), or 0 when n <= 1.
func Density(g *network.Graph) float64 {
	n := g.NodeCount()
	if n <= 1 {
		return 0
	}
	return float64(g.EdgeCount()) / float64(n*(n-1))
}

// WeakComponents returns the connected components of u, largest first.
func WeakComponents(u *network.Undirected) [][]string {
	ug, idx := u.Gonum()
	return namedComponents(topo.ConnectedComponents(ug), idx)
}

// StrongComponents returns the strongly connected components of g,
// largest first.
func StrongComponents(g *network.Graph) [][]string {
	dg, idx := g.Gonum()
	return namedComponents(topo.TarjanSCC(dg), idx)
}

func namedComponents(comps [][]graph.Node, idx *network.NodeIndex) [][]string {
	out := make([][]string, len(comps))
	for i, c := range comps {
		out[i] = idx.Names(c)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// diameter is the maximum BFS eccentricity over g's nodes. g is expected
// to be strongly connected.
func diameter(g *network.Graph) int {
	var d int
	for _, v := range g.Nodes() {
		for _, hops := range bfs(v, g.Successors) {
			d = max(d, hops)
		}
	}
	return d
}
