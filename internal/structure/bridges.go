package structure

import (
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// BridgeOptions configures Bridges.
type BridgeOptions struct {
	// Reciprocal drops every edge whose reverse is absent before the
	// analysis, so only mutual interactions hold the graph together.
	Reciprocal bool `mapstructure:"reciprocal"`
}

// BridgeReport lists nodes and edges whose removal fragments the graph.
type BridgeReport struct {
	// WeakArticulation holds nodes whose removal increases the number of
	// connected components of the undirected projection.
	WeakArticulation []string `json:"weak_articulation"`

	// StrongArticulation holds nodes whose removal increases the number
	// of strongly connected components.
	StrongArticulation []string `json:"strong_articulation"`

	// WeakBridges holds projection edges (From < To) whose removal
	// increases the number of connected components.
	WeakBridges []network.Edge `json:"weak_bridges"`
}

// Bridges finds articulation points and bridges of g. All lists are
// sorted.
func Bridges(g *network.Graph, opts BridgeOptions) *BridgeReport {
	if opts.Reciprocal {
		full := g
		g = full.FilterEdges(func(e network.Edge) bool {
			_, ok := full.Weight(e.To, e.From)
			return ok
		})
	}
	report := &BridgeReport{}
	report.WeakArticulation, report.WeakBridges = weakCuts(g.Undirected())
	report.StrongArticulation = strongArticulation(g)
	return report
}

// weakCuts runs Tarjan's low-link search over every component of u.
func weakCuts(u *network.Undirected) ([]string, []network.Edge) {
	disc := make(map[string]int, u.NodeCount())
	low := make(map[string]int, u.NodeCount())
	cut := make(map[string]bool)
	bridges := []network.Edge{}
	timer := 0

	var visit func(v, parent string, root bool)
	visit = func(v, parent string, root bool) {
		timer++
		disc[v], low[v] = timer, timer
		children := 0
		for _, w := range u.Neighbors(v) {
			if !root && w == parent {
				continue
			}
			if disc[w] != 0 {
				low[v] = min(low[v], disc[w])
				continue
			}
			children++
			visit(w, v, false)
			low[v] = min(low[v], low[w])
			if !root && low[w] >= disc[v] {
				cut[v] = true
			}
			if low[w] > disc[v] {
				a, b := v, w
				if b < a {
					a, b = b, a
				}
				weight, _ := u.Weight(a, b)
				bridges = append(bridges, network.Edge{From: a, To: b, Weight: weight})
			}
		}
		if root && children > 1 {
			cut[v] = true
		}
	}
	for _, v := range u.Nodes() {
		if disc[v] == 0 {
			visit(v, "", true)
		}
	}

	points := make([]string, 0, len(cut))
	for v := range cut {
		points = append(points, v)
	}
	sort.Strings(points)
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].From != bridges[j].From {
			return bridges[i].From < bridges[j].From
		}
		return bridges[i].To < bridges[j].To
	})
	return points, bridges
}

// strongArticulation removes each node in turn and recounts strongly
// connected components, one SCC pass per node.
// TODO: replace with the linear-time dominator-based algorithm of
// Italiano, Laura and Santaroni if graphs grow past a few thousand nodes.
func strongArticulation(g *network.Graph) []string {
	points := []string{}
	base := len(stats.StrongComponents(g))
	for _, v := range g.Nodes() {
		if len(stats.StrongComponents(g.WithoutNode(v))) > base {
			points = append(points, v)
		}
	}
	return points
}
