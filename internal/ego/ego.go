// Package ego extracts radius-bounded neighbourhoods around one character
// and summarises that character's interactions.
package ego

import (
	"sort"
	"strings"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// Mode selects which edges of the neighbourhood are kept.
type Mode float64

const (
	// ModeDirect keeps only edges with the ego as an endpoint.
	ModeDirect Mode = 1.0
	// ModeNeighborhood also keeps edges among the ego's neighbours.
	ModeNeighborhood Mode = 1.5
)

// Options configures Extract.
type Options struct {
	Radius int  `mapstructure:"radius"`
	Mode   Mode `mapstructure:"mode"`

	// MinWeight drops edges lighter than this after extraction, along
	// with any non-ego node left without edges.
	MinWeight float64 `mapstructure:"min_weight"`
}

// DefaultOptions returns radius 1 in mode 1.5.
func DefaultOptions() Options {
	return Options{Radius: 1, Mode: ModeNeighborhood}
}

// Validate rejects out-of-range parameters.
func (o Options) Validate() error {
	if o.Radius <= 0 {
		return analysis.Invalidf("ego radius must be > 0, got %d", o.Radius)
	}
	if o.Mode != ModeDirect && o.Mode != ModeNeighborhood {
		return analysis.Invalidf("ego mode must be 1.0 or 1.5, got %g", float64(o.Mode))
	}
	if o.MinWeight < 0 {
		return analysis.Invalidf("ego min_weight must be >= 0, got %g", o.MinWeight)
	}
	return nil
}

// Tie is one weighted interaction with the ego.
type Tie struct {
	Node   string  `json:"node"`
	Weight float64 `json:"weight"`
}

// Mutual is a neighbour the ego interacts with in both directions.
type Mutual struct {
	Node  string  `json:"node"`
	Out   float64 `json:"out"`
	In    float64 `json:"in"`
	Total float64 `json:"total"`
}

// Stats summarises the ego's interactions inside its network.
type Stats struct {
	// Incoming and Outgoing are sorted by weight descending, ties by id.
	Incoming []Tie `json:"incoming"`
	Outgoing []Tie `json:"outgoing"`

	// Reciprocal is sorted by combined weight descending, ties by id.
	Reciprocal []Mutual `json:"reciprocal"`

	// Influence is the eigenvector centrality of the undirected ego
	// graph, computed in mode 1.5 only.
	Influence *stats.Result `json:"influence,omitempty"`
}

// Network is an ego-centred subgraph.
type Network struct {
	Ego    string         `json:"ego"`
	Mode   Mode           `json:"mode"`
	Radius int            `json:"radius"`
	Graph  *network.Graph `json:"graph"`
	Stats  Stats          `json:"stats"`
}

// Empty reports whether the ego was absent from the source graph.
func (n *Network) Empty() bool { return n.Graph.NodeCount() == 0 }

// Extract builds the ego network of ego in g. An ego that is not in g
// yields an empty network and no error.
func Extract(g *network.Graph, ego string, opts Options) (*Network, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ego = strings.ToLower(strings.TrimSpace(ego))
	out := &Network{Ego: ego, Mode: opts.Mode, Radius: opts.Radius}
	if !g.Has(ego) {
		out.Graph = network.NewBuilder().Build()
		out.Stats = Stats{Incoming: []Tie{}, Outgoing: []Tie{}, Reciprocal: []Mutual{}}
		return out, nil
	}

	sub := g.Subgraph(within(g.Undirected(), ego, opts.Radius))
	if opts.Mode == ModeDirect {
		sub = sub.FilterEdges(func(e network.Edge) bool {
			return e.From == ego || e.To == ego
		})
	}
	if opts.MinWeight > 0 {
		sub = sub.FilterEdges(func(e network.Edge) bool {
			return e.Weight >= opts.MinWeight
		})
		sub = sub.Subgraph(connected(sub, ego))
	}
	out.Graph = sub
	out.Stats = summarize(sub, ego)
	if opts.Mode == ModeNeighborhood {
		inf := stats.EigenvectorUndirected(sub.Undirected(), stats.DefaultEigenvectorOptions())
		out.Stats.Influence = &inf
	}
	return out, nil
}

// connected returns the ego plus every node that still has an edge.
func connected(g *network.Graph, ego string) []string {
	keep := []string{ego}
	for _, v := range g.Nodes() {
		if v != ego && g.InDegree(v)+g.OutDegree(v) > 0 {
			keep = append(keep, v)
		}
	}
	return keep
}

// ExtractEach runs Extract on every graph, typically one per section.
// Sections without the ego produce empty networks.
func ExtractEach(graphs []*network.Graph, ego string, opts Options) ([]*Network, error) {
	out := make([]*Network, 0, len(graphs))
	for _, g := range graphs {
		n, err := Extract(g, ego, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// within returns every node at most radius hops from ego.
func within(u *network.Undirected, ego string, radius int) []string {
	dist := map[string]int{ego: 0}
	nodes := []string{ego}
	for queue := []string{ego}; len(queue) > 0; queue = queue[1:] {
		v := queue[0]
		if dist[v] == radius {
			continue
		}
		for _, w := range u.Neighbors(v) {
			if _, seen := dist[w]; !seen {
				dist[w] = dist[v] + 1
				nodes = append(nodes, w)
				queue = append(queue, w)
			}
		}
	}
	return nodes
}

func summarize(g *network.Graph, ego string) Stats {
	s := Stats{Incoming: []Tie{}, Outgoing: []Tie{}, Reciprocal: []Mutual{}}
	for _, u := range g.Predecessors(ego) {
		w, _ := g.Weight(u, ego)
		s.Incoming = append(s.Incoming, Tie{Node: u, Weight: w})
	}
	for _, v := range g.Successors(ego) {
		w, _ := g.Weight(ego, v)
		s.Outgoing = append(s.Outgoing, Tie{Node: v, Weight: w})
		if in, ok := g.Weight(v, ego); ok {
			s.Reciprocal = append(s.Reciprocal, Mutual{Node: v, Out: w, In: in, Total: w + in})
		}
	}
	byWeight := func(ties []Tie) {
		sort.Slice(ties, func(i, j int) bool {
			if ties[i].Weight != ties[j].Weight {
				return ties[i].Weight > ties[j].Weight
			}
			return ties[i].Node < ties[j].Node
		})
	}
	byWeight(s.Incoming)
	byWeight(s.Outgoing)
	sort.Slice(s.Reciprocal, func(i, j int) bool {
		a, b := s.Reciprocal[i], s.Reciprocal[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Node < b.Node
	})
	return s
}
