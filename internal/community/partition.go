// Package community partitions the undirected interaction projection into
// communities and compares the partitions produced by different detectors.
package community

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// Detector names used in results, config and reports.
const (
	AlgorithmDivisive = "girvan_newman"
	AlgorithmLouvain  = "louvain"
	AlgorithmLeiden   = "leiden"
)

// Algorithms lists the detectors in report order.
func Algorithms() []string {
	return []string{AlgorithmDivisive, AlgorithmLouvain, AlgorithmLeiden}
}

// Partition maps every node to a community id. Ids are dense from 0.
type Partition map[string]int

// Count returns the number of communities.
func (p Partition) Count() int {
	seen := make(map[int]struct{}, len(p))
	for _, id := range p {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// Communities returns the members of each community indexed by id, each
// member list sorted.
func (p Partition) Communities() [][]string {
	out := make([][]string, p.Count())
	for node, id := range p {
		out[id] = append(out[id], node)
	}
	for _, members := range out {
		sort.Strings(members)
	}
	return out
}

// Sizes returns community sizes indexed by id.
func (p Partition) Sizes() []int {
	sizes := make([]int, p.Count())
	for _, id := range p {
		sizes[id]++
	}
	return sizes
}

// Result is the output of one detector run.
type Result struct {
	Algorithm  string    `json:"algorithm"`
	Partition  Partition `json:"partition"`
	Modularity float64   `json:"modularity"`

	// Levels counts splits for the divisive detector and hierarchy
	// levels for the aggregative ones.
	Levels int `json:"levels"`

	// LargestClustering is LargestCommunityClustering of the partition,
	// filled in by callers that want it.
	LargestClustering float64 `json:"largest_clustering"`
}

// Options configures the detectors. Fields a detector does not use are
// ignored by it.
type Options struct {
	// Resolution is the modularity resolution γ. Values above 1 favour
	// smaller communities.
	Resolution float64 `mapstructure:"resolution"`

	// K stops the divisive detector at K communities. Zero scans every
	// split level and keeps the one with the highest modularity.
	K int `mapstructure:"k"`

	// MaxIterations caps the Leiden passes. Zero runs to convergence.
	MaxIterations int `mapstructure:"max_iterations"`

	// Seed seeds the move-order generator when Rand is nil.
	Seed uint64 `mapstructure:"seed"`

	Rand *rand.Rand `mapstructure:"-" json:"-"`
}

// DefaultOptions returns resolution 1 and a fixed seed.
func DefaultOptions() Options {
	return Options{Resolution: 1, Seed: 42}
}

// Validate rejects out-of-range parameters.
func (o Options) Validate() error {
	if o.Resolution <= 0 {
		return analysis.Invalidf("community resolution must be > 0, got %g", o.Resolution)
	}
	if o.K < 0 {
		return analysis.Invalidf("community k must be >= 0, got %d", o.K)
	}
	if o.MaxIterations < 0 {
		return analysis.Invalidf("community max_iterations must be >= 0, got %d", o.MaxIterations)
	}
	return nil
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewPCG(o.Seed, o.Seed))
}

// fromGroups numbers groups densely by first appearance in sorted node
// order. Nodes not covered by any group get a community of their own.
func fromGroups(nodes []string, groups [][]string) Partition {
	owner := make(map[string]int, len(nodes))
	for gi, group := range groups {
		for _, v := range group {
			owner[v] = gi
		}
	}
	p := make(Partition, len(nodes))
	remap := make(map[int]int, len(groups))
	next := 0
	for _, v := range nodes {
		gi, ok := owner[v]
		if !ok {
			p[v] = next
			next++
			continue
		}
		id, seen := remap[gi]
		if !seen {
			id = next
			remap[gi] = id
			next++
		}
		p[v] = id
	}
	return p
}

// Modularity returns the weighted modularity Q of p on u at the given
// resolution. A graph without edges has Q = 0.
func Modularity(u *network.Undirected, p Partition, resolution float64) float64 {
	if u.TotalWeight() == 0 {
		return 0
	}
	ug, idx := u.Gonum()
	groups := p.Communities()
	comms := make([][]graph.Node, 0, len(groups))
	for _, members := range groups {
		comms = append(comms, idx.Nodes(members))
	}
	return community.Q(ug, comms, resolution)
}

// LargestCommunityClustering returns the average clustering coefficient
// of the subgraph induced by the largest community (lowest id on ties).
func LargestCommunityClustering(u *network.Undirected, p Partition) float64 {
	groups := p.Communities()
	if len(groups) == 0 {
		return 0
	}
	largest := groups[0]
	for _, members := range groups[1:] {
		if len(members) > len(largest) {
			largest = members
		}
	}
	return stats.Clustering(u.Subgraph(largest)).Average
}

// connectedParts splits each group into the connected pieces it induces
// in u.
func connectedParts(u *network.Undirected, groups [][]string) [][]string {
	var out [][]string
	for _, group := range groups {
		in := make(map[string]bool, len(group))
		for _, v := range group {
			in[v] = true
		}
		seen := make(map[string]bool, len(group))
		sorted := append([]string(nil), group...)
		sort.Strings(sorted)
		for _, start := range sorted {
			if seen[start] {
				continue
			}
			seen[start] = true
			part := []string{start}
			for queue := []string{start}; len(queue) > 0; queue = queue[1:] {
				for _, w := range u.Neighbors(queue[0]) {
					if in[w] && !seen[w] {
						seen[w] = true
						part = append(part, w)
						queue = append(queue, w)
					}
				}
			}
			sort.Strings(part)
			out = append(out, part)
		}
	}
	return out
}
