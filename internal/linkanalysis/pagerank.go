// Package linkanalysis implements the fixed-point link-analysis solvers
// PageRank and HITS over a directed interaction graph.
package linkanalysis

import (
	"math"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// MaxIterations caps the power iteration (default: 1000)
	MaxIterations int `mapstructure:"max_iterations"`

	// DampingFactor is the probability of following an edge (default: 0.85)
	DampingFactor float64 `mapstructure:"damping"`

	// Tolerance is the L1 change below which the iteration stops (default: 1e-8)
	Tolerance float64 `mapstructure:"tolerance"`

	// Weighted uses edge weights as transition mass; otherwise every
	// out-edge is equally likely.
	Weighted bool `mapstructure:"weighted"`
}

// DefaultPageRankConfig returns the standard PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		MaxIterations: 1000,
		DampingFactor: 0.85,
		Tolerance:     1e-8,
		Weighted:      true,
	}
}

// Validate rejects out-of-range parameters.
func (c PageRankConfig) Validate() error {
	if c.DampingFactor <= 0 || c.DampingFactor >= 1 {
		return analysis.Invalidf("pagerank damping must be in (0,1), got %g", c.DampingFactor)
	}
	if c.Tolerance <= 0 {
		return analysis.Invalidf("pagerank tolerance must be > 0, got %g", c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return analysis.Invalidf("pagerank max_iterations must be > 0, got %d", c.MaxIterations)
	}
	return nil
}

// PageRankResult holds the results of PageRank computation.
type PageRankResult struct {
	// Scores maps node id to score; scores sum to 1
	Scores map[string]float64 `json:"scores"`

	// Ranked contains node ids sorted by score (descending, ties by id)
	Ranked []string `json:"ranked"`

	// Iterations is the number of iterations run
	Iterations int `json:"iterations"`

	// Converged is false when MaxIterations was hit first
	Converged bool `json:"converged"`
}

// PageRank computes PageRank scores of g. Mass held by nodes without
// out-edges is spread uniformly over all nodes each step, so no rank
// leaks out of the system.
func PageRank(g *network.Graph, cfg PageRankConfig) (*PageRankResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return &PageRankResult{Scores: map[string]float64{}, Ranked: []string{}, Converged: true}, nil
	}

	index := make(map[string]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	// transition[j] lists (target, probability) pairs for node j
	type link struct {
		to int
		p  float64
	}
	transition := make([][]link, n)
	var dangling []int
	for j, u := range nodes {
		succ := g.Successors(u)
		if len(succ) == 0 {
			dangling = append(dangling, j)
			continue
		}
		var z float64
		for _, v := range succ {
			z += edgeMass(g, u, v, cfg.Weighted)
		}
		for _, v := range succ {
			transition[j] = append(transition[j], link{to: index[v], p: edgeMass(g, u, v, cfg.Weighted) / z})
		}
	}

	d := cfg.DampingFactor
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / float64(n)
	}
	next := make([]float64, n)
	result := &PageRankResult{}

	for result.Iterations < cfg.MaxIterations {
		result.Iterations++

		var danglingMass float64
		for _, j := range dangling {
			danglingMass += scores[j]
		}
		base := (1-d)/float64(n) + d*danglingMass/float64(n)
		for i := range next {
			next[i] = base
		}
		for j, links := range transition {
			for _, l := range links {
				next[l.to] += d * scores[j] * l.p
			}
		}

		var delta float64
		for i := range scores {
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		if delta < cfg.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Scores = make(map[string]float64, n)
	var total float64
	for _, s := range scores {
		total += s
	}
	for i, id := range nodes {
		result.Scores[id] = scores[i] / total
	}
	result.Ranked = rankIDs(result.Scores)
	return result, nil
}

func edgeMass(g *network.Graph, u, v string, weighted bool) float64 {
	if !weighted {
		return 1
	}
	w, _ := g.Weight(u, v)
	return w
}

// rankIDs sorts ids by score descending with ties broken by id.
func rankIDs(scores map[string]float64) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
