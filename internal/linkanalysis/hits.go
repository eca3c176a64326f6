package linkanalysis

import (
	"math"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// HITSConfig holds configuration for the hub/authority iteration.
type HITSConfig struct {
	MaxIterations int     `mapstructure:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance"`
	Weighted      bool    `mapstructure:"weighted"`
}

// DefaultHITSConfig returns the standard HITS configuration. Scores are
// computed on the unweighted link structure unless Weighted is set.
func DefaultHITSConfig() HITSConfig {
	return HITSConfig{MaxIterations: 1000, Tolerance: 1e-8}
}

// Validate rejects out-of-range parameters.
func (c HITSConfig) Validate() error {
	if c.Tolerance <= 0 {
		return analysis.Invalidf("hits tolerance must be > 0, got %g", c.Tolerance)
	}
	if c.MaxIterations <= 0 {
		return analysis.Invalidf("hits max_iterations must be > 0, got %d", c.MaxIterations)
	}
	return nil
}

// HITSResult holds hub and authority scores, each summing to 1.
type HITSResult struct {
	Hubs        map[string]float64 `json:"hubs"`
	Authorities map[string]float64 `json:"authorities"`
	RankedHubs  []string           `json:"ranked_hubs"`
	RankedAuths []string           `json:"ranked_authorities"`
	Iterations  int                `json:"iterations"`
	Converged   bool               `json:"converged"`
}

// HITS computes hub and authority scores of g. A hub points at good
// authorities; an authority is pointed at by good hubs. Both vectors are
// normalised to unit sum every iteration. A graph without edges yields
// zero scores and Converged=false.
func HITS(g *network.Graph, cfg HITSConfig) (*HITSResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes := g.Nodes()
	n := len(nodes)
	res := &HITSResult{
		Hubs:        make(map[string]float64, n),
		Authorities: make(map[string]float64, n),
	}
	if n == 0 {
		res.Converged = true
		res.RankedHubs, res.RankedAuths = []string{}, []string{}
		return res, nil
	}

	hub := make(map[string]float64, n)
	for _, v := range nodes {
		hub[v] = 1 / float64(n)
	}
	auth := make(map[string]float64, n)

	mass := func(u, v string) float64 { return edgeMass(g, u, v, cfg.Weighted) }

	for res.Iterations < cfg.MaxIterations {
		res.Iterations++

		nextAuth := make(map[string]float64, n)
		for _, v := range nodes {
			for _, u := range g.Predecessors(v) {
				nextAuth[v] += hub[u] * mass(u, v)
			}
		}
		if !normalize(nextAuth) {
			break
		}
		nextHub := make(map[string]float64, n)
		for _, u := range nodes {
			for _, v := range g.Successors(u) {
				nextHub[u] += nextAuth[v] * mass(u, v)
			}
		}
		if !normalize(nextHub) {
			break
		}

		var delta float64
		for _, v := range nodes {
			delta += math.Abs(nextHub[v] - hub[v])
		}
		hub, auth = nextHub, nextAuth
		if delta < cfg.Tolerance {
			res.Converged = true
			break
		}
	}

	for _, v := range nodes {
		res.Hubs[v] = hub[v]
		res.Authorities[v] = auth[v]
	}
	if !res.Converged && g.EdgeCount() == 0 {
		for _, v := range nodes {
			res.Hubs[v] = 0
		}
	}
	res.RankedHubs = rankIDs(res.Hubs)
	res.RankedAuths = rankIDs(res.Authorities)
	return res, nil
}

// normalize scales m to unit sum. It returns false when m sums to zero.
func normalize(m map[string]float64) bool {
	var total float64
	for _, v := range m {
		total += v
	}
	if total == 0 {
		return false
	}
	for k := range m {
		m[k] /= total
	}
	return true
}
