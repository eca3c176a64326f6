// Package stats computes descriptive statistics of an interaction graph:
// degree distributions, centralities, clustering and connectivity. Every
// function is a pure read of an immutable graph.
package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// Metric names used as keys in reports and persisted scores.
const (
	MetricInDegree    = "in_degree"
	MetricOutDegree   = "out_degree"
	MetricEigenvector = "eigenvector"
	MetricCloseness   = "closeness"
	MetricBetweenness = "betweenness"
)

// Result is the outcome of one centrality computation: either a value
// map or the reason it was not computed. Values may still hold a
// best-effort answer when Err is a degraded error.
type Result struct {
	Values map[string]float64 `json:"values,omitempty"`
	Err    error              `json:"-"`
	Reason string             `json:"reason,omitempty"`
}

// OK reports whether the metric was computed without error.
func (r Result) OK() bool { return r.Err == nil }

// Top returns the k highest scores, ties broken by node id. k <= 0
// returns all of them.
func (r Result) Top(k int) []Score { return Rank(r.Values, k) }

func failed(err error, best map[string]float64) Result {
	return Result{Values: best, Err: err, Reason: "not computed: " + err.Error()}
}

// Score is one node's value in a ranking.
type Score struct {
	Node  string  `json:"node"`
	Value float64 `json:"value"`
}

// Rank sorts values descending with ties broken by node id and keeps
// the first k (all when k <= 0).
func Rank(values map[string]float64, k int) []Score {
	out := make([]Score, 0, len(values))
	for n, v := range values {
		out = append(out, Score{Node: n, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Node < out[j].Node
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// CentralitySet holds the five centralities of one graph. Each field is
// computed in isolation.
type CentralitySet struct {
	InDegree    Result `json:"in_degree"`
	OutDegree   Result `json:"out_degree"`
	Eigenvector Result `json:"eigenvector"`
	Closeness   Result `json:"closeness"`
	Betweenness Result `json:"betweenness"`
}

// ByName returns the result for one of the Metric* names.
func (s CentralitySet) ByName(metric string) (Result, bool) {
	switch metric {
	case MetricInDegree:
		return s.InDegree, true
	case MetricOutDegree:
		return s.OutDegree, true
	case MetricEigenvector:
		return s.Eigenvector, true
	case MetricCloseness:
		return s.Closeness, true
	case MetricBetweenness:
		return s.Betweenness, true
	}
	return Result{}, false
}

// Metrics lists the centrality names in report order.
func Metrics() []string {
	return []string{MetricInDegree, MetricOutDegree, MetricEigenvector, MetricCloseness, MetricBetweenness}
}

// EigenvectorOptions bounds the power iteration.
type EigenvectorOptions struct {
	MaxIterations int     `mapstructure:"max_iterations" json:"max_iterations"`
	Tolerance     float64 `mapstructure:"tolerance" json:"tolerance"`
}

// DefaultEigenvectorOptions returns the reference solver settings.
func DefaultEigenvectorOptions() EigenvectorOptions {
	return EigenvectorOptions{MaxIterations: 1000, Tolerance: 1e-6}
}

// Validate rejects non-positive bounds.
func (o EigenvectorOptions) Validate() error {
	if o.MaxIterations <= 0 {
		return analysis.Invalidf("eigenvector max_iterations must be > 0, got %d", o.MaxIterations)
	}
	if o.Tolerance <= 0 {
		return analysis.Invalidf("eigenvector tolerance must be > 0, got %g", o.Tolerance)
	}
	return nil
}

// Centralities computes all five centralities of g. The error is non-nil
// only for invalid options; per-metric failures land in the metric's
// Result.
func Centralities(g *network.Graph, opts EigenvectorOptions) (CentralitySet, error) {
	if err := opts.Validate(); err != nil {
		return CentralitySet{}, err
	}
	return CentralitySet{
		InDegree:    isolate(func() Result { return InDegree(g) }),
		OutDegree:   isolate(func() Result { return OutDegree(g) }),
		Eigenvector: isolate(func() Result { return Eigenvector(g, opts) }),
		Closeness:   isolate(func() Result { return Closeness(g) }),
		Betweenness: isolate(func() Result { return Betweenness(g) }),
	}, nil
}

// isolate turns a panic inside one metric into that metric's error.
func isolate(fn func() Result) (r Result) {
	defer func() {
		if p := recover(); p != nil {
			r = failed(fmt.Errorf("panic: %v", p), nil)
		}
	}()
	return fn()
}

// InDegree returns in-degree / (n-1) per node. Empty for n <= 1.
func InDegree(g *network.Graph) Result {
	return degreeCentrality(g, g.InDegree)
}

// OutDegree returns out-degree / (n-1) per node. Empty for n <= 1.
func OutDegree(g *network.Graph) Result {
	return degreeCentrality(g, g.OutDegree)
}

func degreeCentrality(g *network.Graph, degree func(string) int) Result {
	values := make(map[string]float64, g.NodeCount())
	n := g.NodeCount()
	if n <= 1 {
		return Result{Values: values}
	}
	scale := 1 / float64(n-1)
	for _, v := range g.Nodes() {
		values[v] = float64(degree(v)) * scale
	}
	return Result{Values: values}
}

// Eigenvector returns weighted eigenvector centrality normalised to unit
// sum. A node's score is proportional to the summed, weighted scores of
// the nodes that point at it. The iteration runs on A+I so that periodic
// graphs still converge.
func Eigenvector(g *network.Graph, opts EigenvectorOptions) Result {
	if g.NodeCount() == 0 {
		return Result{Values: map[string]float64{}}
	}
	if g.EdgeCount() == 0 {
		return failed(analysis.ErrDegenerate, nil)
	}
	return powerIteration(g.Nodes(), func(v string, x map[string]float64) float64 {
		var s float64
		for _, u := range g.Predecessors(v) {
			w, _ := g.Weight(u, v)
			s += w * x[u]
		}
		return s
	}, opts)
}

// EigenvectorUndirected is Eigenvector over an undirected graph.
func EigenvectorUndirected(u *network.Undirected, opts EigenvectorOptions) Result {
	if u.NodeCount() == 0 {
		return Result{Values: map[string]float64{}}
	}
	if u.EdgeCount() == 0 {
		return failed(analysis.ErrDegenerate, nil)
	}
	return powerIteration(u.Nodes(), func(v string, x map[string]float64) float64 {
		var s float64
		for _, n := range u.Neighbors(v) {
			w, _ := u.Weight(v, n)
			s += w * x[n]
		}
		return s
	}, opts)
}

func powerIteration(nodes []string, inflow func(string, map[string]float64) float64, opts EigenvectorOptions) Result {
	n := float64(len(nodes))
	x := make(map[string]float64, len(nodes))
	for _, v := range nodes {
		x[v] = 1 / n
	}
	for it := 0; it < opts.MaxIterations; it++ {
		next := make(map[string]float64, len(nodes))
		var norm float64
		for _, v := range nodes {
			next[v] = x[v] + inflow(v, x)
			norm += next[v]
		}
		if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
			return failed(analysis.ErrDegenerate, nil)
		}
		var delta float64
		for _, v := range nodes {
			next[v] /= norm
			delta += math.Abs(next[v] - x[v])
		}
		x = next
		if delta < n*opts.Tolerance {
			return Result{Values: x}
		}
	}
	return failed(fmt.Errorf("eigenvector after %d iterations: %w", opts.MaxIterations, analysis.ErrNotConverged), x)
}

// Closeness returns closeness centrality using incoming distances: for
// node v, the nodes that can reach v. Scores are scaled by the reachable
// fraction so that nodes in small components are not over-rated.
func Closeness(g *network.Graph) Result {
	values := make(map[string]float64, g.NodeCount())
	n := g.NodeCount()
	if n == 0 {
		return Result{Values: values}
	}
	for _, v := range g.Nodes() {
		dist := bfs(v, g.Predecessors)
		var total float64
		for _, d := range dist {
			total += float64(d)
		}
		reach := float64(len(dist) - 1)
		if total > 0 && n > 1 {
			values[v] = (reach / total) * (reach / float64(n-1))
		} else {
			values[v] = 0
		}
	}
	return Result{Values: values}
}

// Betweenness returns unweighted betweenness centrality (Brandes)
// normalised by (n-1)(n-2).
func Betweenness(g *network.Graph) Result {
	nodes := g.Nodes()
	cb := make(map[string]float64, len(nodes))
	for _, v := range nodes {
		cb[v] = 0
	}
	if len(nodes) <= 2 {
		return Result{Values: cb}
	}

	for _, s := range nodes {
		stack := make([]string, 0, len(nodes))
		pred := make(map[string][]string, len(nodes))
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}
		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.Successors(v) {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	n := float64(len(nodes))
	scale := 1 / ((n - 1) * (n - 2))
	for v := range cb {
		cb[v] *= scale
	}
	return Result{Values: cb}
}

// bfs returns hop distances from src following next.
func bfs(src string, next func(string) []string) map[string]int {
	dist := map[string]int{src: 0}
	queue := []string{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range next(v) {
			if _, ok := dist[w]; !ok {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}
