package run

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/stats"
	"github.com/efebarandurmaz/castgraph/internal/structure"
)

// StatsResult groups the descriptive statistics of one graph.
type StatsResult struct {
	Centralities stats.CentralitySet      `json:"centralities"`
	Connectivity stats.ConnectivityReport `json:"connectivity"`
	Clustering   stats.ClusteringReport   `json:"clustering"`
	Degrees      stats.DegreeDistribution `json:"degrees"`
}

// Stats computes centralities, connectivity, clustering and the degree
// distributions.
func (r *Runner) Stats(ctx context.Context, in *Input) (*StatsResult, error) {
	var res *StatsResult
	err := r.observe(ctx, "stats", in, func(context.Context) (outcome, error) {
		set, err := stats.Centralities(in.Graph, r.cfg.Analysis.Eigenvector)
		if err != nil {
			return outcome{}, err
		}
		res = &StatsResult{
			Centralities: set,
			Connectivity: stats.Connectivity(in.Graph),
			Clustering:   stats.Clustering(in.Graph.Undirected()),
			Degrees:      stats.Degrees(in.Graph),
		}
		out := succeeded(in.Graph.NodeCount())
		var failed []string
		for _, m := range stats.Metrics() {
			if c, _ := set.ByName(m); !c.OK() {
				failed = append(failed, m+" "+c.Reason)
				if errors.Is(c.Err, analysis.ErrNotConverged) {
					out.converged = false
				}
			}
		}
		out.degraded = strings.Join(failed, "; ")
		return out, nil
	})
	return res, err
}

// RankResult holds both link-analysis solvers' output.
type RankResult struct {
	PageRank *linkanalysis.PageRankResult `json:"pagerank"`
	HITS     *linkanalysis.HITSResult     `json:"hits"`
}

// Rank runs PageRank and HITS.
func (r *Runner) Rank(ctx context.Context, in *Input) (*RankResult, error) {
	res := &RankResult{}
	err := r.observe(ctx, "pagerank", in, func(context.Context) (outcome, error) {
		pr, err := linkanalysis.PageRank(in.Graph, r.cfg.Analysis.PageRank)
		if err != nil {
			return outcome{}, err
		}
		res.PageRank = pr
		return solver(pr.Converged, pr.Iterations, len(pr.Scores), in.Graph), nil
	})
	if err != nil {
		return nil, err
	}
	err = r.observe(ctx, "hits", in, func(context.Context) (outcome, error) {
		h, err := linkanalysis.HITS(in.Graph, r.cfg.Analysis.HITS)
		if err != nil {
			return outcome{}, err
		}
		res.HITS = h
		return solver(h.Converged, h.Iterations, len(h.Hubs), in.Graph), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// solver describes an iterative result. A graph without edges never
// converges for HITS, which is expected rather than degraded.
func solver(converged bool, iterations, items int, g *network.Graph) outcome {
	out := outcome{converged: converged, iterations: iterations, items: items}
	if !converged && g.EdgeCount() > 0 {
		out.degraded = fmt.Sprintf("stopped after %d iterations", iterations)
	}
	return out
}

// CommunityResult holds every detector's partition and their pairwise
// agreement.
type CommunityResult struct {
	Results     []*community.Result    `json:"results"`
	Comparisons []community.Comparison `json:"comparisons,omitempty"`
}

// Partitions returns the partitions keyed by algorithm.
func (c *CommunityResult) Partitions() map[string]community.Partition {
	out := make(map[string]community.Partition, len(c.Results))
	for _, res := range c.Results {
		out[res.Algorithm] = res.Partition
	}
	return out
}

type detector func(*network.Undirected, community.Options) (*community.Result, error)

var detectors = map[string]detector{
	community.AlgorithmDivisive: community.Divisive,
	community.AlgorithmLouvain:  community.Louvain,
	community.AlgorithmLeiden:   community.Leiden,
}

// Communities runs the named detectors, all of them when algorithms is
// empty, and compares their partitions.
func (r *Runner) Communities(ctx context.Context, in *Input, algorithms ...string) (*CommunityResult, error) {
	if len(algorithms) == 0 {
		algorithms = community.Algorithms()
	}
	for _, name := range algorithms {
		if _, ok := detectors[name]; !ok {
			return nil, analysis.Invalidf("unknown community algorithm %q (want one of %s)",
				name, strings.Join(community.Algorithms(), ", "))
		}
	}
	u := in.Graph.Undirected()
	res := &CommunityResult{Results: make([]*community.Result, len(algorithms))}
	for i, name := range algorithms {
		err := r.observe(ctx, name, in, func(context.Context) (outcome, error) {
			c, err := detectors[name](u, r.cfg.Analysis.Community)
			if err != nil {
				return outcome{}, err
			}
			c.LargestClustering = community.LargestCommunityClustering(u, c.Partition)
			res.Results[i] = c
			r.prom.RecordCommunities(name, c.Partition.Count(), c.Modularity)
			out := succeeded(c.Partition.Count())
			out.iterations = c.Levels
			return out, nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(res.Results) > 1 {
		res.Comparisons = community.CompareAll(res.Partitions())
	}
	return res, nil
}

// StructureResult groups cliques, homophily and bridges.
type StructureResult struct {
	Cliques   *structure.CliqueReport      `json:"cliques"`
	Homophily []*structure.HomophilyReport `json:"homophily"`
	Bridges   *structure.BridgeReport      `json:"bridges"`
}

// Structure finds cliques, measures homophily of every configured
// character attribute, and locates bridges and articulation points.
func (r *Runner) Structure(ctx context.Context, in *Input) (*StructureResult, error) {
	res := &StructureResult{Homophily: []*structure.HomophilyReport{}}
	err := r.observe(ctx, "cliques", in, func(context.Context) (outcome, error) {
		c, err := structure.Cliques(in.Graph, r.cfg.Analysis.CliqueMode)
		if err != nil {
			return outcome{}, err
		}
		res.Cliques = c
		return succeeded(len(c.Cliques)), nil
	})
	if err != nil {
		return nil, err
	}

	if table := r.attributes(in); len(table) > 0 {
		err = r.observe(ctx, "homophily", in, func(context.Context) (outcome, error) {
			h, err := structure.HomophilyAll(in.Graph, table, r.cfg.Analysis.Homophily)
			if err != nil {
				return outcome{}, err
			}
			res.Homophily = h
			return succeeded(len(h)), nil
		})
		if err != nil {
			return nil, err
		}
	}

	err = r.observe(ctx, "bridges", in, func(context.Context) (outcome, error) {
		res.Bridges = structure.Bridges(in.Graph, r.cfg.Analysis.Bridges)
		return succeeded(len(res.Bridges.WeakBridges)), nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// attributes selects the character attributes homophily runs on.
func (r *Runner) attributes(in *Input) map[string]map[string]string {
	if in.Characters == nil {
		return nil
	}
	want := r.cfg.Data.Attributes
	table := make(map[string]map[string]string)
	for name, values := range in.Characters.Attributes {
		if len(want) > 0 && !slices.ContainsFunc(want, func(w string) bool { return strings.EqualFold(w, name) }) {
			continue
		}
		if len(values) > 0 {
			table[name] = values
		}
	}
	return table
}

// Ego extracts the ego network of character from the whole graph.
func (r *Runner) Ego(ctx context.Context, in *Input, character string) (*ego.Network, error) {
	var n *ego.Network
	err := r.observe(ctx, "ego", in, func(context.Context) (outcome, error) {
		var err error
		if n, err = ego.Extract(in.Graph, character, r.cfg.Analysis.Ego); err != nil {
			return outcome{}, err
		}
		out := succeeded(n.Graph.NodeCount())
		if n.Empty() {
			out.degraded = fmt.Sprintf("%q is not in the graph", n.Ego)
		}
		return out, nil
	})
	return n, err
}

// SectionEgo is an ego network inside one section.
type SectionEgo struct {
	Section string       `json:"section"`
	Network *ego.Network `json:"network"`
}

// EgoSections extracts character's ego network in every section.
func (r *Runner) EgoSections(ctx context.Context, in *Input, character string) ([]SectionEgo, error) {
	if len(in.Sections) == 0 {
		return nil, analysis.Invalidf("the edge list has no section column")
	}
	var out []SectionEgo
	err := r.observe(ctx, "ego_sections", in, func(context.Context) (outcome, error) {
		graphs := make([]*network.Graph, len(in.Sections))
		for i, sec := range in.Sections {
			graphs[i], _ = network.Build(sec.Records, in.Allow())
		}
		nets, err := ego.ExtractEach(graphs, character, r.cfg.Analysis.Ego)
		if err != nil {
			return outcome{}, err
		}
		out = make([]SectionEgo, len(nets))
		present := 0
		for i, n := range nets {
			out[i] = SectionEgo{Section: in.Sections[i].Name, Network: n}
			if !n.Empty() {
				present++
			}
		}
		return succeeded(present), nil
	})
	return out, err
}

// Progression follows the configured metric across the input's
// sections.
func (r *Runner) Progression(ctx context.Context, in *Input) (*progression.Progression, error) {
	if len(in.Sections) == 0 {
		return nil, analysis.Invalidf("the edge list has no section column")
	}
	opts := r.ProgressionOptions(in)
	var p *progression.Progression
	err := r.observe(ctx, "progression", in, func(context.Context) (outcome, error) {
		var err error
		if p, err = progression.Compute(in.Sections, opts); err != nil {
			return outcome{}, err
		}
		out := succeeded(len(p.Series))
		out.iterations = len(p.Sections)
		if len(p.Warnings) > 0 {
			out.degraded = fmt.Sprintf("%d sections degraded", len(p.Warnings))
		}
		return out, nil
	})
	return p, err
}

// ProgressionOptions merges the configured progression metric with the
// solver settings of the other analyses.
func (r *Runner) ProgressionOptions(in *Input) progression.Options {
	opts := r.cfg.Analysis.Progression
	opts.Allow = in.Allow()
	opts.Eigenvector = r.cfg.Analysis.Eigenvector
	opts.PageRank = r.cfg.Analysis.PageRank
	return opts
}

// Report is the result of All.
type Report struct {
	Dataset     string                   `json:"dataset"`
	Stats       *StatsResult             `json:"stats"`
	Rank        *RankResult              `json:"rank"`
	Communities *CommunityResult         `json:"communities"`
	Structure   *StructureResult         `json:"structure"`
	Progression *progression.Progression `json:"progression,omitempty"`
}

// All runs every whole-graph analysis concurrently, plus the
// progression when the input has sections. The first failure cancels
// the rest.
func (r *Runner) All(ctx context.Context, in *Input) (*Report, error) {
	rep := &Report{Dataset: in.Dataset}
	var mu sync.Mutex
	set := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := r.Stats(gctx, in)
		set(func() { rep.Stats = s })
		return err
	})
	g.Go(func() error {
		rk, err := r.Rank(gctx, in)
		set(func() { rep.Rank = rk })
		return err
	})
	g.Go(func() error {
		c, err := r.Communities(gctx, in)
		set(func() { rep.Communities = c })
		return err
	})
	g.Go(func() error {
		s, err := r.Structure(gctx, in)
		set(func() { rep.Structure = s })
		return err
	})
	if len(in.Sections) > 0 {
		g.Go(func() error {
			p, err := r.Progression(gctx, in)
			set(func() { rep.Progression = p })
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}
