package run

import (
	"context"
	"errors"
	"strings"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/graph"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/stats"
	"github.com/efebarandurmaz/castgraph/internal/vector"
)

var (
	// ErrNoGraphStore is returned by Sync without a graph repository.
	ErrNoGraphStore = errors.New("no graph repository configured")

	// ErrNoVectorStore is returned by the role operations without a
	// vector repository.
	ErrNoVectorStore = errors.New("no vector repository configured")
)

// Snapshot collects the persistable parts of a report: every
// centrality, PageRank, hub and authority score, and every community
// partition.
func Snapshot(in *Input, rep *Report) graph.Snapshot {
	snap := graph.Snapshot{
		Graph:       in.Graph,
		Scores:      make(map[string]map[string]float64),
		Communities: make(map[string]community.Partition),
	}
	if rep == nil {
		return snap
	}
	if rep.Stats != nil {
		for _, m := range stats.Metrics() {
			if c, _ := rep.Stats.Centralities.ByName(m); len(c.Values) > 0 {
				snap.Scores[m] = c.Values
			}
		}
	}
	if rep.Rank != nil {
		if rep.Rank.PageRank != nil {
			snap.Scores[progression.MetricPageRank] = rep.Rank.PageRank.Scores
		}
		if rep.Rank.HITS != nil {
			snap.Scores["hub"] = rep.Rank.HITS.Hubs
			snap.Scores["authority"] = rep.Rank.HITS.Authorities
		}
	}
	if rep.Communities != nil {
		snap.Communities = rep.Communities.Partitions()
	}
	return snap
}

// Sync runs every whole-graph analysis and writes the graph with its
// scores and partitions to the graph repository.
func (r *Runner) Sync(ctx context.Context, in *Input) (*Report, error) {
	if r.graphs == nil {
		return nil, ErrNoGraphStore
	}
	rep, err := r.All(ctx, in)
	if err != nil {
		return nil, err
	}
	snap := Snapshot(in, rep)
	if err := graph.Save(ctx, r.graphs, in.Dataset, snap); err != nil {
		r.logger.Error("sync failed", "dataset", in.Dataset, "error", err)
		return nil, err
	}
	r.logger.Info("graph synced",
		"dataset", in.Dataset,
		"nodes", in.Graph.NodeCount(),
		"edges", in.Graph.EdgeCount(),
		"scores", len(snap.Scores),
		"partitions", len(snap.Communities))
	return rep, nil
}

// Stored reads a previously synced dataset back from the graph
// repository as an Input.
func (r *Runner) Stored(ctx context.Context, dataset string) (*Input, error) {
	if r.graphs == nil {
		return nil, ErrNoGraphStore
	}
	recs, err := r.graphs.LoadRecords(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return r.Prepare(dataset, recs, nil), nil
}

func (r *Runner) indexer() *vector.Indexer {
	a := r.cfg.Analysis
	return vector.NewIndexer(r.vectors, vector.FingerprintOptions{
		PageRank:    a.PageRank,
		HITS:        a.HITS,
		Eigenvector: a.Eigenvector,
	}, r.logger)
}

// IndexRoles stores a role fingerprint for every connected character.
func (r *Runner) IndexRoles(ctx context.Context, in *Input) (int, error) {
	if r.vectors == nil {
		return 0, ErrNoVectorStore
	}
	var n int
	err := r.observe(ctx, "roles_index", in, func(ctx context.Context) (outcome, error) {
		var err error
		n, err = r.indexer().IndexGraph(ctx, in.Dataset, in.Graph)
		return succeeded(n), err
	})
	return n, err
}

// SimilarRoles finds the k characters, in scope or in every indexed
// dataset when scope is empty, whose role is closest to character's.
func (r *Runner) SimilarRoles(ctx context.Context, in *Input, character string, k int, scope string) ([]vector.SearchResult, error) {
	if r.vectors == nil {
		return nil, ErrNoVectorStore
	}
	character = strings.ToLower(strings.TrimSpace(character))
	var hits []vector.SearchResult
	err := r.observe(ctx, "roles_similar", in, func(ctx context.Context) (outcome, error) {
		var err error
		hits, err = r.indexer().Similar(ctx, in.Dataset, in.Graph, character, k, scope)
		return succeeded(len(hits)), err
	})
	return hits, err
}
