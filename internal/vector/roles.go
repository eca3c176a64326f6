// Package vector indexes characters by structural role. A role
// fingerprint places each character in a feature space of centralities
// so that characters playing similar parts, in the same work or in
// different ones, sit close together under cosine similarity.
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// Features lists the fingerprint dimensions in vector order.
var Features = []string{
	"in_degree",
	"out_degree",
	"eigenvector",
	"closeness",
	"betweenness",
	"pagerank",
	"hub",
	"authority",
	"clustering",
}

// FingerprintOptions configures the iterative measures behind a
// fingerprint.
type FingerprintOptions struct {
	PageRank    linkanalysis.PageRankConfig
	HITS        linkanalysis.HITSConfig
	Eigenvector stats.EigenvectorOptions
}

// DefaultFingerprintOptions returns the engines' defaults.
func DefaultFingerprintOptions() FingerprintOptions {
	return FingerprintOptions{
		PageRank:    linkanalysis.DefaultPageRankConfig(),
		HITS:        linkanalysis.DefaultHITSConfig(),
		Eigenvector: stats.DefaultEigenvectorOptions(),
	}
}

// Fingerprints computes a unit-length role vector for every character
// of g. Each feature is first scaled by its maximum over the graph so
// no single measure dominates. A character with no ties gets the zero
// vector. A measure that failed to converge contributes its best
// estimate.
func Fingerprints(g *network.Graph, opts FingerprintOptions) (map[string][]float64, error) {
	set, err := stats.Centralities(g, opts.Eigenvector)
	if err != nil {
		return nil, err
	}
	pr, err := linkanalysis.PageRank(g, opts.PageRank)
	if err != nil {
		return nil, err
	}
	hits, err := linkanalysis.HITS(g, opts.HITS)
	if err != nil {
		return nil, err
	}
	clustering := stats.Clustering(g.Undirected())

	columns := []map[string]float64{
		set.InDegree.Values,
		set.OutDegree.Values,
		set.Eigenvector.Values,
		set.Closeness.Values,
		set.Betweenness.Values,
		pr.Scores,
		hits.Hubs,
		hits.Authorities,
		clustering.Local,
	}

	nodes := g.Nodes()
	out := make(map[string][]float64, len(nodes))
	for _, id := range nodes {
		out[id] = make([]float64, len(columns))
	}
	for j, col := range columns {
		var peak float64
		for _, id := range nodes {
			peak = max(peak, col[id])
		}
		if peak <= 0 {
			continue
		}
		for _, id := range nodes {
			out[id][j] = col[id] / peak
		}
	}
	for _, id := range nodes {
		v := out[id]
		if g.InDegree(id)+g.OutDegree(id) == 0 {
			floats.Scale(0, v)
			continue
		}
		if n := floats.Norm(v, 2); n > 0 {
			floats.Scale(1/n, v)
		}
	}
	return out, nil
}

// PointID is the stable id of a character's fingerprint, so reindexing
// a dataset overwrites rather than duplicates.
func PointID(dataset, character string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("castgraph:"+dataset+"/"+character)).String()
}

// Indexer computes fingerprints and stores them in a Repository.
type Indexer struct {
	repo   Repository
	opts   FingerprintOptions
	logger *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(repo Repository, opts FingerprintOptions, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{repo: repo, opts: opts, logger: logger.With("component", "roles")}
}

// IndexGraph upserts the fingerprint of every connected character of g
// and returns how many were stored. Isolated characters have no role to
// compare and are skipped.
func (x *Indexer) IndexGraph(ctx context.Context, dataset string, g *network.Graph) (int, error) {
	prints, err := Fingerprints(g, x.opts)
	if err != nil {
		return 0, fmt.Errorf("fingerprints: %w", err)
	}
	docs := make([]Document, 0, len(prints))
	for _, id := range g.Nodes() {
		v := prints[id]
		if floats.Norm(v, 2) == 0 {
			continue
		}
		docs = append(docs, Document{
			ID:        PointID(dataset, id),
			Dataset:   dataset,
			Character: id,
			Vector:    toFloat32(v),
			Metadata: map[string]string{
				"in_degree":  strconv.Itoa(g.InDegree(id)),
				"out_degree": strconv.Itoa(g.OutDegree(id)),
			},
		})
	}
	if len(docs) == 0 {
		x.logger.Warn("no connected characters to index", "dataset", dataset)
		return 0, nil
	}
	if err := x.repo.Upsert(ctx, docs); err != nil {
		return 0, fmt.Errorf("upsert fingerprints: %w", err)
	}
	x.logger.Info("indexed role fingerprints", "dataset", dataset, "characters", len(docs), "skipped", g.NodeCount()-len(docs))
	return len(docs), nil
}

// Similar returns the k characters whose role is closest to character's
// role in g. The character itself is excluded. With scope empty every
// indexed dataset is searched; otherwise only scope.
func (x *Indexer) Similar(ctx context.Context, dataset string, g *network.Graph, character string, k int, scope string) ([]SearchResult, error) {
	if !g.Has(character) {
		return nil, fmt.Errorf("unknown character %q", character)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	prints, err := Fingerprints(g, x.opts)
	if err != nil {
		return nil, fmt.Errorf("fingerprints: %w", err)
	}
	query := prints[character]
	if floats.Norm(query, 2) == 0 {
		return nil, fmt.Errorf("character %q has no ties", character)
	}
	hits, err := x.repo.Search(ctx, toFloat32(query), k+1, scope)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	self := PointID(dataset, character)
	out := make([]SearchResult, 0, k)
	for _, h := range hits {
		if h.ID == self {
			continue
		}
		if len(out) == k {
			break
		}
		out = append(out, h)
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
