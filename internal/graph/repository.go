// Package graph persists character networks and their analysis results
// so they can be explored outside the CLI.
package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// Repository provides graph storage for character networks. Every
// character and interaction belongs to a dataset so several works can
// share one database.
type Repository interface {
	// SaveGraph replaces the dataset's interactions with the graph's.
	SaveGraph(ctx context.Context, dataset string, g *network.Graph) error
	// SaveScores stores one metric as a property on each character.
	SaveScores(ctx context.Context, dataset, metric string, values map[string]float64) error
	// SaveCommunities stores a partition's community ids.
	SaveCommunities(ctx context.Context, dataset, algorithm string, p community.Partition) error
	// LoadRecords reads the dataset's interactions back, ordered by
	// source then target.
	LoadRecords(ctx context.Context, dataset string) ([]network.Record, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// ScoreProperty is the character property a metric is stored under.
func ScoreProperty(metric string) string { return "score_" + propertyKey(metric) }

// CommunityProperty is the character property a partition is stored under.
func CommunityProperty(algorithm string) string { return "community_" + propertyKey(algorithm) }

func propertyKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(s))
}

// Snapshot is everything one sync writes for a dataset.
type Snapshot struct {
	Graph       *network.Graph
	Scores      map[string]map[string]float64
	Communities map[string]community.Partition
}

// Save writes a snapshot: the graph first so that score and community
// writes find their characters.
func Save(ctx context.Context, repo Repository, dataset string, snap Snapshot) error {
	if dataset == "" {
		return fmt.Errorf("graph: empty dataset name")
	}
	if snap.Graph == nil {
		return fmt.Errorf("graph: nil graph for dataset %q", dataset)
	}
	if err := repo.SaveGraph(ctx, dataset, snap.Graph); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}
	for _, metric := range slices.Sorted(maps.Keys(snap.Scores)) {
		if err := repo.SaveScores(ctx, dataset, metric, snap.Scores[metric]); err != nil {
			return fmt.Errorf("save %s scores: %w", metric, err)
		}
	}
	for _, algorithm := range slices.Sorted(maps.Keys(snap.Communities)) {
		if err := repo.SaveCommunities(ctx, dataset, algorithm, snap.Communities[algorithm]); err != nil {
			return fmt.Errorf("save %s communities: %w", algorithm, err)
		}
	}
	return nil
}
