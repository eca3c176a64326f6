package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

func sample() *network.Graph {
	g, _ := network.Build([]network.Record{
		{Source: "Aang", Target: "Katara", Weight: 3},
		{Source: "Katara", Target: "Sokka", Weight: 1},
		{Source: "Zuko", Target: "Aang", Weight: 2},
	}, nil)
	return g
}

func TestPropertyKeys(t *testing.T) {
	tests := map[string]string{
		"pagerank":     "score_pagerank",
		"In Degree":    "score_in_degree",
		"hub-score":    "score_hub_score",
		" closeness  ": "score_closeness",
	}
	for in, want := range tests {
		if got := ScoreProperty(in); got != want {
			t.Errorf("ScoreProperty(%q) = %q, want %q", in, got, want)
		}
	}
	if got := CommunityProperty("girvan_newman"); got != "community_girvan_newman" {
		t.Errorf("unexpected community property %q", got)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	g := sample()

	err := Save(ctx, repo, "avatar", Snapshot{
		Graph:       g,
		Scores:      map[string]map[string]float64{"pagerank": {"aang": 0.4, "ghost": 1}},
		Communities: map[string]community.Partition{"louvain": {"aang": 0, "katara": 0, "sokka": 1, "zuko": 1}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	records, err := repo.LoadRecords(ctx, "avatar")
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != g.EdgeCount() {
		t.Fatalf("expected %d records, got %d", g.EdgeCount(), len(records))
	}
	if records[0].Source != "aang" || records[0].Target != "katara" || records[0].Weight != 3 {
		t.Errorf("unexpected first record: %+v", records[0])
	}

	reloaded, _ := network.Build(records, nil)
	if reloaded.TotalWeight() != g.TotalWeight() {
		t.Errorf("weight changed on reload: %v != %v", reloaded.TotalWeight(), g.TotalWeight())
	}

	if v, ok := repo.Property("avatar", "aang", "score_pagerank"); !ok || v.(float64) != 0.4 {
		t.Errorf("expected stored pagerank, got %v %v", v, ok)
	}
	if _, ok := repo.Property("avatar", "ghost", "score_pagerank"); ok {
		t.Error("scores for unknown characters must be skipped")
	}
	if v, ok := repo.Property("avatar", "zuko", "community_louvain"); !ok || v.(int64) != 1 {
		t.Errorf("expected stored community, got %v %v", v, ok)
	}
}

func TestSave_ReplacesEdges(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	if err := Save(ctx, repo, "avatar", Snapshot{Graph: sample()}); err != nil {
		t.Fatal(err)
	}
	smaller, _ := network.Build([]network.Record{{Source: "aang", Target: "zuko", Weight: 1}}, nil)
	if err := Save(ctx, repo, "avatar", Snapshot{Graph: smaller}); err != nil {
		t.Fatal(err)
	}
	records, _ := repo.LoadRecords(ctx, "avatar")
	if len(records) != 1 {
		t.Fatalf("expected previous edges to be replaced, got %v", records)
	}
}

func TestSave_Datasets(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	if err := Save(ctx, repo, "a", Snapshot{Graph: sample()}); err != nil {
		t.Fatal(err)
	}
	records, err := repo.LoadRecords(ctx, "b")
	if err != nil || len(records) != 0 {
		t.Fatalf("datasets must be isolated, got %v %v", records, err)
	}
}

func TestSave_Invalid(t *testing.T) {
	ctx := context.Background()
	if err := Save(ctx, NewMemory(), "", Snapshot{Graph: sample()}); err == nil {
		t.Error("expected error for empty dataset")
	}
	if err := Save(ctx, NewMemory(), "x", Snapshot{}); err == nil {
		t.Error("expected error for nil graph")
	}
}

type failingRepo struct{ *MemoryRepository }

func (failingRepo) SaveScores(context.Context, string, string, map[string]float64) error {
	return errors.New("write refused")
}

func TestSave_PropagatesErrors(t *testing.T) {
	repo := failingRepo{NewMemory()}
	err := Save(context.Background(), repo, "x", Snapshot{
		Graph:  sample(),
		Scores: map[string]map[string]float64{"pagerank": {"aang": 1}},
	})
	if err == nil || err.Error() != "save pagerank scores: write refused" {
		t.Fatalf("unexpected error: %v", err)
	}
}
