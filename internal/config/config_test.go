package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/structure"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	cfg.Data.Edges = "edges.csv"
	warnings := cfg.Validate()
	if len(warnings) != 0 {
		t.Errorf("default config should have no warnings, got %v", warnings)
	}
}

func TestValidate_MissingEdges(t *testing.T) {
	if !hasWarning(Defaults().Validate(), "data.edges") {
		t.Error("expected warning about missing edges path")
	}
}

func TestValidate_MissingPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Data.Edges = "edges.csv"
	if !hasWarning(cfg.Validate(), "password") {
		t.Error("expected warning about empty graph password")
	}

	cfg.Graph.Password = "secret"
	if hasWarning(cfg.Validate(), "password") {
		t.Error("password set, should not warn")
	}
}

func TestValidate_Permutations(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want bool // true = should warn
	}{
		{"skipped", 0, false},
		{"few", 19, true},
		{"enough", 1000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Analysis.Homophily.Permutations = tt.n
			if got := hasWarning(cfg.Validate(), "permutations"); got != tt.want {
				t.Errorf("permutations=%d: hasWarn=%v, want=%v", tt.n, got, tt.want)
			}
		})
	}
}

func TestValidate_LogSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Log.Level = "verbose"
	cfg.Log.Format = "xml"
	warnings := cfg.Validate()
	if !hasWarning(warnings, "log level") {
		t.Error("expected warning about log level")
	}
	if !hasWarning(warnings, "log format") {
		t.Error("expected warning about log format")
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.PageRank.DampingFactor != 0.85 {
		t.Errorf("expected default damping 0.85, got %v", cfg.Analysis.PageRank.DampingFactor)
	}
	if cfg.Data.Columns.Source != "x" || cfg.Data.Columns.Target != "y" {
		t.Errorf("unexpected default columns: %+v", cfg.Data.Columns)
	}
	if cfg.Analysis.Ego.Mode != ego.ModeNeighborhood {
		t.Errorf("expected default ego mode 1.5, got %v", cfg.Analysis.Ego.Mode)
	}
	if cfg.Analysis.Community.Seed != 42 {
		t.Errorf("expected default seed 42, got %d", cfg.Analysis.Community.Seed)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castgraph.yaml")
	content := `
data:
  edges: data/avatar.csv
  columns:
    section: book
analysis:
  clique_mode: simple
  ego:
    radius: 2
    mode: 1.0
  community:
    resolution: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CASTGRAPH_ANALYSIS_PAGERANK_DAMPING", "0.9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.Edges != "data/avatar.csv" {
		t.Errorf("edges = %q", cfg.Data.Edges)
	}
	if cfg.Data.Columns.Section != "book" || cfg.Data.Columns.Weight != "weight" {
		t.Errorf("columns should merge with defaults: %+v", cfg.Data.Columns)
	}
	if cfg.Analysis.CliqueMode != structure.CliqueSimple {
		t.Errorf("clique mode = %q", cfg.Analysis.CliqueMode)
	}
	if cfg.Analysis.Ego.Radius != 2 || cfg.Analysis.Ego.Mode != ego.ModeDirect {
		t.Errorf("unexpected ego options: %+v", cfg.Analysis.Ego)
	}
	if cfg.Analysis.Community.Resolution != 0.5 {
		t.Errorf("resolution = %v", cfg.Analysis.Community.Resolution)
	}
	if cfg.Analysis.PageRank.DampingFactor != 0.9 {
		t.Errorf("env override not applied, damping = %v", cfg.Analysis.PageRank.DampingFactor)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
