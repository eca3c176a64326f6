package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/stats"
	"github.com/efebarandurmaz/castgraph/internal/structure"
	"github.com/efebarandurmaz/castgraph/internal/vector"
)

func sample(t *testing.T) *network.Graph {
	t.Helper()
	g, _ := network.Build([]network.Record{
		{Source: "aang", Target: "katara", Weight: 3},
		{Source: "katara", Target: "aang", Weight: 2},
		{Source: "katara", Target: "sokka", Weight: 1},
		{Source: "sokka", Target: "katara", Weight: 1},
		{Source: "zuko", Target: "iroh", Weight: 4},
	}, nil)
	return g
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	called := false
	require.NoError(t, p.Emit(map[string]int{"nodes": 5}, func(*Styles) string {
		called = true
		return "text"
	}))
	assert.False(t, called, "render must not run in JSON mode")

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 5, decoded["nodes"])
}

func TestPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	require.NoError(t, p.Emit(nil, func(s *Styles) string {
		return Ranking(s, "pagerank", []stats.Score{{Node: "aang", Value: 0.5}})
	}))
	out := buf.String()
	assert.Contains(t, out, "aang")
	assert.Contains(t, out, "0.5000")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestMembers(t *testing.T) {
	assert.Equal(t, "a, b", Members([]string{"b", "a"}))
	many := []string{"j", "i", "h", "g", "f", "e", "d", "c", "b", "a"}
	assert.Equal(t, "a, b, c, d, e, f, g, h, +2 more", Members(many))
	assert.Equal(t, "", Members(nil))
}

func TestCentralities(t *testing.T) {
	g := sample(t)
	set, err := stats.Centralities(g, stats.DefaultEigenvectorOptions())
	require.NoError(t, err)

	out := Centralities(DefaultStyles(), set, 2)
	for _, metric := range stats.Metrics() {
		assert.Contains(t, out, metric)
	}
	assert.Contains(t, out, "katara")
	assert.Contains(t, out, "mean")
}

func TestConnectivityAndDegrees(t *testing.T) {
	g := sample(t)
	s := DefaultStyles()
	out := Connectivity(s, stats.Connectivity(g), stats.Clustering(g.Undirected()))
	assert.Contains(t, out, "weak components")
	assert.Contains(t, out, "density")

	out = Degrees(s, stats.Degrees(g))
	assert.Contains(t, out, "degree distribution")
}

func TestLinkAnalysis(t *testing.T) {
	g := sample(t)
	s := DefaultStyles()
	pr, err := linkanalysis.PageRank(g, linkanalysis.DefaultPageRankConfig())
	require.NoError(t, err)
	assert.Contains(t, PageRank(s, pr, 3), "converged after")

	hits, err := linkanalysis.HITS(g, linkanalysis.DefaultHITSConfig())
	require.NoError(t, err)
	out := HITS(s, hits, 3)
	assert.Contains(t, out, "hub")
	assert.Contains(t, out, "authority")
}

func TestCommunities(t *testing.T) {
	s := DefaultStyles()
	a := &community.Result{Algorithm: "louvain", Partition: community.Partition{"a": 0, "b": 0, "c": 1}, Modularity: 0.42}
	b := &community.Result{Algorithm: "leiden", Partition: community.Partition{"a": 0, "b": 1, "c": 1}, Modularity: 0.1}
	cmp := community.CompareAll(map[string]community.Partition{"louvain": a.Partition, "leiden": b.Partition})

	out := Communities(s, []*community.Result{a, b}, cmp)
	assert.Contains(t, out, "louvain")
	assert.Contains(t, out, "2 communities")
	assert.Contains(t, out, "0.4200")
	assert.Contains(t, out, "agreement")
	assert.Contains(t, out, "ARI")
}

func TestStructure(t *testing.T) {
	g := sample(t)
	s := DefaultStyles()

	cliques, err := structure.Cliques(g, structure.CliqueSimple)
	require.NoError(t, err)
	assert.Contains(t, Cliques(s, cliques), "maximum clique")

	attrs := map[string]string{"aang": "air", "katara": "water", "sokka": "water", "zuko": "fire", "iroh": "fire"}
	h, err := structure.Homophily(g, attrs, structure.HomophilyOptions{})
	require.NoError(t, err)
	h.Attribute = "nation"
	out := Homophily(s, []*structure.HomophilyReport{h})
	assert.Contains(t, out, "nation")
	assert.Contains(t, out, "mixing: nation")
	assert.Contains(t, Homophily(s, nil), "no attributes")

	out = Bridges(s, structure.Bridges(g, structure.BridgeOptions{}))
	assert.Contains(t, out, "katara")
	assert.Contains(t, out, "iroh - zuko")
}

func TestEgo(t *testing.T) {
	g := sample(t)
	s := DefaultStyles()

	n, err := ego.Extract(g, "katara", ego.DefaultOptions())
	require.NoError(t, err)
	out := Ego(s, n, 5)
	assert.Contains(t, out, "incoming")
	assert.Contains(t, out, "reciprocal")
	assert.Contains(t, out, "aang")

	missing, err := ego.Extract(g, "appa", ego.DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, Ego(s, missing, 5), "not present")
}

func TestProgressionAndDiff(t *testing.T) {
	s := DefaultStyles()
	p := progression.FromValues("pagerank", []string{"one", "two", "three"}, []map[string]float64{
		{"a": 0.1, "b": 0.9},
		{"a": 0.5, "b": 0.5},
		{"a": 0.9, "c": 0.1},
	})
	out := Progression(s, p, 2)
	assert.Contains(t, out, "progression: pagerank")
	assert.Contains(t, out, "one -> two")
	assert.Contains(t, out, "rising")

	d := progression.Diff(p.Section(0), p.Section(2))
	out = Diff(s, "one", "three", d, 0)
	assert.Contains(t, out, "one -> three")
	assert.Contains(t, out, "rose")
}

func TestRoles(t *testing.T) {
	out := Roles(DefaultStyles(), "arya", []vector.SearchResult{
		{ID: "1", Score: 0.93, Dataset: "got", Character: "sansa"},
		{ID: "2", Score: 0.41, Dataset: "witcher", Character: "ciri"},
	})
	assert.Contains(t, out, "roles like arya")
	assert.Contains(t, out, "sansa")
	assert.Contains(t, out, "witcher")
	assert.Contains(t, out, "0.9300")
}
