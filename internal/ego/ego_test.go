package ego

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

func graphOf(rs ...network.Record) *network.Graph {
	g, _ := network.Build(rs, nil)
	return g
}

func e(src, dst string, w float64) network.Record {
	return network.Record{Source: src, Target: dst, Weight: w}
}

func edgeSet(g *network.Graph) map[[2]string]float64 {
	out := make(map[[2]string]float64)
	for _, ed := range g.Edges() {
		out[[2]string{ed.From, ed.To}] = ed.Weight
	}
	return out
}

func scenarioB() *network.Graph {
	return graphOf(e("A", "B", 3), e("B", "A", 2), e("B", "C", 1), e("C", "A", 1))
}

func TestExtract_ScenarioB(t *testing.T) {
	direct, err := Extract(scenarioB(), "B", Options{Radius: 1, Mode: ModeDirect})
	require.NoError(t, err)
	assert.Equal(t, map[[2]string]float64{
		{"a", "b"}: 3, {"b", "a"}: 2, {"b", "c"}: 1,
	}, edgeSet(direct.Graph))
	assert.Nil(t, direct.Stats.Influence)

	full, err := Extract(scenarioB(), "B", Options{Radius: 1, Mode: ModeNeighborhood})
	require.NoError(t, err)
	assert.Equal(t, map[[2]string]float64{
		{"a", "b"}: 3, {"b", "a"}: 2, {"b", "c"}: 1, {"c", "a"}: 1,
	}, edgeSet(full.Graph))
	require.NotNil(t, full.Stats.Influence)
	assert.Len(t, full.Stats.Influence.Values, 3)
}

func TestExtract_Stats(t *testing.T) {
	n, err := Extract(scenarioB(), "b", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []Tie{{"a", 3}}, n.Stats.Incoming)
	assert.Equal(t, []Tie{{"a", 2}, {"c", 1}}, n.Stats.Outgoing)
	assert.Equal(t, []Mutual{{Node: "a", Out: 2, In: 3, Total: 5}}, n.Stats.Reciprocal)
}

func TestExtract_ScenarioC(t *testing.T) {
	g := graphOf(e("aang", "katara", 1), e("katara", "sokka", 1), e("sokka", "toph", 1), e("toph", "zuko", 1))
	require.Equal(t, 5, g.NodeCount())

	n, err := Extract(g, "dave", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, n.Empty())
	assert.Equal(t, 0, n.Graph.EdgeCount())
	assert.Empty(t, n.Stats.Incoming)
	assert.Empty(t, n.Stats.Reciprocal)
}

func TestExtract_DirectIsSubsetOfNeighborhood(t *testing.T) {
	g := graphOf(
		e("a", "b", 1), e("b", "c", 2), e("c", "a", 1), e("c", "d", 4), e("d", "e", 1),
		e("e", "a", 3), e("b", "d", 1), e("f", "g", 1))
	for _, ego := range g.Nodes() {
		for radius := 1; radius <= 3; radius++ {
			direct, err := Extract(g, ego, Options{Radius: radius, Mode: ModeDirect})
			require.NoError(t, err)
			full, err := Extract(g, ego, Options{Radius: radius, Mode: ModeNeighborhood})
			require.NoError(t, err)

			fullEdges := edgeSet(full.Graph)
			for k, w := range edgeSet(direct.Graph) {
				assert.Equal(t, w, fullEdges[k], "ego %s radius %d edge %v", ego, radius, k)
			}
			assert.Equal(t, full.Graph.Nodes(), direct.Graph.Nodes())
		}
	}
}

func TestExtract_Radius(t *testing.T) {
	g := graphOf(e("a", "b", 1), e("c", "b", 1), e("c", "d", 1))
	one, err := Extract(g, "a", Options{Radius: 1, Mode: ModeNeighborhood})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, one.Graph.Nodes())

	// direction is ignored when measuring hops
	two, err := Extract(g, "a", Options{Radius: 2, Mode: ModeNeighborhood})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, two.Graph.Nodes())
	assert.Equal(t, 2, two.Graph.EdgeCount())
}

func TestExtract_MinWeight(t *testing.T) {
	n, err := Extract(scenarioB(), "b", Options{Radius: 1, Mode: ModeNeighborhood, MinWeight: 2})
	require.NoError(t, err)
	assert.Equal(t, map[[2]string]float64{{"a", "b"}: 3, {"b", "a"}: 2}, edgeSet(n.Graph))
	assert.Equal(t, []string{"a", "b"}, n.Graph.Nodes())
	assert.Equal(t, []Tie{{"a", 2}}, n.Stats.Outgoing)
}

func TestExtract_MinWeightKeepsLoneEgo(t *testing.T) {
	n, err := Extract(scenarioB(), "c", Options{Radius: 1, Mode: ModeDirect, MinWeight: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, n.Graph.Nodes())
	assert.Equal(t, 0, n.Graph.EdgeCount())
	assert.Empty(t, n.Stats.Incoming)
	assert.Empty(t, n.Stats.Outgoing)
}

func TestExtract_InvalidOptions(t *testing.T) {
	for _, opts := range []Options{
		{Radius: 0, Mode: ModeDirect},
		{Radius: -1, Mode: ModeNeighborhood},
		{Radius: 1, Mode: 2},
		{Radius: 1, Mode: ModeDirect, MinWeight: -1},
	} {
		_, err := Extract(scenarioB(), "b", opts)
		assert.True(t, analysis.IsInvalid(err), "%+v", opts)
	}
}

func TestExtractEach(t *testing.T) {
	sections := []*network.Graph{
		scenarioB(),
		graphOf(e("x", "y", 1)),
		graphOf(e("b", "x", 2)),
	}
	nets, err := ExtractEach(sections, "B", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.False(t, nets[0].Empty())
	assert.True(t, nets[1].Empty())
	assert.Equal(t, []Tie{{"x", 2}}, nets[2].Stats.Outgoing)
}
