package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

func graphOf(t *testing.T, edges ...network.Record) *network.Graph {
	t.Helper()
	g, _ := network.Build(edges, nil)
	return g
}

func e(src, dst string, w float64) network.Record {
	return network.Record{Source: src, Target: dst, Weight: w}
}

// A->B(3), B->A(2), B->C(1)
func scenarioA(t *testing.T) *network.Graph {
	return graphOf(t, e("A", "B", 3), e("B", "A", 2), e("B", "C", 1))
}

func TestInDegree_ScenarioA(t *testing.T) {
	r := InDegree(scenarioA(t))
	require.True(t, r.OK())
	assert.InDelta(t, 0.5, r.Values["a"], 1e-12)
	assert.InDelta(t, 0.5, r.Values["b"], 1e-12)
	assert.InDelta(t, 0.5, r.Values["c"], 1e-12)
}

func TestDegreeSumIdentity(t *testing.T) {
	g := graphOf(t,
		e("a", "b", 1), e("b", "c", 2), e("c", "a", 1), e("a", "c", 5), e("d", "a", 1), e("e", "d", 1))
	n := float64(g.NodeCount())
	var in, out float64
	for _, v := range InDegree(g).Values {
		in += v
	}
	for _, v := range OutDegree(g).Values {
		out += v
	}
	assert.InDelta(t, float64(g.EdgeCount()), in*(n-1), 1e-9)
	assert.InDelta(t, float64(g.EdgeCount()), out*(n-1), 1e-9)
}

func TestDegreeCentrality_Degenerate(t *testing.T) {
	b := network.NewBuilder()
	b.AddNode("solo")
	g := b.Build()
	assert.Empty(t, InDegree(g).Values)
	assert.Empty(t, OutDegree(g).Values)
}

func TestDegrees(t *testing.T) {
	d := Degrees(scenarioA(t))
	assert.InDelta(t, 1.0, d.In[1], 1e-12)
	assert.InDelta(t, 1.0/3, d.Out[0], 1e-12)
	assert.InDelta(t, 1.0/3, d.Out[1], 1e-12)
	assert.InDelta(t, 1.0/3, d.Out[2], 1e-12)

	empty := Degrees(graphOf(t))
	assert.Empty(t, empty.In)
	assert.Empty(t, empty.Out)
}

func TestEigenvector_Cycle(t *testing.T) {
	g := graphOf(t, e("a", "b", 1), e("b", "c", 1), e("c", "a", 1))
	r := Eigenvector(g, DefaultEigenvectorOptions())
	require.True(t, r.OK(), r.Reason)
	var total float64
	for _, v := range r.Values {
		assert.InDelta(t, 1.0/3, v, 1e-6)
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestEigenvector_FavoursHeavyInflow(t *testing.T) {
	g := graphOf(t, e("a", "b", 5), e("b", "a", 5), e("c", "a", 1), e("a", "c", 1))
	r := Eigenvector(g, DefaultEigenvectorOptions())
	require.True(t, r.OK(), r.Reason)
	assert.Greater(t, r.Values["a"], r.Values["c"])
}

func TestEigenvector_Degenerate(t *testing.T) {
	b := network.NewBuilder()
	for _, n := range []string{"a", "b"} {
		b.AddNode(n)
	}
	r := Eigenvector(b.Build(), DefaultEigenvectorOptions())
	assert.False(t, r.OK())
	assert.True(t, errors.Is(r.Err, analysis.ErrDegenerate))
	assert.Contains(t, r.Reason, "not computed")
}

func TestEigenvector_NonConvergenceIsIsolated(t *testing.T) {
	// a chain has no positive dominant eigenvector; the iteration drifts
	// towards the sink far slower than the cap allows
	g := graphOf(t, e("a", "b", 1), e("b", "c", 1), e("c", "d", 1))
	set, err := Centralities(g, EigenvectorOptions{MaxIterations: 5, Tolerance: 1e-12})
	require.NoError(t, err)

	assert.True(t, errors.Is(set.Eigenvector.Err, analysis.ErrNotConverged))
	assert.NotEmpty(t, set.Eigenvector.Values, "best-effort values are kept")
	assert.True(t, set.InDegree.OK())
	assert.True(t, set.OutDegree.OK())
	assert.True(t, set.Closeness.OK())
	assert.True(t, set.Betweenness.OK())
}

func TestCentralities_InvalidOptions(t *testing.T) {
	_, err := Centralities(scenarioA(t), EigenvectorOptions{MaxIterations: 0, Tolerance: 1e-6})
	assert.True(t, analysis.IsInvalid(err))
	_, err = Centralities(scenarioA(t), EigenvectorOptions{MaxIterations: 10, Tolerance: -1})
	assert.True(t, analysis.IsInvalid(err))
}

func TestIsolate_RecoversPanic(t *testing.T) {
	r := isolate(func() Result { panic("boom") })
	assert.False(t, r.OK())
	assert.Contains(t, r.Reason, "boom")
}

func TestCloseness(t *testing.T) {
	// a -> b -> c: c is reached by a (2 hops) and b (1 hop)
	g := graphOf(t, e("a", "b", 1), e("b", "c", 1))
	r := Closeness(g)
	require.True(t, r.OK())
	assert.InDelta(t, 0.0, r.Values["a"], 1e-12)
	// b: reach 1, total 1 -> 1 * (1/2)
	assert.InDelta(t, 0.5, r.Values["b"], 1e-12)
	// c: reach 2, total 3 -> 2/3 * 2/2
	assert.InDelta(t, 2.0/3, r.Values["c"], 1e-12)
}

func TestBetweenness(t *testing.T) {
	// every path from a to c runs through b
	g := graphOf(t, e("a", "b", 1), e("b", "c", 1))
	r := Betweenness(g)
	assert.InDelta(t, 0.5, r.Values["b"], 1e-12)
	assert.InDelta(t, 0.0, r.Values["a"], 1e-12)
	assert.InDelta(t, 0.0, r.Values["c"], 1e-12)

	// two equal shortest paths a->x->d and a->y->d share the credit
	g = graphOf(t, e("a", "x", 1), e("a", "y", 1), e("x", "d", 1), e("y", "d", 1))
	r = Betweenness(g)
	assert.InDelta(t, r.Values["x"], r.Values["y"], 1e-12)
	assert.InDelta(t, 0.5/6, r.Values["x"], 1e-12)

	small := Betweenness(graphOf(t, e("a", "b", 1)))
	assert.Equal(t, map[string]float64{"a": 0, "b": 0}, small.Values)
}

func TestRankAndTop(t *testing.T) {
	r := Result{Values: map[string]float64{"b": 1, "a": 1, "c": 3}}
	assert.Equal(t, []Score{{"c", 3}, {"a", 1}, {"b", 1}}, r.Top(0))
	assert.Equal(t, []Score{{"c", 3}}, r.Top(1))
}

func TestCentralitySet_ByName(t *testing.T) {
	set, err := Centralities(scenarioA(t), DefaultEigenvectorOptions())
	require.NoError(t, err)
	for _, m := range Metrics() {
		_, ok := set.ByName(m)
		assert.True(t, ok, m)
	}
	_, ok := set.ByName("pagerank")
	assert.False(t, ok)
}

func TestClustering_ScenarioE(t *testing.T) {
	g := graphOf(t,
		e("A", "B", 1), e("B", "A", 1), e("B", "C", 1), e("C", "B", 1), e("C", "A", 1), e("A", "C", 1))
	r := Clustering(g.Undirected())
	assert.InDelta(t, 1.0, r.Transitivity, 1e-12)
	assert.InDelta(t, 1.0, r.Average, 1e-12)
	assert.Equal(t, 1, r.Triangles)
}

func TestClustering_OpenTriad(t *testing.T) {
	// triangle abc plus pendant d on c
	g := graphOf(t, e("a", "b", 1), e("b", "c", 1), e("c", "a", 1), e("c", "d", 1))
	r := Clustering(g.Undirected())
	assert.InDelta(t, 1.0, r.Local["a"], 1e-12)
	assert.InDelta(t, 1.0/3, r.Local["c"], 1e-12)
	assert.InDelta(t, 0.0, r.Local["d"], 1e-12)
	assert.InDelta(t, (1+1+1.0/3)/4, r.Average, 1e-12)
	// 3 closed / 5 triples
	assert.InDelta(t, 0.6, r.Transitivity, 1e-12)
}

func TestConnectivity_ScenarioD(t *testing.T) {
	b := network.NewBuilder()
	for _, n := range []string{"a", "b", "c", "d"} {
		b.AddNode(n)
	}
	g := b.Build()

	r := Connectivity(g)
	assert.Equal(t, 0.0, r.Density)
	assert.Equal(t, 4, r.WeakCount())
	assert.Equal(t, map[int]int{1: 4}, r.WeakSizes)
	assert.Equal(t, 4, r.StrongCount())
	assert.Empty(t, r.Diameters)
	assert.Equal(t, 0.0, Clustering(g.Undirected()).Average)
}

func TestConnectivity(t *testing.T) {
	// SCC {a,b,c} as a 3-cycle, d hangs off c, e and f form a separate pair
	g := graphOf(t,
		e("a", "b", 1), e("b", "c", 1), e("c", "a", 1), e("c", "d", 1), e("e", "f", 1), e("f", "e", 1))
	r := Connectivity(g)

	assert.Equal(t, 2, r.WeakCount())
	assert.Equal(t, []string{"a", "b", "c", "d"}, r.WeakComponents[0])
	assert.Equal(t, map[int]int{4: 1, 2: 1}, r.WeakSizes)
	assert.Equal(t, 3, r.StrongCount())
	assert.Equal(t, map[int]int{3: 1, 2: 1, 1: 1}, r.StrongSizes)
	require.Len(t, r.Diameters, 2)
	assert.Equal(t, ComponentDiameter{Size: 3, Diameter: 2, Members: []string{"a", "b", "c"}}, r.Diameters[0])
	assert.Equal(t, 1, r.Diameters[1].Diameter)
	assert.InDelta(t, 6.0/30, r.Density, 1e-12)
}

func TestConnectivity_Empty(t *testing.T) {
	r := Connectivity(graphOf(t))
	assert.Equal(t, 0, r.WeakCount())
	assert.Equal(t, 0.0, r.Density)
}

func TestSummarize(t *testing.T) {
	s := Summarize(map[string]float64{"a": 1, "b": 2, "c": 3, "d": 4})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Greater(t, s.StdDev, 0.0)

	one := Summarize(map[string]float64{"a": 7})
	assert.Equal(t, 7.0, one.Median)
	assert.Equal(t, 0.0, one.StdDev)

	assert.Equal(t, Summary{}, Summarize(nil))
}
