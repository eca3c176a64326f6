package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

func graphOf(pairs ...[2]string) *network.Graph {
	var rs []network.Record
	for _, p := range pairs {
		rs = append(rs, network.Record{Source: p[0], Target: p[1], Weight: 1})
	}
	g, _ := network.Build(rs, nil)
	return g
}

func both(a, b string) [][2]string { return [][2]string{{a, b}, {b, a}} }

func concat(parts ...[][2]string) [][2]string {
	var out [][2]string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestCliques_ScenarioE(t *testing.T) {
	g := graphOf(concat(both("A", "B"), both("B", "C"), both("C", "A"))...)
	r, err := Cliques(g, CliqueReciprocal)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Largest)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, r.Cliques)
	assert.Equal(t, r.Cliques, r.Maximum())
}

func TestCliques_Modes(t *testing.T) {
	g := graphOf(concat(both("a", "b"), [][2]string{{"b", "c"}, {"c", "a"}})...)

	reciprocal, err := Cliques(g, CliqueReciprocal)
	require.NoError(t, err)
	assert.Equal(t, 2, reciprocal.Largest)
	assert.Equal(t, [][]string{{"a", "b"}}, reciprocal.Cliques)

	simple, err := Cliques(g, CliqueSimple)
	require.NoError(t, err)
	assert.Equal(t, 3, simple.Largest)
}

func TestCliques_Maximal(t *testing.T) {
	// K4 on a-d sharing d with the triangle d-e-f, plus a pendant g on f
	var pairs [][2]string
	k4 := []string{"a", "b", "c", "d"}
	for i := range k4 {
		for j := i + 1; j < len(k4); j++ {
			pairs = append(pairs, [2]string{k4[i], k4[j]})
		}
	}
	pairs = append(pairs, [2]string{"d", "e"}, [2]string{"e", "f"}, [2]string{"f", "d"}, [2]string{"f", "g"})
	g := graphOf(pairs...)

	r, err := Cliques(g, CliqueSimple)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c", "d"}, {"d", "e", "f"}, {"f", "g"}}, r.Cliques)
	assert.Equal(t, 4, r.Largest)

	u := g.Undirected()
	for _, clique := range r.Cliques {
		in := make(map[string]bool)
		for _, v := range clique {
			in[v] = true
		}
		for _, v := range u.Nodes() {
			if in[v] {
				continue
			}
			all := true
			for _, m := range clique {
				if _, ok := u.Weight(v, m); !ok {
					all = false
				}
			}
			assert.False(t, all, "%v extends %v", v, clique)
		}
	}
}

func TestCliques_EmptyAndInvalid(t *testing.T) {
	r, err := Cliques(graphOf(), CliqueSimple)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Largest)
	assert.Empty(t, r.Cliques)

	_, err = Cliques(graphOf(), CliqueMode("dense"))
	assert.True(t, analysis.IsInvalid(err))
}

func homophilyGraph() *network.Graph {
	return graphOf(concat(both("a", "b"), both("c", "d"), [][2]string{{"a", "c"}, {"a", "z"}})...)
}

var teams = map[string]string{"a": "x", "b": "x", "c": "y", "d": "y"}

func TestHomophily(t *testing.T) {
	r, err := Homophily(homophilyGraph(), teams, HomophilyOptions{})
	require.NoError(t, err)

	// z has no value, so a->z is not counted
	assert.Equal(t, 5, r.Edges)
	assert.InDelta(t, 0.8, r.EdgeHomophily, 1e-12)
	assert.InDelta(t, -0.6, r.EIIndex, 1e-12)
	assert.InDelta(t, (0.8-0.48)/0.52, r.Assortativity, 1e-12)

	assert.Equal(t, []string{"x", "y"}, r.Mixing.Categories)
	assert.Equal(t, [][]float64{{2, 1}, {0, 2}}, r.Mixing.Counts)
	assert.InDelta(t, 2.0/3, r.Mixing.RowNormalized[0][0], 1e-12)
	assert.InDelta(t, 1.0, r.Mixing.RowNormalized[1][1], 1e-12)
	assert.Zero(t, r.Permutations)
}

func TestHomophily_PermutationTest(t *testing.T) {
	opts := HomophilyOptions{Permutations: 199, Seed: 9}
	r, err := Homophily(homophilyGraph(), teams, opts)
	require.NoError(t, err)
	assert.Equal(t, 199, r.Permutations)
	assert.Greater(t, r.PValue, 0.0)
	assert.LessOrEqual(t, r.PValue, 1.0)
	assert.GreaterOrEqual(t, r.Assortativity, -1.0)
	assert.LessOrEqual(t, r.Assortativity, 1.0)

	again, err := Homophily(homophilyGraph(), teams, opts)
	require.NoError(t, err)
	assert.Equal(t, r.PValue, again.PValue)
}

func TestHomophily_Degenerate(t *testing.T) {
	r, err := Homophily(homophilyGraph(), nil, DefaultHomophilyOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Edges)
	assert.Equal(t, 0.0, r.Assortativity)
	assert.Empty(t, r.Mixing.Categories)

	same := map[string]string{"a": "x", "b": "x", "c": "x", "d": "x"}
	r, err = Homophily(homophilyGraph(), same, HomophilyOptions{Permutations: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Assortativity)
	assert.Equal(t, 1.0, r.EdgeHomophily)
	assert.Equal(t, 1.0, r.PValue)

	_, err = Homophily(homophilyGraph(), teams, HomophilyOptions{Permutations: -1})
	assert.True(t, analysis.IsInvalid(err))
}

func TestHomophilyAll(t *testing.T) {
	table := map[string]map[string]string{
		"team":   teams,
		"origin": {"a": "north", "b": "south", "c": "north", "d": "south"},
	}
	reports, err := HomophilyAll(homophilyGraph(), table, HomophilyOptions{Permutations: 20, Seed: 1})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "origin", reports[0].Attribute)
	assert.Equal(t, "team", reports[1].Attribute)
	assert.Less(t, reports[0].Assortativity, 0.0)
}

func TestBridges_Weak(t *testing.T) {
	// path a-b-c hanging off the triangle c-d-e
	g := graphOf([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "d"}, [2]string{"d", "e"}, [2]string{"e", "c"})
	r := Bridges(g, BridgeOptions{})
	assert.Equal(t, []string{"b", "c"}, r.WeakArticulation)
	assert.Equal(t, []network.Edge{{From: "a", To: "b", Weight: 1}, {From: "b", To: "c", Weight: 1}}, r.WeakBridges)
}

func TestBridges_Strong(t *testing.T) {
	cycle := graphOf([2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, Bridges(cycle, BridgeOptions{}).StrongArticulation)

	pair := graphOf(both("a", "b")...)
	r := Bridges(pair, BridgeOptions{})
	assert.Empty(t, r.StrongArticulation)
	assert.Empty(t, r.WeakArticulation)
	assert.Equal(t, []network.Edge{{From: "a", To: "b", Weight: 2}}, r.WeakBridges)
}

func TestBridges_Reciprocal(t *testing.T) {
	g := graphOf(concat(both("a", "b"), both("b", "c"), [][2]string{{"a", "c"}})...)

	open := Bridges(g, BridgeOptions{})
	assert.Empty(t, open.WeakArticulation)
	assert.Empty(t, open.WeakBridges)

	mutual := Bridges(g, BridgeOptions{Reciprocal: true})
	assert.Equal(t, []string{"b"}, mutual.WeakArticulation)
	assert.Len(t, mutual.WeakBridges, 2)
}

func TestBridges_ScenarioD(t *testing.T) {
	b := network.NewBuilder()
	for _, n := range []string{"a", "b", "c", "d"} {
		b.AddNode(n)
	}
	r := Bridges(b.Build(), BridgeOptions{})
	assert.Empty(t, r.WeakArticulation)
	assert.Empty(t, r.StrongArticulation)
	assert.Empty(t, r.WeakBridges)
}
