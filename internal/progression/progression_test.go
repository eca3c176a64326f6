package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/records"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

func section(name string, pairs ...[2]string) records.Section {
	s := records.Section{Name: name}
	for _, p := range pairs {
		s.Records = append(s.Records, network.Record{Source: p[0], Target: p[1], Weight: 1, Section: name})
	}
	return s
}

func threeBooks() []records.Section {
	return []records.Section{
		section("1", [2]string{"a", "b"}, [2]string{"c", "b"}),
		section("2", [2]string{"a", "b"}, [2]string{"b", "a"}),
		section("3", [2]string{"b", "a"}, [2]string{"c", "a"}, [2]string{"a", "c"}),
	}
}

func inDegree() Options {
	opts := DefaultOptions()
	opts.Metric = stats.MetricInDegree
	return opts
}

func TestCompute_Series(t *testing.T) {
	p, err := Compute(threeBooks(), inDegree())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, p.Sections)
	require.Len(t, p.Series, 3)

	a, ok := p.Of("a")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 1}, a.Values)
	c, _ := p.Of("c")
	assert.Equal(t, []float64{0, 0, 0.5}, c.Values)
	_, ok = p.Of("zuko")
	assert.False(t, ok)

	require.NotNil(t, a.Trend)
	assert.InDelta(t, -0.5, a.Trend.A, 1e-9)
	assert.InDelta(t, 2.5, a.Trend.B, 1e-9)
	assert.InDelta(t, -2, a.Trend.C, 1e-9)
	assert.InDelta(t, 1, a.Trend.At(2), 1e-9)
}

func TestCompute_RankCorrelation(t *testing.T) {
	p, err := Compute(threeBooks(), inDegree())
	require.NoError(t, err)
	require.Len(t, p.RankCorrelation, 2)
	assert.InDelta(t, 0.5, p.RankCorrelation[0], 1e-9)
	for _, r := range p.RankCorrelation {
		assert.GreaterOrEqual(t, r, -1.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestProgression_Top(t *testing.T) {
	p, err := Compute(threeBooks(), inDegree())
	require.NoError(t, err)
	top := p.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Character)
	assert.Equal(t, "c", top[1].Character)
	assert.Len(t, p.Top(0), 3)
}

func TestCompute_NoTrendForTwoSections(t *testing.T) {
	p, err := Compute(threeBooks()[:2], inDegree())
	require.NoError(t, err)
	for _, s := range p.Series {
		assert.Nil(t, s.Trend, s.Character)
	}
}

func TestCompute_PageRank(t *testing.T) {
	p, err := Compute(threeBooks(), DefaultOptions())
	require.NoError(t, err)
	for i := range p.Sections {
		var sum float64
		for _, v := range p.Section(i) {
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-6, "section %d", i)
	}
}

func TestCompute_InvalidMetric(t *testing.T) {
	opts := DefaultOptions()
	opts.Metric = "charisma"
	_, err := Compute(threeBooks(), opts)
	assert.True(t, analysis.IsInvalid(err))
}

func TestFromValues_MissingIsZero(t *testing.T) {
	p := FromValues("custom", []string{"s1", "s2"}, []map[string]float64{
		{"a": 1, "b": 1},
		{"a": 2},
	})
	b, ok := p.Of("b")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0}, b.Values)
	// a constant ranking has no defined correlation
	assert.Equal(t, []float64{0}, p.RankCorrelation)
}

func TestDiff(t *testing.T) {
	d := Diff(
		map[string]float64{"a": 3, "b": 2, "c": 1},
		map[string]float64{"b": 5, "a": 1, "d": 2},
	)
	var order []string
	for _, m := range d.Movers {
		order = append(order, m.Character)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, order)

	assert.Equal(t, Mover{Character: "a", Type: ChangeFell, Before: 3, After: 1, Delta: -2, RankBefore: 1, RankAfter: 3, RankChange: -2}, d.Movers[0])
	assert.Equal(t, ChangeRose, d.Movers[1].Type)
	assert.Equal(t, ChangeEntered, d.Movers[2].Type)
	assert.Equal(t, 2, d.Movers[2].RankAfter)
	assert.Equal(t, ChangeLeft, d.Movers[3].Type)
	assert.Equal(t, DiffSummary{Entered: 1, Left: 1, Rose: 1, Fell: 1}, d.Summary)
}

func TestDiffSections(t *testing.T) {
	p, err := Compute(threeBooks(), inDegree())
	require.NoError(t, err)
	d := p.DiffSections(1)
	assert.Equal(t, 1, d.Summary.Entered)
	assert.Equal(t, 1, d.Summary.Left)
}
