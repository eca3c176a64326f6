// Package progression tracks how one centrality evolves across ordered
// narrative sections such as episodes or books.
package progression

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/records"
	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// MetricPageRank selects PageRank in addition to the stats.Metric* names.
const MetricPageRank = "pagerank"

// Metrics lists every metric a progression can follow.
func Metrics() []string {
	return append(stats.Metrics(), MetricPageRank)
}

// Options configures Compute.
type Options struct {
	Metric string `mapstructure:"metric"`

	// Allow restricts each section graph to these characters when set.
	Allow []string `mapstructure:"-"`

	Eigenvector stats.EigenvectorOptions   `mapstructure:"-"`
	PageRank    linkanalysis.PageRankConfig `mapstructure:"-"`
}

// DefaultOptions follows degree-style influence through PageRank.
func DefaultOptions() Options {
	return Options{
		Metric:      MetricPageRank,
		Eigenvector: stats.DefaultEigenvectorOptions(),
		PageRank:    linkanalysis.DefaultPageRankConfig(),
	}
}

// Trend is the least-squares quadratic A·x² + B·x + C over section
// positions x = 1..n.
type Trend struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// At evaluates the trend at section position x.
func (t Trend) At(x float64) float64 { return t.A*x*x + t.B*x + t.C }

// Series is one character's value in every section.
type Series struct {
	Character string    `json:"character"`
	Values    []float64 `json:"values"`

	// Trend is nil when there are two sections or fewer.
	Trend *Trend `json:"trend,omitempty"`
}

// Final returns the value in the last section.
func (s Series) Final() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}

// Progression is the per-section evolution of one metric.
type Progression struct {
	Metric   string   `json:"metric"`
	Sections []string `json:"sections"`

	// Series is sorted by character id. A character absent from a
	// section scores 0 there.
	Series []Series `json:"series"`

	// RankCorrelation[i] is the Spearman correlation of the rankings in
	// sections i and i+1, 0 when either ranking is constant.
	RankCorrelation []float64 `json:"rank_correlation"`

	// Warnings records sections whose metric did not compute cleanly.
	Warnings []string `json:"warnings,omitempty"`
}

// Compute builds one graph per section and follows opts.Metric across
// them.
func Compute(sections []records.Section, opts Options) (*Progression, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	names := make([]string, len(sections))
	points := make([]map[string]float64, len(sections))
	var warnings []string
	for i, sec := range sections {
		g, _ := network.Build(sec.Records, opts.Allow)
		values, warn, err := Measure(g, opts)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.Name, err)
		}
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("section %q: %s", sec.Name, warn))
		}
		names[i] = sec.Name
		points[i] = values
	}
	p := FromValues(opts.Metric, names, points)
	p.Warnings = warnings
	return p, nil
}

// Measure computes opts.Metric on one graph. warn is non-empty when the
// metric degraded and values hold a best effort.
func Measure(g *network.Graph, opts Options) (values map[string]float64, warn string, err error) {
	if opts.Metric == MetricPageRank {
		pr, err := linkanalysis.PageRank(g, opts.PageRank)
		if err != nil {
			return nil, "", err
		}
		if !pr.Converged && g.NodeCount() > 0 {
			warn = fmt.Sprintf("pagerank stopped after %d iterations", pr.Iterations)
		}
		return pr.Scores, warn, nil
	}
	set, err := stats.Centralities(g, opts.Eigenvector)
	if err != nil {
		return nil, "", err
	}
	r, _ := set.ByName(opts.Metric)
	if r.Err != nil {
		if analysis.IsDegraded(r.Err) {
			return r.Values, r.Reason, nil
		}
		return map[string]float64{}, r.Reason, nil
	}
	return r.Values, "", nil
}

// Validate rejects metrics that cannot be followed across sections.
func (o Options) Validate() error {
	for _, m := range Metrics() {
		if m == o.Metric {
			return nil
		}
	}
	return analysis.Invalidf("unknown progression metric %q", o.Metric)
}

// FromValues assembles a progression from per-section value maps that
// were computed elsewhere, e.g. by parallel workers.
func FromValues(metric string, sections []string, points []map[string]float64) *Progression {
	seen := make(map[string]bool)
	for _, pt := range points {
		for c := range pt {
			seen[c] = true
		}
	}
	characters := make([]string, 0, len(seen))
	for c := range seen {
		characters = append(characters, c)
	}
	sort.Strings(characters)

	p := &Progression{
		Metric:          metric,
		Sections:        sections,
		Series:          make([]Series, 0, len(characters)),
		RankCorrelation: []float64{},
	}
	for _, c := range characters {
		s := Series{Character: c, Values: make([]float64, len(points))}
		for i, pt := range points {
			s.Values[i] = pt[c]
		}
		if len(points) > 2 {
			s.Trend = fitQuadratic(s.Values)
		}
		p.Series = append(p.Series, s)
	}
	for i := 0; i+1 < len(points); i++ {
		p.RankCorrelation = append(p.RankCorrelation, spearman(characters, points[i], points[i+1]))
	}
	return p
}

// Of returns the series of one character.
func (p *Progression) Of(character string) (Series, bool) {
	i := sort.Search(len(p.Series), func(i int) bool { return p.Series[i].Character >= character })
	if i < len(p.Series) && p.Series[i].Character == character {
		return p.Series[i], true
	}
	return Series{}, false
}

// Top returns the k series with the highest final value, ties by id.
// k <= 0 returns all of them.
func (p *Progression) Top(k int) []Series {
	out := append([]Series(nil), p.Series...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Final() > out[j].Final()
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// Section returns the value map of section i, including zeros for
// characters absent there.
func (p *Progression) Section(i int) map[string]float64 {
	out := make(map[string]float64, len(p.Series))
	for _, s := range p.Series {
		out[s.Character] = s.Values[i]
	}
	return out
}

func fitQuadratic(y []float64) *Trend {
	n := len(y)
	x := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		pos := float64(i + 1)
		x.Set(i, 0, pos*pos)
		x.Set(i, 1, pos)
		x.Set(i, 2, 1)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil
	}
	return &Trend{A: beta.AtVec(0), B: beta.AtVec(1), C: beta.AtVec(2)}
}

// spearman correlates the average ranks of characters in a and b.
func spearman(characters []string, a, b map[string]float64) float64 {
	if len(characters) < 2 {
		return 0
	}
	r := stat.Correlation(ranks(characters, a), ranks(characters, b), nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// ranks assigns 1-based ranks by descending value; tied values share
// the average of their positions.
func ranks(characters []string, values map[string]float64) []float64 {
	order := make([]int, len(characters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return values[characters[order[i]]] > values[characters[order[j]]]
	})
	out := make([]float64, len(characters))
	for start := 0; start < len(order); {
		end := start + 1
		v := values[characters[order[start]]]
		for end < len(order) && values[characters[order[end]]] == v {
			end++
		}
		avg := float64(start+end+1) / 2
		for _, k := range order[start:end] {
			out[k] = avg
		}
		start = end
	}
	return out
}
