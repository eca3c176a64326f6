package structure

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// HomophilyOptions configures Homophily.
type HomophilyOptions struct {
	// Permutations is the number of label shuffles in the significance
	// test. Zero skips the test.
	Permutations int `mapstructure:"permutations"`

	// Seed seeds the shuffle generator when Rand is nil.
	Seed uint64 `mapstructure:"seed"`

	Rand *rand.Rand `mapstructure:"-" json:"-"`
}

// DefaultHomophilyOptions returns 1000 permutations with a fixed seed.
func DefaultHomophilyOptions() HomophilyOptions {
	return HomophilyOptions{Permutations: 1000, Seed: 42}
}

// Validate rejects out-of-range parameters.
func (o HomophilyOptions) Validate() error {
	if o.Permutations < 0 {
		return analysis.Invalidf("homophily permutations must be >= 0, got %d", o.Permutations)
	}
	return nil
}

// MixingMatrix counts directed edges between attribute categories. Row i
// is the source category Categories[i].
type MixingMatrix struct {
	Categories    []string    `json:"categories"`
	Counts        [][]float64 `json:"counts"`
	RowNormalized [][]float64 `json:"row_normalized"`
}

// HomophilyReport is the fixed-shape result of a homophily analysis.
type HomophilyReport struct {
	Attribute string `json:"attribute,omitempty"`

	// Assortativity is Newman's attribute assortativity in [-1,1].
	Assortativity float64 `json:"assortativity"`

	Mixing MixingMatrix `json:"mixing"`

	// Edges counts the edges whose endpoints both carry a value.
	Edges int `json:"edges"`

	// EdgeHomophily is the share of counted edges inside one category.
	EdgeHomophily float64 `json:"edge_homophily"`

	// EIIndex is (external - internal) / (external + internal).
	EIIndex float64 `json:"ei_index"`

	// PValue is the two-sided permutation p-value, set when
	// Permutations > 0.
	PValue       float64 `json:"p_value,omitempty"`
	Permutations int     `json:"permutations,omitempty"`
}

// Homophily measures how strongly edges of g connect nodes sharing a
// category. attrs maps node id to category; nodes without a value are
// left out. A graph with no counted edges yields a zero report.
func Homophily(g *network.Graph, attrs map[string]string, opts HomophilyOptions) (*HomophilyReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	labeled := make([]string, 0, len(attrs))
	labels := make(map[string]string, len(attrs))
	for _, v := range g.Nodes() {
		if c, ok := attrs[v]; ok && c != "" {
			labeled = append(labeled, v)
			labels[v] = c
		}
	}

	cats := categoriesOf(labels)
	report := &HomophilyReport{Mixing: newMixing(cats)}
	index := make(map[string]int, len(cats))
	for i, c := range cats {
		index[c] = i
	}

	var edges [][2]string
	for _, e := range g.Edges() {
		if _, ok := labels[e.From]; !ok {
			continue
		}
		if _, ok := labels[e.To]; !ok {
			continue
		}
		edges = append(edges, [2]string{e.From, e.To})
	}
	report.Edges = len(edges)
	if len(edges) == 0 {
		return report, nil
	}

	counts := report.Mixing.Counts
	var internal float64
	for _, e := range edges {
		a, b := labels[e[0]], labels[e[1]]
		counts[index[a]][index[b]]++
		if a == b {
			internal++
		}
	}
	for i, row := range counts {
		var total float64
		for _, v := range row {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range row {
			report.Mixing.RowNormalized[i][j] = v / total
		}
	}
	m := float64(len(edges))
	external := m - internal
	report.EdgeHomophily = internal / m
	report.EIIndex = (external - internal) / m
	report.Assortativity = assortativity(counts)

	if opts.Permutations > 0 {
		rng := opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
		}
		values := make([]string, len(labeled))
		for i, v := range labeled {
			values[i] = labels[v]
		}
		shuffled := make(map[string]string, len(labeled))
		scratch := newMixing(cats).Counts

		observed := math.Abs(report.Assortativity)
		extreme := 0
		for range opts.Permutations {
			rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
			for i, v := range labeled {
				shuffled[v] = values[i]
			}
			for _, row := range scratch {
				clear(row)
			}
			for _, e := range edges {
				scratch[index[shuffled[e[0]]]][index[shuffled[e[1]]]]++
			}
			if math.Abs(assortativity(scratch)) >= observed-1e-12 {
				extreme++
			}
		}
		report.Permutations = opts.Permutations
		report.PValue = float64(extreme+1) / float64(opts.Permutations+1)
	}
	return report, nil
}

// HomophilyAll runs Homophily for every attribute in table, which maps
// attribute name to a node→value map. Each attribute gets an independent
// generator seeded from opts.Seed so results do not depend on map order.
func HomophilyAll(g *network.Graph, table map[string]map[string]string, opts HomophilyOptions) ([]*HomophilyReport, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*HomophilyReport, 0, len(names))
	for _, name := range names {
		o := opts
		if o.Rand == nil {
			o.Seed = opts.Seed + uint64(len(out))
		}
		r, err := Homophily(g, table[name], o)
		if err != nil {
			return nil, err
		}
		r.Attribute = name
		out = append(out, r)
	}
	return out, nil
}

// assortativity computes (tr(e) - Σ a_i b_i) / (1 - Σ a_i b_i) on the
// normalised mixing matrix e. An undefined coefficient (all edges in one
// category) is 0.
func assortativity(counts [][]float64) float64 {
	var total float64
	for _, row := range counts {
		for _, v := range row {
			total += v
		}
	}
	if total == 0 {
		return 0
	}
	k := len(counts)
	a := make([]float64, k)
	b := make([]float64, k)
	var trace float64
	for i, row := range counts {
		for j, v := range row {
			e := v / total
			a[i] += e
			b[j] += e
			if i == j {
				trace += e
			}
		}
	}
	var ab float64
	for i := range a {
		ab += a[i] * b[i]
	}
	if 1-ab < 1e-15 {
		return 0
	}
	r := (trace - ab) / (1 - ab)
	return math.Max(-1, math.Min(1, r))
}

func categoriesOf(labels map[string]string) []string {
	seen := make(map[string]struct{})
	for _, c := range labels {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func newMixing(cats []string) MixingMatrix {
	m := MixingMatrix{
		Categories:    cats,
		Counts:        make([][]float64, len(cats)),
		RowNormalized: make([][]float64, len(cats)),
	}
	for i := range cats {
		m.Counts[i] = make([]float64, len(cats))
		m.RowNormalized[i] = make([]float64, len(cats))
	}
	return m
}
