package community

import (
	"math"
	"sort"
)

// Agreement holds similarity indices between two partitions.
type Agreement struct {
	// ARI is the adjusted Rand index, 1 for identical partitions and
	// around 0 for independent ones.
	ARI float64 `json:"ari"`

	// NMI is mutual information normalised by the arithmetic mean of
	// the two entropies, in [0,1].
	NMI float64 `json:"nmi"`
}

// Comparison is the agreement between two named results.
type Comparison struct {
	A string `json:"a"`
	B string `json:"b"`
	Agreement
}

type cell struct{ x, y int }

// contingency counts co-membership over the nodes both partitions cover.
type contingency struct {
	cells map[cell]int
	rows  map[int]int
	cols  map[int]int
	n     int
}

func newContingency(a, b Partition) contingency {
	c := contingency{cells: make(map[cell]int), rows: make(map[int]int), cols: make(map[int]int)}
	for node, x := range a {
		y, ok := b[node]
		if !ok {
			continue
		}
		c.cells[cell{x, y}]++
		c.rows[x]++
		c.cols[y]++
		c.n++
	}
	return c
}

// Compare computes the agreement of a and b over the nodes both cover.
// Two trivial partitions of the same shape (one block, or all singletons)
// agree perfectly.
func Compare(a, b Partition) Agreement {
	c := newContingency(a, b)
	if c.n == 0 {
		return Agreement{}
	}
	if len(c.rows) == len(c.cols) && (len(c.rows) == 1 || len(c.rows) == c.n) {
		return Agreement{ARI: 1, NMI: 1}
	}
	return Agreement{ARI: c.adjustedRand(), NMI: c.normalizedMutualInfo()}
}

// CompareAll compares every pair of results, pairs ordered by name.
func CompareAll(results map[string]Partition) []Comparison {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []Comparison
	for i, a := range names {
		for _, b := range names[i+1:] {
			out = append(out, Comparison{A: a, B: b, Agreement: Compare(results[a], results[b])})
		}
	}
	return out
}

func choose2(k int) float64 { return float64(k) * float64(k-1) / 2 }

func (c contingency) adjustedRand() float64 {
	var index, sumRows, sumCols float64
	for _, v := range c.cells {
		index += choose2(v)
	}
	for _, v := range c.rows {
		sumRows += choose2(v)
	}
	for _, v := range c.cols {
		sumCols += choose2(v)
	}
	expected := sumRows * sumCols / choose2(c.n)
	maxIndex := (sumRows + sumCols) / 2
	if maxIndex == expected {
		return 1
	}
	return (index - expected) / (maxIndex - expected)
}

func (c contingency) normalizedMutualInfo() float64 {
	n := float64(c.n)
	entropy := func(m map[int]int) float64 {
		var h float64
		for _, v := range m {
			p := float64(v) / n
			h -= p * math.Log(p)
		}
		return h
	}
	var mi float64
	for k, v := range c.cells {
		pxy := float64(v) / n
		px := float64(c.rows[k.x]) / n
		py := float64(c.cols[k.y]) / n
		mi += pxy * math.Log(pxy/(px*py))
	}
	norm := (entropy(c.rows) + entropy(c.cols)) / 2
	if norm == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, mi/norm))
}
