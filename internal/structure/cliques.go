// Package structure finds cohesive and fragile spots in an interaction
// graph: maximal cliques, attribute homophily and bridging nodes/edges.
package structure

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// CliqueMode selects the undirected projection cliques are searched in.
type CliqueMode string

const (
	// CliqueReciprocal keeps only pairs that interact in both directions.
	CliqueReciprocal CliqueMode = "reciprocal"
	// CliqueSimple keeps every pair that interacts in either direction.
	CliqueSimple CliqueMode = "simple"
)

// CliqueReport lists the maximal cliques of a projection.
type CliqueReport struct {
	Mode CliqueMode `json:"mode"`

	// Cliques holds every maximal clique of two or more nodes, largest
	// first, equal sizes in lexicographic order.
	Cliques [][]string `json:"cliques"`

	Largest int `json:"largest"`
}

// Maximum returns the cliques of the largest size.
func (r *CliqueReport) Maximum() [][]string {
	var out [][]string
	for _, c := range r.Cliques {
		if len(c) == r.Largest {
			out = append(out, c)
		}
	}
	return out
}

// Cliques enumerates the maximal cliques of g's projection selected by
// mode.
func Cliques(g *network.Graph, mode CliqueMode) (*CliqueReport, error) {
	var u *network.Undirected
	switch mode {
	case CliqueReciprocal:
		u = g.Reciprocal()
	case CliqueSimple:
		u = g.Undirected()
	default:
		return nil, analysis.Invalidf("unknown clique mode %q", mode)
	}

	report := &CliqueReport{Mode: mode, Cliques: [][]string{}}
	if u.EdgeCount() == 0 {
		return report, nil
	}
	ug, idx := u.Gonum()
	for _, c := range topo.BronKerbosch(ug) {
		if len(c) < 2 {
			continue
		}
		report.Cliques = append(report.Cliques, idx.Names(c))
	}
	sort.Slice(report.Cliques, func(i, j int) bool {
		a, b := report.Cliques[i], report.Cliques[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	if len(report.Cliques) > 0 {
		report.Largest = len(report.Cliques[0])
	}
	return report, nil
}
