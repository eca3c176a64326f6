package community

import (
	"gonum.org/v1/gonum/graph/community"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

// Louvain runs greedy modularity optimisation with aggregation on u. Node
// visiting order comes from opts.Rand (or a generator seeded with
// opts.Seed), so equal options give equal partitions.
func Louvain(u *network.Undirected, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	nodes := u.Nodes()
	res := &Result{Algorithm: AlgorithmLouvain}
	if u.EdgeCount() == 0 {
		res.Partition = fromGroups(nodes, nil)
		return res, nil
	}

	ug, idx := u.Gonum()
	reduced := community.Modularize(ug, opts.Resolution, opts.rng())

	var groups [][]string
	for _, members := range reduced.Communities() {
		groups = append(groups, idx.Names(members))
	}
	levels := 0
	for r, _ := reduced.(*community.ReducedUndirected); r != nil; r, _ = r.Expanded().(*community.ReducedUndirected) {
		levels++
	}
	// the lowest reduction is u itself, not an aggregation
	res.Levels = max(levels-1, 0)

	res.Partition = fromGroups(nodes, groups)
	res.Modularity = Modularity(u, res.Partition, opts.Resolution)
	return res, nil
}
