package community

import (
	"math/rand/v2"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

const (
	maxLeidenPasses = 100
	maxMoveSweeps   = 1000
)

// Leiden runs local moving, a connectivity split and aggregation on u.
// The split cuts every community into the connected pieces it induces;
// it does not perform Leiden's randomised merge refinement, so
// communities are guaranteed connected but not well-connected. The
// aggregate graph is built from the pieces with each piece starting in
// its unsplit community. opts.MaxIterations caps the passes.
func Leiden(u *network.Undirected, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	nodes := u.Nodes()
	res := &Result{Algorithm: AlgorithmLeiden}
	if u.EdgeCount() == 0 {
		res.Partition = fromGroups(nodes, nil)
		return res, nil
	}

	lg := newLevelGraph(u)
	// assign maps an original node index to its node in the current level
	assign := make([]int, len(nodes))
	comm := make([]int, len(nodes))
	for i := range nodes {
		assign[i] = i
		comm[i] = i
	}
	rng := opts.rng()
	limit := opts.MaxIterations
	if limit == 0 {
		limit = maxLeidenPasses
	}

	for res.Levels < limit {
		res.Levels++
		lg.moveNodes(comm, opts.Resolution, rng)
		refined, count := lg.refine(comm)
		if count == len(lg.adj) {
			break
		}
		parent := make([]int, count)
		for i, r := range refined {
			parent[r] = comm[i]
		}
		lg = lg.aggregate(refined, count)
		for o := range assign {
			assign[o] = refined[assign[o]]
		}
		comm = dense(parent)
	}

	byComm := make(map[int][]string)
	for o, v := range nodes {
		c := comm[assign[o]]
		byComm[c] = append(byComm[c], v)
	}
	ids := make([]int, 0, len(byComm))
	for c := range byComm {
		ids = append(ids, c)
	}
	sort.Ints(ids)
	groups := make([][]string, 0, len(ids))
	for _, c := range ids {
		groups = append(groups, byComm[c])
	}

	res.Partition = fromGroups(nodes, connectedParts(u, groups))
	res.Modularity = Modularity(u, res.Partition, opts.Resolution)
	return res, nil
}

// levelGraph is one aggregation level. Node i has strength k[i], which
// includes weight folded into it from lower levels.
type levelGraph struct {
	adj []map[int]float64
	k   []float64
	m2  float64
}

func newLevelGraph(u *network.Undirected) *levelGraph {
	nodes := u.Nodes()
	index := make(map[string]int, len(nodes))
	for i, v := range nodes {
		index[v] = i
	}
	g := &levelGraph{
		adj: make([]map[int]float64, len(nodes)),
		k:   make([]float64, len(nodes)),
	}
	for i, v := range nodes {
		g.adj[i] = make(map[int]float64)
		for _, w := range u.Neighbors(v) {
			g.adj[i][index[w]], _ = u.Weight(v, w)
		}
		g.k[i] = u.Strength(v)
		g.m2 += g.k[i]
	}
	return g
}

// moveNodes greedily moves nodes to the neighbouring community with the
// largest modularity gain until a sweep makes no move. comm is updated in
// place and must hold ids below len(g.adj).
func (g *levelGraph) moveNodes(comm []int, resolution float64, rng *rand.Rand) {
	n := len(g.adj)
	tot := make([]float64, n)
	size := make([]int, n)
	for i, c := range comm {
		tot[c] += g.k[i]
		size[c]++
	}
	order := rng.Perm(n)

	for sweep := 0; sweep < maxMoveSweeps; sweep++ {
		moved := false
		for _, i := range order {
			ci := comm[i]
			links := make(map[int]float64)
			for j, w := range g.adj[i] {
				links[comm[j]] += w
			}
			tot[ci] -= g.k[i]
			size[ci]--

			gain := func(c int) float64 {
				return links[c] - resolution*g.k[i]*tot[c]/g.m2
			}
			best, bestGain := ci, gain(ci)
			candidates := make([]int, 0, len(links))
			for c := range links {
				candidates = append(candidates, c)
			}
			sort.Ints(candidates)
			for _, c := range candidates {
				if gn := gain(c); gn > bestGain+1e-12 {
					best, bestGain = c, gn
				}
			}
			if bestGain < -1e-12 && size[ci] > 0 {
				for c := range size {
					if size[c] == 0 {
						best = c
						break
					}
				}
			}

			tot[best] += g.k[i]
			size[best]++
			if best != ci {
				comm[i] = best
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}

// refine splits each community into its connected components and
// returns the component of every node with dense ids, plus the count.
// No nodes are merged, so this is only a connectivity guarantee.
func (g *levelGraph) refine(comm []int) ([]int, int) {
	refined := make([]int, len(g.adj))
	for i := range refined {
		refined[i] = -1
	}
	count := 0
	for start := range g.adj {
		if refined[start] >= 0 {
			continue
		}
		refined[start] = count
		for queue := []int{start}; len(queue) > 0; queue = queue[1:] {
			v := queue[0]
			for w := range g.adj[v] {
				if refined[w] < 0 && comm[w] == comm[v] {
					refined[w] = count
					queue = append(queue, w)
				}
			}
		}
		count++
	}
	return refined, count
}

// aggregate collapses every refined piece into one node.
func (g *levelGraph) aggregate(refined []int, count int) *levelGraph {
	next := &levelGraph{
		adj: make([]map[int]float64, count),
		k:   make([]float64, count),
		m2:  g.m2,
	}
	for i := range next.adj {
		next.adj[i] = make(map[int]float64)
	}
	for i, row := range g.adj {
		a := refined[i]
		next.k[a] += g.k[i]
		for j, w := range row {
			if b := refined[j]; a != b {
				next.adj[a][b] += w
			}
		}
	}
	return next
}

// dense renumbers ids to 0..k-1 by first appearance.
func dense(ids []int) []int {
	remap := make(map[int]int)
	out := make([]int, len(ids))
	for i, c := range ids {
		id, ok := remap[c]
		if !ok {
			id = len(remap)
			remap[c] = id
		}
		out[i] = id
	}
	return out
}
