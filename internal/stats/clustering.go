package stats

import "github.com/efebarandurmaz/castgraph/internal/network"

// ClusteringReport holds local and global clustering of an undirected
// graph. Edge weights are ignored.
type ClusteringReport struct {
	Local        map[string]float64 `json:"local"`
	Average      float64            `json:"average"`
	Transitivity float64            `json:"transitivity"`
	Triangles    int                `json:"triangles"`
}

// Clustering computes the local clustering coefficient of every node,
// their mean, and the transitivity 3*triangles / connected triples.
func Clustering(u *network.Undirected) ClusteringReport {
	r := ClusteringReport{Local: make(map[string]float64, u.NodeCount())}
	if u.NodeCount() == 0 {
		return r
	}

	var closed, triples, sum float64
	for _, v := range u.Nodes() {
		nbrs := u.Neighbors(v)
		k := len(nbrs)
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if _, ok := u.Weight(nbrs[i], nbrs[j]); ok {
					links++
				}
			}
		}
		pairs := k * (k - 1) / 2
		c := 0.0
		if pairs > 0 {
			c = float64(links) / float64(pairs)
		}
		r.Local[v] = c
		sum += c
		closed += float64(links)
		triples += float64(pairs)
	}

	r.Average = sum / float64(u.NodeCount())
	// each triangle is seen once from each of its three corners
	r.Triangles = int(closed) / 3
	if triples > 0 {
		r.Transitivity = closed / triples
	}
	return r
}
