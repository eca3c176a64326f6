package stats

import "github.com/efebarandurmaz/castgraph/internal/network"

// DegreeDistribution maps each observed degree to the fraction of nodes
// with that degree.
type DegreeDistribution struct {
	In  map[int]float64 `json:"in"`
	Out map[int]float64 `json:"out"`
}

// Degrees computes the in- and out-degree distributions of g. An empty
// graph yields empty maps.
func Degrees(g *network.Graph) DegreeDistribution {
	d := DegreeDistribution{In: map[int]float64{}, Out: map[int]float64{}}
	n := g.NodeCount()
	if n == 0 {
		return d
	}
	frac := 1 / float64(n)
	for _, v := range g.Nodes() {
		d.In[g.InDegree(v)] += frac
		d.Out[g.OutDegree(v)] += frac
	}
	return d
}
