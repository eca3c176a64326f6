package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/ego"
	"github.com/efebarandurmaz/castgraph/internal/linkanalysis"
	"github.com/efebarandurmaz/castgraph/internal/progression"
	"github.com/efebarandurmaz/castgraph/internal/stats"
	"github.com/efebarandurmaz/castgraph/internal/structure"
	"github.com/efebarandurmaz/castgraph/internal/vector"
)

// Centralities renders the top characters of every centrality. Failed
// metrics show their reason instead of a table.
func Centralities(s *Styles, set stats.CentralitySet, top int) string {
	var blocks []string
	for _, metric := range stats.Metrics() {
		r, _ := set.ByName(metric)
		if !r.OK() && len(r.Values) == 0 {
			blocks = append(blocks, Section(s, metric, s.Muted.Render("unavailable: "+r.Reason)))
			continue
		}
		body := []string{Ranking(s, metric, r.Top(top))}
		sum := stats.Summarize(r.Values)
		body = append(body, s.Muted.Render(fmt.Sprintf("mean %s  median %s  max %s",
			Float(sum.Mean), Float(sum.Median), Float(sum.Max))))
		if !r.OK() {
			body = append(body, s.Muted.Render("degraded: "+r.Reason))
		}
		blocks = append(blocks, Section(s, metric, body...))
	}
	return Join(blocks...)
}

// Connectivity renders graph-level statistics.
func Connectivity(s *Styles, c stats.ConnectivityReport, cl stats.ClusteringReport) string {
	diameter := 0
	for _, d := range c.Diameters {
		diameter = max(diameter, d.Diameter)
	}
	return Section(s, "network",
		KeyValues(s,
			[2]string{"characters", strconv.Itoa(c.Nodes)},
			[2]string{"interactions", strconv.Itoa(c.Edges)},
			[2]string{"density", Float(c.Density)},
			[2]string{"weak components", strconv.Itoa(c.WeakCount())},
			[2]string{"strong components", strconv.Itoa(c.StrongCount())},
			[2]string{"largest diameter", strconv.Itoa(diameter)},
			[2]string{"average clustering", Float(cl.Average)},
			[2]string{"transitivity", Float(cl.Transitivity)},
			[2]string{"triangles", strconv.Itoa(cl.Triangles)},
		))
}

// Degrees renders the in- and out-degree distributions.
func Degrees(s *Styles, d stats.DegreeDistribution) string {
	seen := make(map[int]bool)
	for k := range d.In {
		seen[k] = true
	}
	for k := range d.Out {
		seen[k] = true
	}
	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{strconv.Itoa(k), Float(d.In[k]), Float(d.Out[k])}
	}
	return Section(s, "degree distribution", Table(s, []string{"degree", "in", "out"}, rows))
}

// PageRank renders a PageRank result.
func PageRank(s *Styles, r *linkanalysis.PageRankResult, top int) string {
	return Section(s, "pagerank",
		Ranking(s, "pagerank", stats.Rank(r.Scores, top)),
		convergence(s, r.Converged, r.Iterations))
}

// HITS renders hubs and authorities side by side.
func HITS(s *Styles, r *linkanalysis.HITSResult, top int) string {
	pair := lipgloss.JoinHorizontal(lipgloss.Top,
		Ranking(s, "hub", stats.Rank(r.Hubs, top)),
		"  ",
		Ranking(s, "authority", stats.Rank(r.Authorities, top)))
	return Section(s, "hits", pair, convergence(s, r.Converged, r.Iterations))
}

func convergence(s *Styles, converged bool, iterations int) string {
	if converged {
		return s.Muted.Render(fmt.Sprintf("converged after %d iterations", iterations))
	}
	return s.StatusDegraded.Render(fmt.Sprintf("stopped after %d iterations", iterations))
}

// Communities renders each detector's partition and, when there are at
// least two, their pairwise agreement.
func Communities(s *Styles, results []*community.Result, comparisons []community.Comparison) string {
	var blocks []string
	for _, r := range results {
		comms := r.Partition.Communities()
		rows := make([][]string, len(comms))
		for i, members := range comms {
			rows[i] = []string{strconv.Itoa(i), strconv.Itoa(len(members)), Members(members)}
		}
		head := fmt.Sprintf("%d communities  modularity %s  largest clustering %s",
			len(comms), QualityColor(r.Modularity).Render(Float(r.Modularity)), Float(r.LargestClustering))
		blocks = append(blocks, Section(s, r.Algorithm,
			s.Muted.Render(head),
			Table(s, []string{"id", "size", "members"}, rows)))
	}
	if len(comparisons) > 0 {
		rows := make([][]string, len(comparisons))
		for i, c := range comparisons {
			rows[i] = []string{c.A, c.B, Float(c.ARI), Float(c.NMI)}
		}
		blocks = append(blocks, Section(s, "agreement", Table(s, []string{"a", "b", "ARI", "NMI"}, rows)))
	}
	return Join(blocks...)
}

// Cliques renders the maximum cliques of a clique report.
func Cliques(s *Styles, r *structure.CliqueReport) string {
	maximum := r.Maximum()
	rows := make([][]string, len(maximum))
	for i, c := range maximum {
		rows[i] = []string{strconv.Itoa(i + 1), Members(c)}
	}
	head := fmt.Sprintf("mode %s  %d maximal cliques  largest %d", r.Mode, len(r.Cliques), r.Largest)
	return Section(s, "cliques", s.Muted.Render(head), Table(s, []string{"#", "maximum clique"}, rows))
}

// Homophily renders one row per attribute and the mixing matrix of each.
func Homophily(s *Styles, reports []*structure.HomophilyReport) string {
	if len(reports) == 0 {
		return Section(s, "homophily", s.Muted.Render("no attributes"))
	}
	rows := make([][]string, len(reports))
	var mixing []string
	for i, r := range reports {
		p := "-"
		if r.Permutations > 0 {
			p = Float(r.PValue)
		}
		rows[i] = []string{r.Attribute, Float(r.Assortativity), Float(r.EdgeHomophily), Float(r.EIIndex), p, strconv.Itoa(r.Edges)}
		mixing = append(mixing, Mixing(s, r))
	}
	summary := Table(s, []string{"attribute", "assortativity", "edge homophily", "E-I", "p", "edges"}, rows)
	return Join(append([]string{Section(s, "homophily", summary)}, mixing...)...)
}

// Mixing renders a row-normalised mixing matrix.
func Mixing(s *Styles, r *structure.HomophilyReport) string {
	m := r.Mixing
	if len(m.Categories) == 0 {
		return ""
	}
	headers := append([]string{"from \\ to"}, m.Categories...)
	rows := make([][]string, len(m.Categories))
	for i, c := range m.Categories {
		row := []string{c}
		for j := range m.Categories {
			row = append(row, Float(m.RowNormalized[i][j]))
		}
		rows[i] = row
	}
	return Section(s, "mixing: "+r.Attribute, Table(s, headers, rows))
}

// Bridges renders articulation points and bridge edges.
func Bridges(s *Styles, r *structure.BridgeReport) string {
	edges := make([]string, len(r.WeakBridges))
	for i, e := range r.WeakBridges {
		edges[i] = e.From + " - " + e.To
	}
	return Section(s, "bridges",
		KeyValues(s,
			[2]string{"articulation (weak)", orNone(Members(r.WeakArticulation))},
			[2]string{"articulation (strong)", orNone(Members(r.StrongArticulation))},
			[2]string{"bridges", orNone(strings.Join(edges, ", "))},
		))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// Ego renders an ego network: its size, ties and reciprocal partners.
func Ego(s *Styles, n *ego.Network, top int) string {
	mode := "direct"
	if n.Mode == ego.ModeNeighborhood {
		mode = "neighborhood"
	}
	head := fmt.Sprintf("%s  radius %d  %s  %d characters  %d interactions",
		n.Ego, n.Radius, mode, n.Graph.NodeCount(), n.Graph.EdgeCount())
	if n.Empty() {
		return Section(s, "ego", s.Muted.Render(head), s.Muted.Render("not present in this graph"))
	}
	blocks := []string{s.Muted.Render(head)}

	ties := lipgloss.JoinHorizontal(lipgloss.Top,
		tieTable(s, "incoming", n.Stats.Incoming, top),
		"  ",
		tieTable(s, "outgoing", n.Stats.Outgoing, top))
	blocks = append(blocks, ties)

	if len(n.Stats.Reciprocal) > 0 {
		rows := make([][]string, 0, len(n.Stats.Reciprocal))
		for i, m := range n.Stats.Reciprocal {
			if top > 0 && i == top {
				break
			}
			rows = append(rows, []string{m.Node, Float(m.Out), Float(m.In), Float(m.Total)})
		}
		blocks = append(blocks, Table(s, []string{"reciprocal", "out", "in", "total"}, rows))
	}
	if n.Stats.Influence != nil && len(n.Stats.Influence.Values) > 0 {
		blocks = append(blocks, Ranking(s, "eigenvector in ego network", n.Stats.Influence.Top(top)))
	}
	return Section(s, "ego", blocks...)
}

func tieTable(s *Styles, label string, ties []ego.Tie, top int) string {
	rows := make([][]string, 0, len(ties))
	for i, t := range ties {
		if top > 0 && i == top {
			break
		}
		rows = append(rows, []string{t.Node, Float(t.Weight)})
	}
	return Table(s, []string{label, "weight"}, rows)
}

// Progression renders the top characters' value in every section, their
// trend, and the rank correlation between consecutive sections.
func Progression(s *Styles, p *progression.Progression, top int) string {
	headers := append([]string{"character"}, p.Sections...)
	headers = append(headers, "trend")
	series := p.Top(top)
	rows := make([][]string, len(series))
	for i, sr := range series {
		row := []string{sr.Character}
		for _, v := range sr.Values {
			row = append(row, Float(v))
		}
		row = append(row, trend(s, sr))
		rows[i] = row
	}
	blocks := []string{Table(s, headers, rows)}

	if len(p.RankCorrelation) > 0 {
		corr := make([][]string, len(p.RankCorrelation))
		for i, c := range p.RankCorrelation {
			corr[i] = []string{p.Sections[i] + " -> " + p.Sections[i+1], QualityColor(c).Render(Float(c))}
		}
		blocks = append(blocks, Table(s, []string{"sections", "rank correlation"}, corr))
	}
	blocks = append(blocks, Warnings(s, p.Warnings))
	return Section(s, "progression: "+p.Metric, Join(blocks...))
}

// trend describes a series' fitted slope at the last section.
func trend(s *Styles, sr progression.Series) string {
	if sr.Trend == nil || len(sr.Values) == 0 {
		return "-"
	}
	x := float64(len(sr.Values))
	slope := 2*sr.Trend.A*x + sr.Trend.B
	switch {
	case slope > 1e-9:
		return s.Rose.Render("rising " + Float(slope))
	case slope < -1e-9:
		return s.Fell.Render("falling " + Float(slope))
	default:
		return "flat"
	}
}

// Diff renders the biggest movers between two sections.
func Diff(s *Styles, from, to string, d *progression.SectionDiff, top int) string {
	rows := make([][]string, 0, len(d.Movers))
	for i, m := range d.Movers {
		if top > 0 && i == top {
			break
		}
		change := strconv.Itoa(m.RankChange)
		switch m.Type {
		case progression.ChangeEntered:
			change = s.Rose.Render("new")
		case progression.ChangeLeft:
			change = s.Fell.Render("gone")
		case progression.ChangeRose:
			change = s.Rose.Render("+" + change)
		case progression.ChangeFell:
			change = s.Fell.Render(change)
		}
		rows = append(rows, []string{m.Character, string(m.Type), Float(m.Before), Float(m.After), change})
	}
	sum := d.Summary
	head := fmt.Sprintf("entered %d  left %d  rose %d  fell %d  steady %d",
		sum.Entered, sum.Left, sum.Rose, sum.Fell, sum.Steady)
	return Section(s, from+" -> "+to,
		s.Muted.Render(head),
		Table(s, []string{"character", "change", "before", "after", "rank"}, rows))
}

// Roles renders role-similarity hits.
func Roles(s *Styles, character string, hits []vector.SearchResult) string {
	rows := make([][]string, len(hits))
	for i, h := range hits {
		rows[i] = []string{strconv.Itoa(i + 1), h.Character, h.Dataset, QualityColor(float64(h.Score)).Render(Float(float64(h.Score)))}
	}
	return Section(s, "roles like "+character, Table(s, []string{"#", "character", "dataset", "similarity"}, rows))
}
