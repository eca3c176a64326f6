package network

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

var clusterColors = []string{
	"#58a6ff", "#3fb950", "#d29922", "#f85149", "#a371f7", "#db61a2", "#39c5cf", "#8b949e",
}

// ExportDOT renders g as Graphviz DOT. When groups is non-nil, nodes that
// share a group id are drawn inside one cluster.
func ExportDOT(g *Graph, groups map[string]int) string {
	var b strings.Builder
	b.WriteString("digraph interactions {\n")
	b.WriteString("  node [fontname=\"Helvetica\" shape=ellipse];\n")
	b.WriteString("  edge [fontname=\"Helvetica\" fontsize=10];\n\n")

	clustered := make(map[int][]string)
	var loose []string
	for _, n := range g.Nodes() {
		if id, ok := groups[n]; ok {
			clustered[id] = append(clustered[id], n)
		} else {
			loose = append(loose, n)
		}
	}

	for _, id := range sortedGroupIDs(clustered) {
		color := clusterColors[id%len(clusterColors)]
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", id)
		fmt.Fprintf(&b, "    label=\"community %d\";\n", id)
		b.WriteString("    style=dashed;\n")
		fmt.Fprintf(&b, "    color=\"%s\";\n", color)
		for _, n := range clustered[id] {
			fmt.Fprintf(&b, "    \"%s\" [style=filled fillcolor=\"%s\"];\n", escapeDOT(n), color)
		}
		b.WriteString("  }\n\n")
	}
	for _, n := range loose {
		fmt.Fprintf(&b, "  \"%s\";\n", escapeDOT(n))
	}

	edges := g.Edges()
	var heaviest float64
	for _, e := range edges {
		heaviest = max(heaviest, e.Weight)
	}
	for _, e := range edges {
		fmt.Fprintf(&b, "  \"%s\" -> \"%s\" [label=\"%s\" penwidth=%.2f];\n",
			escapeDOT(e.From), escapeDOT(e.To), formatWeight(e.Weight), penWidth(e.Weight, heaviest))
	}

	b.WriteString("}\n")
	return b.String()
}

// ExportMermaid renders g as a Mermaid flowchart, grouping nodes into
// subgraphs when groups is non-nil.
func ExportMermaid(g *Graph, groups map[string]int) string {
	var b strings.Builder
	b.WriteString("graph LR\n")

	clustered := make(map[int][]string)
	for _, n := range g.Nodes() {
		if id, ok := groups[n]; ok {
			clustered[id] = append(clustered[id], n)
		} else {
			fmt.Fprintf(&b, "  %s[\"%s\"]\n", sanitizeMermaidID(n), n)
		}
	}
	for _, id := range sortedGroupIDs(clustered) {
		fmt.Fprintf(&b, "  subgraph community_%d\n", id)
		for _, n := range clustered[id] {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", sanitizeMermaidID(n), n)
		}
		b.WriteString("  end\n")
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", sanitizeMermaidID(e.From), formatWeight(e.Weight), sanitizeMermaidID(e.To))
	}
	return b.String()
}

type graphJSON struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// MarshalJSON encodes g as its node list and edge list.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphJSON{Nodes: g.Nodes(), Edges: g.Edges()})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fresh := newGraph()
	for _, n := range raw.Nodes {
		fresh.addNode(n)
	}
	for _, e := range raw.Edges {
		if e.From == e.To || e.Weight <= 0 {
			return fmt.Errorf("invalid edge %s->%s (weight %v)", e.From, e.To, e.Weight)
		}
		fresh.addEdge(e.From, e.To, e.Weight)
	}
	*g = *fresh.seal()
	return nil
}

func sortedGroupIDs(m map[int][]string) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func penWidth(w, heaviest float64) float64 {
	if heaviest == 0 {
		return 1
	}
	return 0.5 + 3.5*w/heaviest
}

func formatWeight(w float64) string {
	if w == float64(int64(w)) {
		return fmt.Sprintf("%d", int64(w))
	}
	return fmt.Sprintf("%.2f", w)
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

func sanitizeMermaidID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
