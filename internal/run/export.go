package run

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/network"
)

// Export formats.
const (
	FormatDOT     = "dot"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// Export renders the graph as DOT, Mermaid or JSON. With a community
// algorithm, DOT and Mermaid group the characters by its partition.
func (r *Runner) Export(ctx context.Context, in *Input, format, algorithm string) (string, error) {
	format = strings.ToLower(format)
	switch format {
	case FormatDOT, FormatMermaid, FormatJSON:
	default:
		return "", analysis.Invalidf("unknown export format %q (want dot, mermaid or json)", format)
	}
	if format == FormatJSON {
		data, err := json.MarshalIndent(in.Graph, "", "  ")
		return string(data), err
	}

	var groups map[string]int
	if algorithm != "" {
		res, err := r.Communities(ctx, in, algorithm)
		if err != nil {
			return "", err
		}
		groups = res.Results[0].Partition
	}
	if format == FormatMermaid {
		return network.ExportMermaid(in.Graph, groups), nil
	}
	return network.ExportDOT(in.Graph, groups), nil
}
