// Package metrics keeps the per-run summary printed at the end of a CLI
// run.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

// RunMetrics collects statistics for one analysis run. It is safe for
// concurrent use by analyses running in parallel.
type RunMetrics struct {
	mu sync.Mutex

	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`
	Duration   time.Duration     `json:"duration_ms,omitempty"`
	Input      InputMetrics      `json:"input"`
	Analyses   []AnalysisMetrics `json:"analyses"`
	Warnings   []string          `json:"warnings,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
}

// InputMetrics describes the data the run was built from.
type InputMetrics struct {
	Source      string  `json:"source"`
	Records     int     `json:"records"`
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	SelfLoops   int     `json:"self_loops"`
	Nodes       int     `json:"nodes"`
	Edges       int     `json:"edges"`
	Sections    int     `json:"sections,omitempty"`
	Characters  int     `json:"characters,omitempty"`
	TotalWeight float64 `json:"total_weight"`
}

// AnalysisMetrics is one analysis' timing and outcome.
type AnalysisMetrics struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ms"`
	Outcome  string        `json:"outcome"`
	Detail   string        `json:"detail,omitempty"`
}

// New starts tracking a run.
func New() *RunMetrics {
	return &RunMetrics{StartedAt: time.Now()}
}

// CollectInput records the build statistics and resulting graph size.
func (m *RunMetrics) CollectInput(source string, st network.BuildStats, g *network.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Input.Source = source
	m.Input.Records = st.Accepted + st.Rejected + st.SelfLoops
	m.Input.Accepted = st.Accepted
	m.Input.Rejected = st.Rejected
	m.Input.SelfLoops = st.SelfLoops
	m.Input.Nodes = g.NodeCount()
	m.Input.Edges = g.EdgeCount()
	m.Input.TotalWeight = g.TotalWeight()
}

// SetSections records how many narrative sections the input has.
func (m *RunMetrics) SetSections(n int) {
	m.mu.Lock()
	m.Input.Sections = n
	m.mu.Unlock()
}

// SetCharacters records the size of the valid-entity table.
func (m *RunMetrics) SetCharacters(n int) {
	m.mu.Lock()
	m.Input.Characters = n
	m.mu.Unlock()
}

// AddAnalysis records a single analysis' timing and outcome.
func (m *RunMetrics) AddAnalysis(name string, d time.Duration, outcome, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Analyses = append(m.Analyses, AnalysisMetrics{
		Name:     name,
		Duration: d,
		Outcome:  outcome,
		Detail:   detail,
	})
}

// Warn records a non-fatal issue.
func (m *RunMetrics) Warn(msg string) {
	m.mu.Lock()
	m.Warnings = append(m.Warnings, msg)
	m.mu.Unlock()
}

// Finish marks the run as complete. Analyses are sorted by name so the
// report does not depend on completion order.
func (m *RunMetrics) Finish(errs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Errors = errs
	sort.Slice(m.Analyses, func(i, j int) bool { return m.Analyses[i].Name < m.Analyses[j].Name })
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║         CASTGRAPH RUN REPORT         ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Source:      %-23s║\n", truncate(m.Input.Source, 23))
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ INPUT\n")
	fmt.Fprintf(w, "║   Records:     %d (%d accepted)\n", m.Input.Records, m.Input.Accepted)
	fmt.Fprintf(w, "║   Rejected:    %d\n", m.Input.Rejected)
	fmt.Fprintf(w, "║   Self loops:  %d\n", m.Input.SelfLoops)
	fmt.Fprintf(w, "║   Nodes:       %d\n", m.Input.Nodes)
	fmt.Fprintf(w, "║   Edges:       %d\n", m.Input.Edges)
	if m.Input.Sections > 0 {
		fmt.Fprintf(w, "║   Sections:    %d\n", m.Input.Sections)
	}
	if m.Input.Characters > 0 {
		fmt.Fprintf(w, "║   Characters:  %d\n", m.Input.Characters)
	}
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ ANALYSES\n")
	for _, a := range m.Analyses {
		line := fmt.Sprintf("║   %-14s %8s  [%s]", a.Name, a.Duration.Round(time.Microsecond), a.Outcome)
		if a.Detail != "" {
			line += " " + a.Detail
		}
		fmt.Fprintln(w, line)
	}
	if len(m.Warnings) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ WARNINGS\n")
		for _, e := range m.Warnings {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.MarshalIndent(m, "", "  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
