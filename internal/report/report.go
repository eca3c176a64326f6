// Package report renders analysis results for the terminal with
// lipgloss, or as JSON for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// maxMembers caps how many names a single table cell lists.
const maxMembers = 8

// Printer writes either styled text or JSON.
type Printer struct {
	w      io.Writer
	styles *Styles
	json   bool
}

// NewPrinter creates a Printer. With asJSON every Emit encodes its
// value instead of rendering it.
func NewPrinter(w io.Writer, asJSON bool) *Printer {
	return &Printer{w: w, styles: DefaultStyles(), json: asJSON}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() *Styles { return p.styles }

// Emit writes v as indented JSON or the output of render.
func (p *Printer) Emit(v any, render func(*Styles) string) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(p.w, render(p.styles))
	return err
}

// Table renders rows under headers with the report styles.
func Table(s *Styles, headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			return s.Cell
		})
	return t.String()
}

// Section renders a titled block.
func Section(s *Styles, title string, body ...string) string {
	parts := append([]string{s.Subtitle.Render(title)}, body...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Ranking renders scores as a numbered table.
func Ranking(s *Styles, label string, scores []stats.Score) string {
	rows := make([][]string, len(scores))
	for i, sc := range scores {
		rows[i] = []string{strconv.Itoa(i + 1), sc.Node, Float(sc.Value)}
	}
	return Table(s, []string{"#", "character", label}, rows)
}

// KeyValues renders pairs as a two-column table.
func KeyValues(s *Styles, pairs ...[2]string) string {
	rows := make([][]string, len(pairs))
	for i, kv := range pairs {
		rows[i] = []string{kv[0], kv[1]}
	}
	return Table(s, []string{"measure", "value"}, rows)
}

// Float formats a score compactly.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Members lists up to maxMembers names, sorted, with a count of the rest.
func Members(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	if len(sorted) <= maxMembers {
		return strings.Join(sorted, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(sorted[:maxMembers], ", "), len(sorted)-maxMembers)
}

// Warnings renders a muted list of warnings, or nothing.
func Warnings(s *Styles, warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = s.Muted.Render("! " + w)
	}
	return strings.Join(lines, "\n")
}

// Join stacks non-empty blocks with a blank line between them.
func Join(blocks ...string) string {
	var kept []string
	for _, b := range blocks {
		if b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, "\n\n")
}
