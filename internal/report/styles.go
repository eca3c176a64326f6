package report

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark terminal theme
const (
	ColorBg     = "#0d1117"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds the lipgloss styles used by every report.
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style

	// Tables
	Header lipgloss.Style
	Cell   lipgloss.Style
	Border lipgloss.Style

	// Outcome badges
	StatusOK       lipgloss.Style
	StatusDegraded lipgloss.Style
	StatusFailed   lipgloss.Style

	// Movement in progression diffs
	Rose lipgloss.Style
	Fell lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	badge := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Padding(0, 1).
		Bold(true)

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)).
			Bold(true).
			Padding(0, 1),

		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			Padding(0, 1),

		Border: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBorder)),

		StatusOK:       badge.Background(lipgloss.Color(ColorGreen)),
		StatusDegraded: badge.Background(lipgloss.Color(ColorYellow)),
		StatusFailed:   badge.Background(lipgloss.Color(ColorRed)),

		Rose: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Fell: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// Badge returns the badge style for an analysis outcome.
func (s *Styles) Badge(outcome string) lipgloss.Style {
	switch outcome {
	case "ok":
		return s.StatusOK
	case "degraded":
		return s.StatusDegraded
	default:
		return s.StatusFailed
	}
}

// QualityColor returns a style for a quality score in [0, 1]: green for
// >=0.5, yellow for >=0.3, red below. Used for modularity and agreement
// indices.
func QualityColor(score float64) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 0.5:
		return style.Foreground(lipgloss.Color(ColorGreen))
	case score >= 0.3:
		return style.Foreground(lipgloss.Color(ColorYellow))
	default:
		return style.Foreground(lipgloss.Color(ColorRed))
	}
}
