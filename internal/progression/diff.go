package progression

import (
	"math"
	"sort"

	"github.com/efebarandurmaz/castgraph/internal/stats"
)

// ChangeType indicates how a character's standing moved between two
// sections.
type ChangeType string

const (
	ChangeEntered ChangeType = "entered"
	ChangeLeft    ChangeType = "left"
	ChangeRose    ChangeType = "rose"
	ChangeFell    ChangeType = "fell"
	ChangeSteady  ChangeType = "steady"
)

// Mover is one character's change between two value maps.
type Mover struct {
	Character  string     `json:"character"`
	Type       ChangeType `json:"type"`
	Before     float64    `json:"before"`
	After      float64    `json:"after"`
	Delta      float64    `json:"delta"`
	RankBefore int        `json:"rank_before,omitempty"` // 0 when absent
	RankAfter  int        `json:"rank_after,omitempty"`
	RankChange int        `json:"rank_change"` // positive means climbed
}

// DiffSummary aggregates a SectionDiff.
type DiffSummary struct {
	Entered int `json:"entered"`
	Left    int `json:"left"`
	Rose    int `json:"rose"`
	Fell    int `json:"fell"`
	Steady  int `json:"steady"`
}

// SectionDiff compares the rankings of two sections.
type SectionDiff struct {
	Movers  []Mover     `json:"movers"`
	Summary DiffSummary `json:"summary"`
}

// Diff compares prev and next. Movers are ordered by the size of their
// rank change, then by the size of their value change, then by id.
func Diff(prev, next map[string]float64) *SectionDiff {
	before := rankPositions(prev)
	after := rankPositions(next)

	d := &SectionDiff{Movers: []Mover{}}
	for c, v := range prev {
		m := Mover{Character: c, Before: v, RankBefore: before[c]}
		if w, ok := next[c]; ok {
			m.After = w
			m.RankAfter = after[c]
			m.RankChange = m.RankBefore - m.RankAfter
			switch {
			case m.RankChange > 0:
				m.Type = ChangeRose
			case m.RankChange < 0:
				m.Type = ChangeFell
			default:
				m.Type = ChangeSteady
			}
		} else {
			m.Type = ChangeLeft
		}
		m.Delta = m.After - m.Before
		d.Movers = append(d.Movers, m)
	}
	for c, w := range next {
		if _, ok := prev[c]; !ok {
			d.Movers = append(d.Movers, Mover{
				Character: c,
				Type:      ChangeEntered,
				After:     w,
				Delta:     w,
				RankAfter: after[c],
			})
		}
	}

	sort.Slice(d.Movers, func(i, j int) bool {
		a, b := d.Movers[i], d.Movers[j]
		if ra, rb := abs(a.RankChange), abs(b.RankChange); ra != rb {
			return ra > rb
		}
		if da, db := math.Abs(a.Delta), math.Abs(b.Delta); da != db {
			return da > db
		}
		return a.Character < b.Character
	})
	d.Summary = summarize(d.Movers)
	return d
}

// DiffSections compares section i with section i+1 of p. A character
// scoring 0 in a section counts as absent from it.
func (p *Progression) DiffSections(i int) *SectionDiff {
	present := func(k int) map[string]float64 {
		out := make(map[string]float64)
		for _, s := range p.Series {
			if s.Values[k] != 0 {
				out[s.Character] = s.Values[k]
			}
		}
		return out
	}
	return Diff(present(i), present(i+1))
}

func rankPositions(values map[string]float64) map[string]int {
	out := make(map[string]int, len(values))
	for i, s := range stats.Rank(values, 0) {
		out[s.Node] = i + 1
	}
	return out
}

func summarize(movers []Mover) DiffSummary {
	var s DiffSummary
	for _, m := range movers {
		switch m.Type {
		case ChangeEntered:
			s.Entered++
		case ChangeLeft:
			s.Left++
		case ChangeRose:
			s.Rose++
		case ChangeFell:
			s.Fell++
		case ChangeSteady:
			s.Steady++
		}
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
