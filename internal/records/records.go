// Package records reads interaction edge lists and character tables from
// CSV and groups edges into narrative sections.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/efebarandurmaz/castgraph/internal/network"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("records: missing column")

// EdgeColumns names the header columns of an edge list.
type EdgeColumns struct {
	Source  string `mapstructure:"source"`
	Target  string `mapstructure:"target"`
	Weight  string `mapstructure:"weight"`
	Section string `mapstructure:"section"`
}

// DefaultEdgeColumns returns the x,y,weight layout. No section column is
// read by default.
func DefaultEdgeColumns() EdgeColumns {
	return EdgeColumns{Source: "x", Target: "y", Weight: "weight"}
}

// ReadEdges parses an edge list. Source and target columns are required;
// a missing or empty weight counts one occurrence.
func ReadEdges(r io.Reader, cols EdgeColumns) ([]network.Record, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("records: read header: %w", err)
	}
	pos := positions(header)
	src, ok := pos[strings.ToLower(cols.Source)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, cols.Source)
	}
	dst, ok := pos[strings.ToLower(cols.Target)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, cols.Target)
	}
	weight, hasWeight := pos[strings.ToLower(cols.Weight)]
	section, hasSection := -1, false
	if cols.Section != "" {
		if section, hasSection = pos[strings.ToLower(cols.Section)]; !hasSection {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, cols.Section)
		}
	}

	var out []network.Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("records: line %d: %w", line, err)
		}
		rec := network.Record{Source: field(row, src), Target: field(row, dst)}
		if rec.Source == "" && rec.Target == "" {
			continue
		}
		if hasWeight {
			if raw := field(row, weight); raw != "" {
				w, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, fmt.Errorf("records: line %d: weight %q: %w", line, raw, err)
				}
				rec.Weight = w
			}
		}
		if hasSection {
			rec.Section = field(row, section)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadEdgesFile opens path and calls ReadEdges.
func ReadEdgesFile(path string, cols EdgeColumns) ([]network.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("records: open edges: %w", err)
	}
	defer f.Close()
	return ReadEdges(f, cols)
}

// Characters is the valid-entity table with optional categorical
// attributes.
type Characters struct {
	// Names holds lower-cased character ids in file order.
	Names []string

	// Attributes maps attribute name to character id to value. Empty
	// values are left out.
	Attributes map[string]map[string]string
}

// Attribute returns the values of one attribute, or nil when the table
// has no such column.
func (c *Characters) Attribute(name string) map[string]string {
	return c.Attributes[strings.ToLower(name)]
}

// ReadCharacters parses a character table whose nameColumn holds the id
// and whose other columns are attributes.
func ReadCharacters(r io.Reader, nameColumn string) (*Characters, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return &Characters{Attributes: map[string]map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("records: read header: %w", err)
	}
	pos := positions(header)
	nameAt, ok := pos[strings.ToLower(nameColumn)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, nameColumn)
	}

	out := &Characters{Attributes: make(map[string]map[string]string)}
	for i, col := range header {
		if i != nameAt {
			out.Attributes[normalize(col)] = make(map[string]string)
		}
	}
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("records: line %d: %w", line, err)
		}
		name := normalize(field(row, nameAt))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out.Names = append(out.Names, name)
		for i, col := range header {
			if i == nameAt {
				continue
			}
			if v := field(row, i); v != "" {
				out.Attributes[normalize(col)][name] = v
			}
		}
	}
	return out, nil
}

// ReadCharactersFile opens path and calls ReadCharacters.
func ReadCharactersFile(path, nameColumn string) (*Characters, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("records: open characters: %w", err)
	}
	defer f.Close()
	return ReadCharacters(f, nameColumn)
}

// Section is a named slice of the edge list, e.g. one episode.
type Section struct {
	Name    string           `json:"name"`
	Records []network.Record `json:"records"`
}

// Sections groups records by their Section field in order of first
// appearance. Records without a section are skipped.
func Sections(rs []network.Record) []Section {
	var out []Section
	at := make(map[string]int)
	for _, r := range rs {
		if r.Section == "" {
			continue
		}
		i, ok := at[r.Section]
		if !ok {
			i = len(out)
			at[r.Section] = i
			out = append(out, Section{Name: r.Section})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

func positions(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, col := range header {
		pos[normalize(col)] = i
	}
	return pos
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
