package network

import (
	"math"
	"strings"
)

// Record is one raw interaction: source addressed or mentioned target.
// A Weight <= 0 counts as a single occurrence.
type Record struct {
	Source  string  `json:"source"`
	Target  string  `json:"target"`
	Weight  float64 `json:"weight,omitempty"`
	Section string  `json:"section,omitempty"`
}

// BuildStats counts what the builder did with its input.
type BuildStats struct {
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`   // endpoint outside the allowlist or unusable weight
	SelfLoops int `json:"self_loops"` // source == target after normalisation
}

// Builder aggregates records into a Graph. Records for the same ordered
// pair are summed. A Builder is not safe for concurrent use.
type Builder struct {
	allow map[string]struct{}
	names map[string]string
	g     *Graph
	stats BuildStats
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithAllowlist restricts nodes to the given names. Names are normalised
// the same way as record endpoints. A nil or empty list accepts everyone.
func WithAllowlist(names []string) BuilderOption {
	return func(b *Builder) {
		if len(names) == 0 {
			return
		}
		b.allow = make(map[string]struct{}, len(names))
		for _, n := range names {
			b.allow[b.Normalize(n)] = struct{}{}
		}
	}
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		names: make(map[string]string),
		g:     newGraph(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Normalize returns the canonical id for a raw name: trimmed and
// lower-cased. Results are memoised on the builder.
func (b *Builder) Normalize(name string) string {
	if id, ok := b.names[name]; ok {
		return id
	}
	id := strings.ToLower(strings.TrimSpace(name))
	b.names[name] = id
	return id
}

func (b *Builder) allowed(id string) bool {
	if id == "" {
		return false
	}
	if b.allow == nil {
		return true
	}
	_, ok := b.allow[id]
	return ok
}

// Add aggregates one record and reports whether it was accepted.
func (b *Builder) Add(r Record) bool {
	src, dst := b.Normalize(r.Source), b.Normalize(r.Target)
	if !b.allowed(src) || !b.allowed(dst) {
		b.stats.Rejected++
		return false
	}
	if src == dst {
		b.stats.SelfLoops++
		return false
	}
	w := r.Weight
	if math.IsNaN(w) || math.IsInf(w, 0) {
		b.stats.Rejected++
		return false
	}
	if w <= 0 {
		w = 1
	}
	b.g.addEdge(src, dst, w)
	b.stats.Accepted++
	return true
}

// AddAll aggregates every record in rs.
func (b *Builder) AddAll(rs []Record) {
	for _, r := range rs {
		b.Add(r)
	}
}

// AddNode adds an isolated node. It reports false when the name is
// outside the allowlist.
func (b *Builder) AddNode(name string) bool {
	id := b.Normalize(name)
	if !b.allowed(id) {
		return false
	}
	b.g.addNode(id)
	return true
}

// Stats returns the counts accumulated so far.
func (b *Builder) Stats() BuildStats { return b.stats }

// Build returns an immutable snapshot of the records added so far. The
// builder stays usable.
func (b *Builder) Build() *Graph {
	return b.g.seal().clone().seal()
}

// Build is a shorthand for a Builder over records restricted to allow.
func Build(records []Record, allow []string) (*Graph, BuildStats) {
	b := NewBuilder(WithAllowlist(allow))
	b.AddAll(records)
	return b.Build(), b.Stats()
}
