// Package run wires configuration, input loading and the analysis
// engines together for the CLI. Every analysis is traced, timed into
// the run summary and the Prometheus registry, and logged.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/config"
	"github.com/efebarandurmaz/castgraph/internal/graph"
	"github.com/efebarandurmaz/castgraph/internal/metrics"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/records"
	"github.com/efebarandurmaz/castgraph/internal/vector"
)

// ErrNoEdges is returned by Load when no edge list is configured.
var ErrNoEdges = errors.New("no edge list configured")

// Input is everything an analysis reads: the raw records, the optional
// character table, and the graph built from them.
type Input struct {
	Dataset    string
	Records    []network.Record
	Characters *records.Characters
	Sections   []records.Section
	Graph      *network.Graph
	Build      network.BuildStats
}

// Allow returns the valid-entity list, or nil when no character table
// was loaded.
func (in *Input) Allow() []string {
	if in.Characters == nil {
		return nil
	}
	return in.Characters.Names
}

// Runner runs analyses over an Input.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	summary *metrics.RunMetrics
	prom    *observability.AnalysisMetrics
	graphs  graph.Repository
	vectors vector.Repository
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRunMetrics sets the per-run summary analyses are recorded into.
func WithRunMetrics(m *metrics.RunMetrics) Option {
	return func(r *Runner) { r.summary = m }
}

// WithAnalysisMetrics sets the Prometheus metrics. The default is the
// process-wide observability.Metrics().
func WithAnalysisMetrics(m *observability.AnalysisMetrics) Option {
	return func(r *Runner) { r.prom = m }
}

// WithGraphRepository enables Sync.
func WithGraphRepository(repo graph.Repository) Option {
	return func(r *Runner) { r.graphs = repo }
}

// WithVectorRepository enables role indexing and search.
func WithVectorRepository(repo vector.Repository) Option {
	return func(r *Runner) { r.vectors = repo }
}

// New creates a Runner. A nil cfg uses config.Defaults().
func New(cfg *config.Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Defaults()
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "run")
	if r.summary == nil {
		r.summary = metrics.New()
	}
	if r.prom == nil {
		r.prom = observability.Metrics()
	}
	return r
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Summary returns the per-run metrics.
func (r *Runner) Summary() *metrics.RunMetrics { return r.summary }

// Load reads the configured edge list and, when set, the character
// table. An empty dataset is named after the edge file.
func (r *Runner) Load(ctx context.Context, dataset string) (*Input, error) {
	data := r.cfg.Data
	if data.Edges == "" {
		return nil, ErrNoEdges
	}
	_, span := observability.StartStoreSpan(ctx, "csv", "load")
	defer span.End()

	recs, err := records.ReadEdgesFile(data.Edges, data.Columns)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("load edges: %w", err)
	}
	var chars *records.Characters
	if data.Characters != "" {
		if chars, err = records.ReadCharactersFile(data.Characters, data.NameColumn); err != nil {
			observability.RecordError(span, err)
			return nil, fmt.Errorf("load characters: %w", err)
		}
	}
	observability.RecordStoreResult(span, len(recs))

	if dataset == "" {
		dataset = DatasetName(data.Edges)
	}
	in := r.Prepare(dataset, recs, chars)
	r.summary.CollectInput(data.Edges, in.Build, in.Graph)
	return in, nil
}

// Prepare builds the graph and sections for already parsed records.
func (r *Runner) Prepare(dataset string, recs []network.Record, chars *records.Characters) *Input {
	in := &Input{
		Dataset:    dataset,
		Records:    recs,
		Characters: chars,
		Sections:   records.Sections(recs),
	}
	in.Graph, in.Build = network.Build(recs, in.Allow())

	r.summary.SetSections(len(in.Sections))
	if chars != nil {
		r.summary.SetCharacters(len(chars.Names))
	}
	r.prom.SetGraphSize(in.Graph.NodeCount(), in.Graph.EdgeCount())
	if in.Build.Rejected > 0 {
		r.summary.Warn(fmt.Sprintf("%d records named characters outside the character table", in.Build.Rejected))
	}

	r.logger.Info("graph built",
		"dataset", dataset,
		"records", len(recs),
		"nodes", in.Graph.NodeCount(),
		"edges", in.Graph.EdgeCount(),
		"rejected", in.Build.Rejected,
		"self_loops", in.Build.SelfLoops,
		"sections", len(in.Sections))
	return in
}

// DatasetName derives a dataset name from an edge file path.
func DatasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outcome is what an analysis reports back to observe.
type outcome struct {
	// degraded holds a reason when the result is usable but incomplete.
	degraded string

	converged  bool
	iterations int
	items      int
}

func succeeded(items int) outcome { return outcome{converged: true, items: items} }

// observe runs one analysis inside a span and records its duration and
// outcome in both metric sinks.
func (r *Runner) observe(ctx context.Context, name string, in *Input, fn func(ctx context.Context) (outcome, error)) error {
	r.prom.AnalysesInProgress.Inc()
	defer r.prom.AnalysesInProgress.Dec()

	ctx, span := observability.StartAnalysisSpan(ctx, name, in.Graph.NodeCount(), in.Graph.EdgeCount())
	defer span.End()
	start := time.Now()

	out, err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordError(span, err)
		r.prom.RecordAnalysis(name, observability.OutcomeFailed, elapsed)
		r.summary.AddAnalysis(name, elapsed, observability.OutcomeFailed, analysis.Classify(err).String())
		r.logger.Error("analysis failed", "analysis", name, "error", err, "duration", elapsed)
		return fmt.Errorf("%s: %w", name, err)
	}
	observability.RecordAnalysisResult(span, out.converged, out.iterations, out.items)

	result := observability.OutcomeOK
	if out.degraded != "" {
		result = observability.OutcomeDegraded
		r.summary.Warn(name + ": " + out.degraded)
	}
	if !out.converged && out.degraded != "" {
		r.prom.RecordNotConverged(name)
	}
	r.prom.RecordAnalysis(name, result, elapsed)
	r.summary.AddAnalysis(name, elapsed, result, out.degraded)
	r.logger.Info("analysis finished",
		"analysis", name,
		"outcome", result,
		"items", out.items,
		"nodes", in.Graph.NodeCount(),
		"edges", in.Graph.EdgeCount(),
		"duration", elapsed)
	return nil
}
