package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/castgraph/internal/analysis"
	"github.com/efebarandurmaz/castgraph/internal/graph"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/progression"
)

// SectionInput is one section handed to AnalyzeSectionActivity.
type SectionInput struct {
	Index   int
	Name    string
	Records []network.Record
	Options progression.Options
}

// SectionResult is the serializable result of one section.
type SectionResult struct {
	Index   int
	Name    string
	Nodes   int
	Edges   int
	Values  map[string]float64
	Warning string
}

// SyncInput asks SyncActivity to persist the whole work.
type SyncInput struct {
	Dataset string
	Records []network.Record
	Options progression.Options
}

// SyncResult reports what SyncActivity stored.
type SyncResult struct {
	Nodes int
	Edges int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Logger  *slog.Logger
	Metrics *observability.AnalysisMetrics
	// Graph is optional; SyncActivity fails without it.
	Graph graph.Repository
}

var deps = &Dependencies{}

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	if d == nil {
		d = &Dependencies{}
	}
	deps = d
}

func logger() *slog.Logger {
	if deps.Logger != nil {
		return deps.Logger
	}
	return slog.Default()
}

func metrics() *observability.AnalysisMetrics {
	if deps.Metrics != nil {
		return deps.Metrics
	}
	return observability.Metrics()
}

// nonRetryable marks invalid input so Temporal does not retry it.
func nonRetryable(err error) error {
	if analysis.IsInvalid(err) {
		return sdktemporal.NewNonRetryableApplicationError(err.Error(), "InvalidInput", err)
	}
	return err
}

// AnalyzeSectionActivity builds the section's graph and measures the
// requested centrality on it.
func AnalyzeSectionActivity(ctx context.Context, in SectionInput) (SectionResult, error) {
	if err := in.Options.Validate(); err != nil {
		return SectionResult{}, nonRetryable(err)
	}
	m := metrics()
	m.AnalysesInProgress.Inc()
	defer m.AnalysesInProgress.Dec()

	ctx, span := observability.StartSectionSpan(ctx, in.Name)
	defer span.End()
	start := time.Now()

	g, stats := network.Build(in.Records, in.Options.Allow)
	_, aspan := observability.StartAnalysisSpan(ctx, in.Options.Metric, g.NodeCount(), g.EdgeCount())
	values, warn, err := progression.Measure(g, in.Options)
	if err != nil {
		observability.RecordError(aspan, err)
		aspan.End()
		m.RecordAnalysis(in.Options.Metric, observability.OutcomeFailed, time.Since(start))
		return SectionResult{}, nonRetryable(fmt.Errorf("section %q: %w", in.Name, err))
	}
	observability.RecordAnalysisResult(aspan, warn == "", 0, len(values))
	aspan.End()

	outcome := observability.OutcomeOK
	if warn != "" {
		outcome = observability.OutcomeDegraded
		m.RecordNotConverged(in.Options.Metric)
	}
	m.RecordAnalysis(in.Options.Metric, outcome, time.Since(start))
	m.SectionsAnalyzed.Inc()

	logger().Info("section analyzed",
		"section", in.Name,
		"analysis", in.Options.Metric,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"rejected", stats.Rejected,
		"duration", time.Since(start))

	return SectionResult{
		Index:   in.Index,
		Name:    in.Name,
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Values:  values,
		Warning: warn,
	}, nil
}

// SummarizeActivity assembles per-section results, in section order,
// into a progression.
func SummarizeActivity(ctx context.Context, metric string, results []SectionResult) (*progression.Progression, error) {
	names := make([]string, len(results))
	points := make([]map[string]float64, len(results))
	var warnings []string
	for i, r := range results {
		if r.Index != i {
			return nil, fmt.Errorf("section %q arrived at position %d, want %d", r.Name, i, r.Index)
		}
		names[i] = r.Name
		points[i] = r.Values
		if r.Warning != "" {
			warnings = append(warnings, fmt.Sprintf("section %q: %s", r.Name, r.Warning))
		}
	}
	p := progression.FromValues(metric, names, points)
	p.Warnings = warnings
	logger().Info("progression summarized", "analysis", metric, "sections", len(results), "characters", len(p.Series))
	return p, nil
}

// SyncActivity stores the whole work and its centrality in the graph
// repository.
func SyncActivity(ctx context.Context, in SyncInput) (SyncResult, error) {
	if deps.Graph == nil {
		return SyncResult{}, sdktemporal.NewNonRetryableApplicationError("no graph repository configured", "NoRepository", nil)
	}
	g, _ := network.Build(in.Records, in.Options.Allow)
	values, warn, err := progression.Measure(g, in.Options)
	if err != nil {
		return SyncResult{}, nonRetryable(err)
	}
	if warn != "" {
		logger().Warn("stored degraded scores", "dataset", in.Dataset, "analysis", in.Options.Metric, "reason", warn)
	}
	err = graph.Save(ctx, deps.Graph, in.Dataset, graph.Snapshot{
		Graph:  g,
		Scores: map[string]map[string]float64{in.Options.Metric: values},
	})
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Nodes: g.NodeCount(), Edges: g.EdgeCount()}, nil
}
