package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/efebarandurmaz/castgraph/internal/config"
	graphneo4j "github.com/efebarandurmaz/castgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/castgraph/internal/metrics"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/report"
	"github.com/efebarandurmaz/castgraph/internal/run"
	"github.com/efebarandurmaz/castgraph/internal/vector"
	"github.com/efebarandurmaz/castgraph/internal/vector/qdrant"
)

// app holds the shared flags and the resources built from them.
type app struct {
	configPath string
	edges      string
	characters string
	section    string
	dataset    string
	logLevel   string
	logFormat  string
	jsonOut    bool
	summary    bool
	fromStore  bool
	top        int

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.RunMetrics
	printer *report.Printer
	out     io.Writer
	tracing *observability.TracerProvider
	closers []func(context.Context) error
}

// setup loads configuration, applies flag overrides and starts logging
// and tracing. Results go to the command's output.
func (a *app) setup(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Defaults()
	}
	if a.edges != "" {
		cfg.Data.Edges = a.edges
	}
	if a.characters != "" {
		cfg.Data.Characters = a.characters
	}
	if a.section != "" {
		cfg.Data.Columns.Section = a.section
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.top == 0 {
		a.top = cfg.Analysis.Top
	}
	a.cfg = cfg

	a.logger = observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)

	if a.tracing, err = observability.InitTracing(ctx, &cfg.Tracing); err != nil {
		a.logger.Warn("tracing disabled", "error", err)
	}
	a.metrics = metrics.New()
	a.out = out
	a.printer = report.NewPrinter(out, a.jsonOut)
	return nil
}

// runner creates a Runner sharing the app's logger and run metrics.
func (a *app) runner(opts ...run.Option) *run.Runner {
	opts = append([]run.Option{
		run.WithLogger(a.logger),
		run.WithRunMetrics(a.metrics),
	}, opts...)
	return run.New(a.cfg, opts...)
}

// input loads the analysis input from CSV, or from the graph store
// with --from-store.
func (a *app) input(ctx context.Context) (*run.Runner, *run.Input, error) {
	if !a.fromStore {
		r := a.runner()
		in, err := r.Load(ctx, a.dataset)
		return r, in, err
	}
	if a.dataset == "" {
		return nil, nil, fmt.Errorf("--from-store needs --dataset")
	}
	r, err := a.graphRunner(ctx)
	if err != nil {
		return nil, nil, err
	}
	in, err := r.Stored(ctx, a.dataset)
	if err != nil {
		return nil, nil, err
	}
	if in.Graph.NodeCount() == 0 {
		return nil, nil, fmt.Errorf("dataset %q is not in the graph store", a.dataset)
	}
	return r, in, nil
}

// graphRunner connects to Neo4j and returns a Runner that can sync.
func (a *app) graphRunner(ctx context.Context) (*run.Runner, error) {
	g := a.cfg.Graph
	repo, err := graphneo4j.NewNeo4j(ctx, graphneo4j.Config{
		URI:      g.URI,
		Username: g.Username,
		Password: g.Password,
		Database: g.Database,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to graph store: %w", err)
	}
	a.closers = append(a.closers, repo.Close)
	return a.runner(run.WithGraphRepository(repo)), nil
}

// vectorRunner connects to Qdrant, ensures the role collection, and
// returns a Runner that can index and search roles.
func (a *app) vectorRunner(ctx context.Context) (*run.Runner, error) {
	v := a.cfg.Vector
	repo, err := qdrant.NewQdrant(ctx, v.Host, v.Port, v.Collection, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to vector store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return repo.Close() })
	if err := repo.EnsureCollection(ctx, len(vector.Features)); err != nil {
		return nil, err
	}
	return a.runner(run.WithVectorRepository(repo)), nil
}

// finish closes stores, flushes traces and prints the run summary when
// asked to.
func (a *app) finish(runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
	if a.metrics == nil || !a.summary {
		return
	}
	var errs []string
	if runErr != nil {
		errs = append(errs, runErr.Error())
	}
	a.metrics.Finish(errs)
	if a.jsonOut {
		data, _ := a.metrics.JSON()
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		a.metrics.PrintSummary(os.Stderr)
	}
}
