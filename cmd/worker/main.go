package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/castgraph/internal/config"
	graphneo4j "github.com/efebarandurmaz/castgraph/internal/graph/neo4j"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/efebarandurmaz/castgraph/internal/server"
	temporalmod "github.com/efebarandurmaz/castgraph/internal/temporal"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config load failed (%v), using defaults\n", err)
		cfg = config.Defaults()
	}

	logger := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := server.NotifyContext(context.Background())
	defer stop()

	shutdown := server.NewShutdownHandler(0, logger)
	health := server.NewHealthServer(version, logger)

	tp, err := observability.InitTracing(ctx, &cfg.Tracing)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	}

	metrics := observability.Metrics()
	health.Mount("/metrics", metrics.Handler())

	// Without Neo4j the worker still analyzes sections; only batches
	// that ask for a sync fail.
	deps := &temporalmod.Dependencies{Logger: logger, Metrics: metrics}
	repo, err := graphneo4j.NewNeo4j(ctx, graphneo4j.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	}, logger)
	if err != nil {
		logger.Warn("graph store unavailable, sync disabled", "uri", cfg.Graph.URI, "error", err)
	} else {
		deps.Graph = repo
		health.RegisterCheck("neo4j", server.Neo4jHealthChecker(repo.Ping))
		shutdown.Register(server.StoreShutdownHook("neo4j", repo.Close))
	}
	temporalmod.SetDependencies(deps)

	c, err := temporalmod.Dial(cfg.Temporal.Host, cfg.Temporal.Namespace, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
		_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
		return err
	}))

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		return err
	}
	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))

	serveErr := make(chan error, 1)
	go func() { serveErr <- health.Serve(ctx, cfg.Server.Addr) }()
	health.SetReady(true)

	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "addr", cfg.Server.Addr, "version", version)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("health server stopped", "error", err)
		}
	}
	health.SetReady(false)
	stop()
	return shutdown.Run()
}
