// Package neo4j stores character networks in Neo4j as
// (:Character)-[:INTERACTS]->(:Character) graphs.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/castgraph/internal/community"
	"github.com/efebarandurmaz/castgraph/internal/graph"
	"github.com/efebarandurmaz/castgraph/internal/network"
	"github.com/efebarandurmaz/castgraph/internal/observability"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	backend   = "neo4j"
	batchSize = 500
)

const (
	constraintCypher = "CREATE CONSTRAINT character_key IF NOT EXISTS " +
		"FOR (c:Character) REQUIRE (c.dataset, c.name) IS UNIQUE"

	clearEdgesCypher = "MATCH (:Character {dataset: $dataset})-[r:INTERACTS]->() DELETE r"

	mergeNodesCypher = "UNWIND $names AS name " +
		"MERGE (:Character {dataset: $dataset, name: name})"

	mergeEdgesCypher = "UNWIND $rows AS row " +
		"MATCH (a:Character {dataset: $dataset, name: row.source}) " +
		"MATCH (b:Character {dataset: $dataset, name: row.target}) " +
		"MERGE (a)-[r:INTERACTS]->(b) SET r.weight = row.weight"

	setPropsCypher = "UNWIND $rows AS row " +
		"MATCH (c:Character {dataset: $dataset, name: row.name}) " +
		"SET c += row.props"

	loadEdgesCypher = "MATCH (a:Character {dataset: $dataset})-[r:INTERACTS]->(b:Character) " +
		"RETURN a.name AS source, b.name AS target, r.weight AS weight " +
		"ORDER BY source, target"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	metrics  *observability.AnalysisMetrics
}

// Config holds connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	MaxConnections    int
	ConnectionTimeout time.Duration
}

// NewNeo4j connects to Neo4j, verifies connectivity and ensures the
// character uniqueness constraint.
func NewNeo4j(ctx context.Context, cfg Config, logger *slog.Logger) (*Neo4jRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnections > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnections
			}
			c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	r := &Neo4jRepository{
		driver:   driver,
		database: cfg.Database,
		logger:   logger.With("component", "neo4j"),
		metrics:  observability.Metrics(),
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if err := r.Ping(verifyCtx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	if err := r.write(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, constraintCypher, nil)
		return err
	}); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j constraint: %w", err)
	}
	r.logger.Info("connected", "uri", cfg.URI, "database", cfg.Database)
	return r, nil
}

// Ping verifies the server is reachable.
func (r *Neo4jRepository) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// SaveGraph replaces the dataset's interactions in a single transaction.
// Characters are merged, never deleted, so stored scores survive a
// resync.
func (r *Neo4jRepository) SaveGraph(ctx context.Context, dataset string, g *network.Graph) (err error) {
	ctx, done := r.observe(ctx, "save_graph")
	defer func() { done(g.NodeCount()+g.EdgeCount(), err) }()

	names := g.Nodes()
	edges := g.Edges()
	rows := make([]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"source": e.From, "target": e.To, "weight": e.Weight}
	}

	err = r.write(ctx, func(tx neo4j.ManagedTransaction) error {
		if _, err := tx.Run(ctx, clearEdgesCypher, map[string]any{"dataset": dataset}); err != nil {
			return err
		}
		for _, chunk := range chunks(toAny(names), batchSize) {
			if _, err := tx.Run(ctx, mergeNodesCypher, map[string]any{"dataset": dataset, "names": chunk}); err != nil {
				return err
			}
		}
		for _, chunk := range chunks(rows, batchSize) {
			if _, err := tx.Run(ctx, mergeEdgesCypher, map[string]any{"dataset": dataset, "rows": chunk}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store dataset %s: %w", dataset, err)
	}
	r.logger.Debug("graph saved", "dataset", dataset, "nodes", len(names), "edges", len(edges))
	return nil
}

// SaveScores sets graph.ScoreProperty(metric) on each scored character.
func (r *Neo4jRepository) SaveScores(ctx context.Context, dataset, metric string, values map[string]float64) error {
	key := graph.ScoreProperty(metric)
	rows := make([]any, 0, len(values))
	for name, v := range values {
		rows = append(rows, map[string]any{"name": name, "props": map[string]any{key: v}})
	}
	return r.setProps(ctx, "save_scores", dataset, rows)
}

// SaveCommunities sets graph.CommunityProperty(algorithm) on each member.
func (r *Neo4jRepository) SaveCommunities(ctx context.Context, dataset, algorithm string, p community.Partition) error {
	key := graph.CommunityProperty(algorithm)
	rows := make([]any, 0, len(p))
	for name, id := range p {
		rows = append(rows, map[string]any{"name": name, "props": map[string]any{key: int64(id)}})
	}
	return r.setProps(ctx, "save_communities", dataset, rows)
}

func (r *Neo4jRepository) setProps(ctx context.Context, op, dataset string, rows []any) (err error) {
	ctx, done := r.observe(ctx, op)
	defer func() { done(len(rows), err) }()

	err = r.write(ctx, func(tx neo4j.ManagedTransaction) error {
		for _, chunk := range chunks(rows, batchSize) {
			if _, err := tx.Run(ctx, setPropsCypher, map[string]any{"dataset": dataset, "rows": chunk}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s for dataset %s: %w", op, dataset, err)
	}
	return nil
}

func (r *Neo4jRepository) LoadRecords(ctx context.Context, dataset string) (out []network.Record, err error) {
	ctx, done := r.observe(ctx, "load_records")
	defer func() { done(len(out), err) }()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, loadEdgesCypher, map[string]any{"dataset": dataset})
		if err != nil {
			return nil, err
		}
		var rs []network.Record
		for records.Next(ctx) {
			rec := records.Record()
			source, _ := rec.Get("source")
			target, _ := rec.Get("target")
			weight, _ := rec.Get("weight")
			row := network.Record{Weight: 1}
			row.Source, _ = source.(string)
			row.Target, _ = target.(string)
			switch w := weight.(type) {
			case float64:
				row.Weight = w
			case int64:
				row.Weight = float64(w)
			}
			rs = append(rs, row)
		}
		return rs, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", dataset, err)
	}
	out, _ = result.([]network.Record)
	return out, nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *Neo4jRepository) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: r.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(tx)
	})
	return err
}

// observe opens a store span and returns a callback that ends it and
// records the operation's metrics.
func (r *Neo4jRepository) observe(ctx context.Context, op string) (context.Context, func(items int, err error)) {
	start := time.Now()
	ctx, span := observability.StartStoreSpan(ctx, backend, op)
	return ctx, func(items int, err error) {
		defer span.End()
		r.metrics.RecordStoreOp(backend, op, time.Since(start), err)
		if err != nil {
			observability.RecordError(span, err)
			r.logger.Error("store operation failed", "operation", op, "error", err)
			return
		}
		observability.RecordStoreResult(span, items)
	}
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func toAny(names []string) []any {
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

var _ graph.Repository = (*Neo4jRepository)(nil)
