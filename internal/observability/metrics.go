package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for analysis runs.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// AnalysisMetrics contains all castgraph metrics. Each instance owns its
// registry so tests and workers do not collide on global state.
type AnalysisMetrics struct {
	Registry *prometheus.Registry

	// Analysis metrics
	AnalysisRunsTotal  *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	NotConvergedTotal  *prometheus.CounterVec
	CommunitiesFound   *prometheus.HistogramVec
	CommunityQuality   *prometheus.GaugeVec
	SectionsAnalyzed   prometheus.Counter
	AnalysesInProgress prometheus.Gauge

	// Graph metrics
	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge

	// Store metrics
	StoreOpsTotal   *prometheus.CounterVec
	StoreOpDuration *prometheus.HistogramVec
}

// NewAnalysisMetrics creates castgraph metrics on a fresh registry.
func NewAnalysisMetrics() *AnalysisMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &AnalysisMetrics{
		Registry: reg,

		AnalysisRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "castgraph_analysis_runs_total",
				Help: "Total analysis runs by analysis and outcome",
			},
			[]string{"analysis", "outcome"},
		),
		AnalysisDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "castgraph_analysis_duration_seconds",
				Help:    "Analysis duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"analysis"},
		),
		NotConvergedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "castgraph_not_converged_total",
				Help: "Iterative solvers that hit their iteration cap",
			},
			[]string{"analysis"},
		),
		CommunitiesFound: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "castgraph_communities_found",
				Help:    "Number of communities per detection run",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
			},
			[]string{"algorithm"},
		),
		CommunityQuality: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "castgraph_community_modularity",
				Help: "Modularity of the latest partition",
			},
			[]string{"algorithm"},
		),
		SectionsAnalyzed: f.NewCounter(
			prometheus.CounterOpts{
				Name: "castgraph_sections_analyzed_total",
				Help: "Narrative sections analysed by batch workflows",
			},
		),
		AnalysesInProgress: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "castgraph_analyses_in_progress",
				Help: "Analyses currently running",
			},
		),

		GraphNodes: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "castgraph_graph_nodes",
				Help: "Nodes in the latest built graph",
			},
		),
		GraphEdges: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "castgraph_graph_edges",
				Help: "Edges in the latest built graph",
			},
		),

		StoreOpsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "castgraph_store_operations_total",
				Help: "Store operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		StoreOpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "castgraph_store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *AnalysisMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// RecordAnalysis records one analysis run.
func (m *AnalysisMetrics) RecordAnalysis(analysis, outcome string, duration time.Duration) {
	m.AnalysisRunsTotal.WithLabelValues(analysis, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(analysis).Observe(duration.Seconds())
}

// RecordNotConverged counts a solver that stopped at its cap.
func (m *AnalysisMetrics) RecordNotConverged(analysis string) {
	m.NotConvergedTotal.WithLabelValues(analysis).Inc()
}

// RecordCommunities records the size and quality of a partition.
func (m *AnalysisMetrics) RecordCommunities(algorithm string, count int, modularity float64) {
	m.CommunitiesFound.WithLabelValues(algorithm).Observe(float64(count))
	m.CommunityQuality.WithLabelValues(algorithm).Set(modularity)
}

// SetGraphSize records the size of the graph under analysis.
func (m *AnalysisMetrics) SetGraphSize(nodes, edges int) {
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// RecordStoreOp records a call to Neo4j or Qdrant.
func (m *AnalysisMetrics) RecordStoreOp(backend, operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOpsTotal.WithLabelValues(backend, operation, status).Inc()
	m.StoreOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// Global metrics instance
var globalMetrics *AnalysisMetrics
var metricsOnce sync.Once

// Metrics returns the global metrics instance.
func Metrics() *AnalysisMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewAnalysisMetrics()
	})
	return globalMetrics
}
