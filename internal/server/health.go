// Package server provides the worker's HTTP endpoints: health checks,
// readiness and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of checking one dependency.
type HealthCheck struct {
	Name     string            `json:"name"`
	Status   HealthStatus      `json:"status"`
	Message  string            `json:"message,omitempty"`
	Latency  string            `json:"latency,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker performs a health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves /healthz, /readyz, /livez and any mounted handler
// such as /metrics.
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	version string
	ready   bool
	mux     *http.ServeMux
	logger  *slog.Logger

	// CheckTimeout bounds a full round of checks.
	CheckTimeout time.Duration
}

// NewHealthServer creates a health server that is live but not ready.
func NewHealthServer(version string, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HealthServer{
		checks:       make(map[string]HealthChecker),
		version:      version,
		mux:          http.NewServeMux(),
		logger:       logger.With("component", "health"),
		CheckTimeout: 5 * time.Second,
	}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	s.mux.HandleFunc("/livez", s.handleLive)
	return s
}

// RegisterCheck adds a health check.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// SetReady marks the worker as ready to take tasks.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Mount adds another handler, e.g. the metrics endpoint.
func (s *HealthServer) Mount(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the server's routes.
func (s *HealthServer) Handler() http.Handler {
	return s.mux
}

// Serve listens on addr until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = ":9090"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("health server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Check runs every registered check concurrently and aggregates the
// result. Checks are reported in name order.
func (s *HealthServer) Check(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, s.CheckTimeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			check := checks[name](ctx)
			check.Name = name
			check.Latency = time.Since(start).Round(time.Microsecond).String()
			results[i] = check
			return nil
		})
	}
	_ = g.Wait()

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    results,
	}
	for _, check := range results {
		if check.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy {
			response.Status = HealthStatusDegraded
		}
	}
	return response
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := s.Check(r.Context())
	statusCode := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
		s.logger.Warn("health check failed", "checks", len(response.Checks))
	}
	s.writeJSON(w, statusCode, response)
}

// handleReady reports ready only once SetReady(true) was called and no
// check is unhealthy.
func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	response := HealthResponse{Status: HealthStatusUnhealthy, Timestamp: time.Now().UTC()}
	if ready {
		response = s.Check(r.Context())
	}
	if response.Status == HealthStatusUnhealthy {
		s.writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
	})
}

func (s *HealthServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write health response", "error", err)
	}
}

// Common health checkers

// DependencyChecker checks a dependency. A failing critical dependency
// is unhealthy; a failing optional one only degrades the worker.
func DependencyChecker(label string, critical bool, checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			status := HealthStatusDegraded
			if critical {
				status = HealthStatusUnhealthy
			}
			return HealthCheck{
				Status:  status,
				Message: label + " connection failed: " + err.Error(),
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: label + " connection OK",
		}
	}
}

// TemporalHealthChecker checks Temporal connectivity. The worker cannot
// run without it.
func TemporalHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return DependencyChecker("Temporal", true, checkFn)
}

// Neo4jHealthChecker checks the graph store.
func Neo4jHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return DependencyChecker("Neo4j", true, checkFn)
}

// QdrantHealthChecker checks the role-vector store, which only the roles
// command needs.
func QdrantHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return DependencyChecker("Qdrant", false, checkFn)
}
