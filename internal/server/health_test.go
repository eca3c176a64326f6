package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func get(t *testing.T, s *HealthServer, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return w, resp
}

func healthy(ctx context.Context) HealthCheck {
	return HealthCheck{Status: HealthStatusHealthy, Message: "all good"}
}

func TestHealthServer_HandleHealth(t *testing.T) {
	s := NewHealthServer("1.0.0", nil)
	s.RegisterCheck("test", healthy)

	w, resp := get(t, s, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", resp.Version)
	}
	if len(resp.Checks) != 1 || resp.Checks[0].Name != "test" {
		t.Fatalf("unexpected checks: %+v", resp.Checks)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected application/json, got %s", w.Header().Get("Content-Type"))
	}
}

func TestHealthServer_HandleHealth_Unhealthy(t *testing.T) {
	s := NewHealthServer("", nil)
	s.RegisterCheck("neo4j", Neo4jHealthChecker(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	w, resp := get(t, s, "/healthz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if resp.Status != HealthStatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", resp.Status)
	}
}

func TestHealthServer_HandleHealth_Degraded(t *testing.T) {
	s := NewHealthServer("", nil)
	s.RegisterCheck("temporal", TemporalHealthChecker(func(ctx context.Context) error { return nil }))
	s.RegisterCheck("qdrant", QdrantHealthChecker(func(ctx context.Context) error {
		return errors.New("timeout")
	}))

	w, resp := get(t, s, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("degraded should still return 200, got %d", w.Code)
	}
	if resp.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", resp.Status)
	}
	// checks are reported in name order
	if resp.Checks[0].Name != "qdrant" || resp.Checks[1].Name != "temporal" {
		t.Fatalf("unexpected check order: %+v", resp.Checks)
	}
}

func TestHealthServer_Ready(t *testing.T) {
	s := NewHealthServer("", nil)

	w, _ := get(t, s, "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before SetReady, got %d", w.Code)
	}

	s.SetReady(true)
	w, _ = get(t, s, "/readyz")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", w.Code)
	}

	s.RegisterCheck("temporal", TemporalHealthChecker(func(ctx context.Context) error {
		return errors.New("unreachable")
	}))
	w, _ = get(t, s, "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with a failing critical check, got %d", w.Code)
	}
}

func TestHealthServer_Live(t *testing.T) {
	s := NewHealthServer("", nil)
	s.RegisterCheck("neo4j", Neo4jHealthChecker(func(ctx context.Context) error {
		return errors.New("down")
	}))

	w, resp := get(t, s, "/livez")
	if w.Code != http.StatusOK || resp.Status != HealthStatusHealthy {
		t.Fatalf("liveness must not depend on checks, got %d %s", w.Code, resp.Status)
	}
}

func TestHealthServer_Mount(t *testing.T) {
	s := NewHealthServer("", nil)
	s.Mount("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("castgraph_analysis_runs_total 1\n"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "castgraph_analysis_runs_total 1\n" {
		t.Fatalf("unexpected metrics response: %d %q", w.Code, w.Body.String())
	}
}

func TestHealthServer_CheckTimeout(t *testing.T) {
	s := NewHealthServer("", nil)
	s.CheckTimeout = 20 * time.Millisecond
	s.RegisterCheck("slow", TemporalHealthChecker(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	resp := s.Check(context.Background())
	if resp.Status != HealthStatusUnhealthy {
		t.Fatalf("expected timed-out check to be unhealthy, got %s", resp.Status)
	}
}

func TestHealthServer_Serve(t *testing.T) {
	s := NewHealthServer("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestDependencyChecker(t *testing.T) {
	ok := DependencyChecker("Store", false, func(ctx context.Context) error { return nil })(context.Background())
	if ok.Status != HealthStatusHealthy {
		t.Fatalf("expected healthy, got %s", ok.Status)
	}

	bad := DependencyChecker("Store", false, func(ctx context.Context) error {
		return errors.New("nope")
	})(context.Background())
	if bad.Status != HealthStatusDegraded || bad.Message != "Store connection failed: nope" {
		t.Fatalf("unexpected check: %+v", bad)
	}
}
