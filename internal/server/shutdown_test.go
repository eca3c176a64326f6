package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewShutdownHandler(t *testing.T) {
	h := NewShutdownHandler(0, nil)
	if h == nil {
		t.Fatal("expected non-nil handler")
	}
	if h.timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", h.timeout)
	}

	h = NewShutdownHandler(10*time.Second, nil)
	if h.timeout != 10*time.Second {
		t.Fatalf("expected 10s timeout, got %v", h.timeout)
	}
}

func TestShutdownHandler_HookOrder(t *testing.T) {
	h := NewShutdownHandler(time.Second, nil)

	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	h.Register(TracingShutdownHook(record("tracing")))
	h.Register(StoreShutdownHook("neo4j", record("neo4j")))
	h.Register(TemporalWorkerShutdownHook(func() { order = append(order, "worker") }))
	h.Register(StoreShutdownHook("qdrant", record("qdrant")))

	if err := h.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "worker,neo4j,qdrant,tracing"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("hook order = %s, want %s", got, want)
	}
}

func TestShutdownHandler_HookWithError(t *testing.T) {
	h := NewShutdownHandler(time.Second, nil)

	called := false
	h.Register(StoreShutdownHook("neo4j", func(context.Context) error {
		return errors.New("close failed")
	}))
	h.Register(TracingShutdownHook(func(context.Context) error {
		called = true
		return nil
	}))

	err := h.Run()
	if err == nil || !strings.Contains(err.Error(), "neo4j: close failed") {
		t.Fatalf("expected joined hook error, got %v", err)
	}
	if !called {
		t.Fatal("later hooks should still run after a failure")
	}
}

func TestShutdownHandler_RunOnce(t *testing.T) {
	h := NewShutdownHandler(time.Second, nil)
	calls := 0
	h.Register(TracingShutdownHook(func(context.Context) error {
		calls++
		return nil
	}))

	h.Run()
	h.Run()
	if calls != 1 {
		t.Fatalf("expected hooks to run once, ran %d times", calls)
	}
}

func TestShutdownHandler_Timeout(t *testing.T) {
	h := NewShutdownHandler(10*time.Millisecond, nil)
	h.Register(StoreShutdownHook("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	if err := h.Run(); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNotifyContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := NotifyContext(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected child context to follow its parent")
	}
}
