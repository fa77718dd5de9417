package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func testServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), Config{Port: 0, ShutdownTimeout: time.Second}, logger)
}

func TestShutdown_ComponentsInReverseOrder(t *testing.T) {
	t.Parallel()

	srv := testServer()

	var order []string
	for _, name := range []string{"mail_worker", "mail_publisher", "cache"} {
		name := name
		srv.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	want := []string{"cache", "mail_publisher", "mail_worker"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdown_ContinuesAfterComponentError(t *testing.T) {
	t.Parallel()

	srv := testServer()
	boom := errors.New("boom")

	var ranFirst bool
	srv.OnShutdown("first", func(context.Context) error {
		ranFirst = true
		return nil
	})
	srv.OnShutdown("second", func(context.Context) error { return boom })

	err := srv.Shutdown()
	if !errors.Is(err, boom) {
		t.Fatalf("Shutdown() error = %v, want %v", err, boom)
	}
	if !ranFirst {
		t.Error("components registered before a failing one must still stop")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := testServer()
	stopped := make(chan struct{})
	srv.OnShutdown("worker", func(context.Context) error {
		close(stopped)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-stopped:
	default:
		t.Error("registered component was not shut down")
	}
}
