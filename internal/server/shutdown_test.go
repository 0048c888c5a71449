package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"driver-compare/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: 5 * time.Second,
	}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGracefulServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	gs := NewGracefulServer(&http.Server{Handler: mux}, quietLogger(), testConfig())

	var order []int
	gs.RegisterShutdownHook(func(ctx context.Context) error { order = append(order, 1); return nil })
	gs.RegisterShutdownHook(func(ctx context.Context) error { order = append(order, 2); return errors.New("janitor stuck") })
	gs.RegisterShutdownHook(func(ctx context.Context) error { order = append(order, 3); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "janitor stuck") {
			t.Fatalf("expected the failing hook to be reported, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("hooks ran as %v, want [1 2 3]", order)
	}
}

func TestGracefulServer_ServerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_ = ln.Close()

	gs := NewGracefulServer(&http.Server{}, quietLogger(), testConfig())
	if err := gs.Serve(context.Background(), ln); err == nil {
		t.Error("Serve on a closed listener should fail")
	}
}
