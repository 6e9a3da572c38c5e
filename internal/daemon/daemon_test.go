package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"scout/internal/broadcast"
	"scout/internal/config"
	"scout/internal/daemon"
	"scout/internal/orchestrator"
	"scout/internal/progress"
	"scout/internal/session"
	"scout/internal/testsupport"
	"scout/internal/watchfs"
	"scout/internal/worker"
)

type idleRunner struct{}

func (idleRunner) Run(ctx context.Context, _ worker.Job) error {
	<-ctx.Done()
	return ctx.Err()
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	registry := session.NewRegistry(cfg.Workflow.TTL(), cfg.Workflow.MaxSessions, store, nil)
	hub := broadcast.NewHub(cfg.Stream.SubscriberBuffer, cfg.Stream.Heartbeat(), nil)
	watcher := progress.NewWatcher(watchfs.New(true, 5*time.Millisecond, nil), cfg.Workflow.Debounce(), nil)
	orch := orchestrator.New(cfg, registry, hub, idleRunner{}, watcher, nil)

	d, err := daemon.New(cfg, store, orch, hub, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Version != daemon.Version {
		t.Fatalf("unexpected version: %q", status.Version)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if status := d.Status(); status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to be refused while lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected second instance to start after lock release: %v", err)
	}
}

func TestDaemonServesHealthOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected API address after start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode health payload: %v", err)
	}
	if payload["service"] != "scout" {
		t.Fatalf("unexpected service name: %v", payload["service"])
	}
}
