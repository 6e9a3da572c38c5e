package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scout/internal/broadcast"
	"scout/internal/daemon"
	"scout/internal/ipc"
	"scout/internal/logging"
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

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	registry := session.NewRegistry(cfg.Workflow.TTL(), cfg.Workflow.MaxSessions, store, logger)
	hub := broadcast.NewHub(cfg.Stream.SubscriberBuffer, cfg.Stream.Heartbeat(), logger)
	watcher := progress.NewWatcher(watchfs.New(true, 5*time.Millisecond, logger), cfg.Workflow.Debounce(), logger)
	orch := orchestrator.New(cfg, registry, hub, idleRunner{}, watcher, logger)

	d, err := daemon.New(cfg, store, orch, hub, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Version == "" {
		t.Fatal("expected version in status")
	}

	searchResp, err := client.Search(ipc.SearchRequest{Name: "Grace Hopper"})
	if err != nil {
		t.Fatalf("Search RPC failed: %v", err)
	}
	id := searchResp.Session.ID
	if id == "" {
		t.Fatal("expected session id from search")
	}

	sessions, err := client.Sessions()
	if err != nil {
		t.Fatalf("Sessions RPC failed: %v", err)
	}
	if len(sessions.Sessions) != 1 || sessions.Sessions[0].ID != id {
		t.Fatalf("unexpected session listing: %+v", sessions.Sessions)
	}

	describe, err := client.Describe(id)
	if err != nil {
		t.Fatalf("Describe RPC failed: %v", err)
	}
	if describe.Session.ID != id {
		t.Fatalf("unexpected session in describe: %q", describe.Session.ID)
	}

	// Selection is only valid once the session is awaiting it.
	if _, err := client.Select(id, 0); err == nil {
		t.Fatal("expected select on a scraping session to fail")
	}

	cancelResp, err := client.Cancel(id)
	if err != nil {
		t.Fatalf("Cancel RPC failed: %v", err)
	}
	if !cancelResp.Cancelled {
		t.Fatal("expected cancel to report success")
	}
	if _, err := client.Describe(id); err == nil {
		t.Fatal("expected describe after cancel to fail")
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "scout.log")
	if err := os.WriteFile(logPath, []byte("line one\nline two\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	tail, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(tail.Lines) != 1 || tail.Lines[0] != "line two" {
		t.Fatalf("unexpected tail lines: %v", tail.Lines)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop to report success")
	}
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}
