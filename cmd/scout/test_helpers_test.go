package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scout/internal/broadcast"
	"scout/internal/config"
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

// idleRunner keeps sessions in a scraping state until they are cancelled.
type idleRunner struct{}

func (idleRunner) Run(ctx context.Context, _ worker.Job) error {
	<-ctx.Done()
	return ctx.Err()
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	registry := session.NewRegistry(cfg.Workflow.TTL(), cfg.Workflow.MaxSessions, store, logger)
	hub := broadcast.NewHub(cfg.Stream.SubscriberBuffer, cfg.Stream.Heartbeat(), logger)
	watcher := progress.NewWatcher(watchfs.New(true, 5*time.Millisecond, logger), cfg.Workflow.Debounce(), logger)
	orch := orchestrator.New(cfg, registry, hub, idleRunner{}, watcher, logger)

	d, err := daemon.New(cfg, store, orch, hub, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Close()
	})

	return &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", env.socketPath, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
sessions_dir = %q
log_dir = %q
api_bind = %q
socket_path = %q

[worker]
binary = %q
`,
		cfg.Paths.SessionsDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.SocketPath,
		cfg.Worker.Binary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
