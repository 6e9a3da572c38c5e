package main

import (
	"time"

	"log/slog"

	"scout/internal/broadcast"
	"scout/internal/config"
	"scout/internal/daemon"
	"scout/internal/orchestrator"
	"scout/internal/progress"
	"scout/internal/session"
	"scout/internal/watchfs"
	"scout/internal/worker"
)

// buildDaemon assembles the full session pipeline: journal, registry, event
// hub, worker supervisor, artifact watcher, and orchestrator.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := session.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry(cfg.Workflow.TTL(), cfg.Workflow.MaxSessions, store, logger)
	hub := broadcast.NewHub(cfg.Stream.SubscriberBuffer, cfg.Stream.Heartbeat(), logger)

	supervisor, err := worker.NewSupervisor(cfg.Worker, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	fsWatcher := watchfs.New(cfg.Stream.PollWatcher, time.Second, logger)
	watcher := progress.NewWatcher(fsWatcher, cfg.Workflow.Debounce(), logger)

	orch := orchestrator.New(cfg, registry, hub, supervisor, watcher, logger)

	d, err := daemon.New(cfg, store, orch, hub, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return d, nil
}
