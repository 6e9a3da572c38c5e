package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"scout/internal/broadcast"
	"scout/internal/config"
	"scout/internal/deps"
	"scout/internal/logging"
	"scout/internal/orchestrator"
	"scout/internal/session"
)

// Version identifies the build in the health endpoint and CLI status output.
const Version = "0.3.0"

// Daemon owns the orchestrator's lifetime, the single-instance lock, and the
// HTTP API.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.Store
	orch   *orchestrator.Orchestrator
	hub    *broadcast.Hub

	lockPath  string
	lock      *flock.Flock
	startedAt time.Time

	api *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool          `json:"running"`
	PID            int           `json:"pid"`
	Version        string        `json:"version"`
	StartedAt      string        `json:"started_at,omitempty"`
	ActiveSessions int           `json:"active_sessions"`
	Subscribers    int           `json:"subscribers"`
	JournalPath    string        `json:"journal_path,omitempty"`
	LockFilePath   string        `json:"lock_file_path"`
	Dependencies   []deps.Status `json:"dependencies,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *session.Store, orch *orchestrator.Orchestrator, hub *broadcast.Hub, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orch == nil || hub == nil {
		return nil, errors.New("daemon requires config, orchestrator, and hub")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "scoutd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		orch:     orch,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, binds the API, and launches the
// orchestrator's periodic machinery.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scout daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	runCtx := d.ctx
	go func() {
		if err := d.orch.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("orchestrator loop exited", logging.Error(err))
		}
	}()

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("scout daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API down, cancels running sessions, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.orch.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("scout daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the CLI and API.
func (d *Daemon) Status() Status {
	active := 0
	for _, snap := range d.orch.List() {
		if !snap.State.IsTerminal() {
			active++
		}
	}
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Version:        Version,
		ActiveSessions: active,
		Subscribers:    d.hub.Subscribers(),
		JournalPath:    d.store.Path(),
		LockFilePath:   d.lockPath,
		Dependencies:   deps.Check(d.cfg),
	}
	if !d.startedAt.IsZero() {
		status.StartedAt = d.startedAt.Format(time.RFC3339)
	}
	return status
}

// Orchestrator exposes the session API for the IPC layer.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orch
}

// LogPath returns the daemon log file location, empty when file logging is
// disabled.
func (d *Daemon) LogPath() string {
	return logging.FilePath(d.cfg)
}

// APIAddr reports the bound API address, empty until started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}
