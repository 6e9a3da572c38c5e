package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scout/internal/broadcast"
	"scout/internal/config"
	"scout/internal/event"
	"scout/internal/logging"
	"scout/internal/progress"
	"scout/internal/session"
	"scout/internal/worker"
)

// StageRunner launches one worker invocation and blocks until it exits.
type StageRunner interface {
	Run(ctx context.Context, job worker.Job) error
}

// WatchRunner interprets session-directory changes for one stage.
type WatchRunner interface {
	Run(ctx context.Context, dir, stage string, hooks progress.Hooks) error
}

// Orchestrator glues the registry, worker supervisor, progress watcher, and
// event hub into the session state machine. It is the only writer of session
// transitions after creation.
type Orchestrator struct {
	cfg      *config.Config
	registry *session.Registry
	hub      *broadcast.Hub
	workers  StageRunner
	watchers WatchRunner
	logger   *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup

	emitMu sync.Mutex
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an orchestrator and wires the registry's eviction hook so
// expired sessions tear their workers and streams down before removal.
func New(cfg *config.Config, registry *session.Registry, hub *broadcast.Hub, workers StageRunner, watchers WatchRunner, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		workers:  workers,
		watchers: watchers,
		logger:   logging.WithComponent(logger, "orchestrator"),
		runs:     make(map[string]*run),
	}
	registry.SetEvictHook(o.evict)
	return o
}

// Run drives the periodic machinery: subscriber heartbeats and the expiry
// sweep. Blocks until ctx ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	go o.hub.Run(ctx)

	ticker := time.NewTicker(o.cfg.Workflow.Sweep())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.registry.SweepExpired(ctx, time.Now().UTC())
		}
	}
}

// Stop cancels every running stage, waits for their goroutines, and closes
// all subscriber streams.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	for _, r := range o.runs {
		r.cancel()
	}
	o.mu.Unlock()
	o.wg.Wait()
	o.hub.Shutdown()
}

// ActiveRuns reports how many stage goroutines are in flight.
func (o *Orchestrator) ActiveRuns() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.runs)
}

// evict runs inside the registry sweep before an expired session is removed.
func (o *Orchestrator) evict(snap session.Snapshot) {
	o.stopRun(snap.ID)
	o.hub.Close(snap.ID)
	o.logger.Info("evicted expired session", logging.String(logging.FieldSessionID, snap.ID))
}

// startRun registers and launches the goroutine owning a session's current
// stage.
func (o *Orchestrator) startRun(id string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.runs[id] = r
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(r.done)
		defer func() {
			o.mu.Lock()
			if o.runs[id] == r {
				delete(o.runs, id)
			}
			o.mu.Unlock()
		}()
		defer cancel()
		fn(ctx)
	}()
}

// stopRun cancels a session's stage goroutine and waits for it to finish.
// No-op when nothing is running.
func (o *Orchestrator) stopRun(id string) {
	o.mu.Lock()
	r := o.runs[id]
	o.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// emit publishes an event with the next sequence number for the session.
// Assignment and publish happen under one lock so delivery order always
// matches sequence order, even when a stage goroutine and the progress
// watcher emit concurrently. Events for sessions already removed from the
// registry are dropped.
func (o *Orchestrator) emit(sessionID string, typ event.Type, payload any) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	seq, err := o.registry.NextSequence(sessionID)
	if err != nil {
		return
	}
	o.hub.Publish(event.New(sessionID, seq, typ, payload))
}

// settleWindow bounds how long a cleanly exited worker's marker may lag
// behind in the watcher.
func (o *Orchestrator) settleWindow() time.Duration {
	settle := 4 * o.cfg.Workflow.Debounce()
	if settle < time.Second {
		settle = time.Second
	}
	return settle
}
