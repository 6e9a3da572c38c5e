package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"scout/internal/logging"
	"scout/internal/scrape"
	"scout/internal/services"
)

// Registry owns the authoritative in-memory session table. All mutation goes
// through its methods; callers only ever see snapshots. An optional Store
// journals sessions to SQLite so status survives within the bounded session
// lifetime.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	ttl     time.Duration
	maxSize int
	store   *Store
	logger  *slog.Logger

	// onEvict runs before an expired session is removed, giving the
	// orchestrator a chance to cancel its worker and watcher.
	onEvict func(Snapshot)
}

// NewRegistry constructs a session registry. store may be nil to disable
// journaling (tests); logger may be nil.
func NewRegistry(ttl time.Duration, maxSessions int, store *Store, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxSessions <= 0 {
		maxSessions = 10
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		maxSize:  maxSessions,
		store:    store,
		logger:   logging.WithComponent(logger, "registry"),
	}
}

// SetEvictHook registers the cleanup callback invoked for sessions removed by
// the expiry sweep. Must be called before the sweep loop starts.
func (r *Registry) SetEvictHook(fn func(Snapshot)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Create registers a new session in state initializing. dirFor maps the
// generated ID to the session's artifact directory.
func (r *Registry) Create(ctx context.Context, req scrape.Request, dirFor func(id string) string) (Snapshot, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, s := range r.sessions {
		if !s.State.IsTerminal() {
			active++
		}
	}
	if active >= r.maxSize {
		return Snapshot{}, services.Wrap(services.ErrInvalidRequest, "", "create",
			fmt.Sprintf("too many active sessions (limit %d)", r.maxSize), nil)
	}

	id := NewID(now)
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = NewID(now)
	}

	s := &Session{
		ID:            id,
		Request:       req,
		State:         StateInitializing,
		Dir:           dirFor(id),
		CreatedAt:     now,
		ExpiresAt:     now.Add(r.ttl),
		UpdatedAt:     now,
		SelectedIndex: -1,
	}
	r.sessions[id] = s
	r.persistLocked(ctx, s)
	return s.snapshot(), nil
}

// Get returns a snapshot of the session or ErrSessionNotFound.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, services.Wrap(services.ErrSessionNotFound, "", "get", id, nil)
	}
	return s.snapshot(), nil
}

// List returns snapshots of every registered session, unordered.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.snapshot())
	}
	return out
}

// Delete removes a session. Idempotent: deleting an unknown ID is a no-op.
func (r *Registry) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	if r.store != nil {
		if err := r.store.Delete(ctx, id); err != nil {
			r.logger.Warn("journal delete failed", logging.String(logging.FieldSessionID, id), logging.Error(err))
		}
	}
}

// Transition applies a state change, enforcing the transition table.
func (r *Registry) Transition(ctx context.Context, id string, to State) (Snapshot, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		if !s.State.CanTransition(to) {
			return services.Wrap(services.ErrInvalidTransition, "", "transition",
				fmt.Sprintf("%s -> %s", s.State, to), nil)
		}
		s.State = to
		return nil
	})
}

// BeginStage transitions into a scraping state and claims the session's
// single worker slot. A second claim while one is active is rejected.
func (r *Registry) BeginStage(ctx context.Context, id string, to State) (Snapshot, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		if s.stageActive {
			return services.Wrap(services.ErrAlreadyRunning, to.Stage(), "begin", id, nil)
		}
		if !s.State.CanTransition(to) {
			return services.Wrap(services.ErrInvalidTransition, "", "begin",
				fmt.Sprintf("%s -> %s", s.State, to), nil)
		}
		s.State = to
		s.stageActive = true
		return nil
	})
}

// FinishStage releases the worker slot claimed by BeginStage.
func (r *Registry) FinishStage(id string) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.stageActive = false
	}
	r.mu.Unlock()
}

// Fail moves the session to a terminal failure state with a message.
// to must be StateFailed or StateTimedOut.
func (r *Registry) Fail(ctx context.Context, id string, to State, message string) (Snapshot, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		if !s.State.CanTransition(to) {
			return services.Wrap(services.ErrInvalidTransition, "", "fail",
				fmt.Sprintf("%s -> %s", s.State, to), nil)
		}
		s.State = to
		s.ErrorMessage = message
		s.stageActive = false
		return nil
	})
}

// SetCount records the number of items found so far in the given stage.
func (r *Registry) SetCount(ctx context.Context, id string, state State, count int) (Snapshot, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		switch state {
		case StateScrapingProfiles:
			s.PrimaryCount = count
		case StateScrapingCollaborators:
			s.SecondaryCount = count
		}
		return nil
	})
}

// SetSelected records which profile index the caller picked.
func (r *Registry) SetSelected(ctx context.Context, id string, index int) (Snapshot, error) {
	return r.mutate(ctx, id, func(s *Session) error {
		s.SelectedIndex = index
		return nil
	})
}

// NextSequence allocates the next event sequence number for the session.
func (r *Registry) NextSequence(id string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return 0, services.Wrap(services.ErrSessionNotFound, "", "sequence", id, nil)
	}
	s.LastSequence++
	return s.LastSequence, nil
}

// SweepExpired removes sessions past their deadline, invoking the evict hook
// (worker/watcher cancellation) before removal and deleting the session
// directory afterwards. Returns the removed snapshots.
func (r *Registry) SweepExpired(ctx context.Context, now time.Time) []Snapshot {
	r.mu.Lock()
	var expired []Snapshot
	var hook func(Snapshot)
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			expired = append(expired, s.snapshot())
			delete(r.sessions, id)
		}
	}
	hook = r.onEvict
	r.mu.Unlock()

	for _, snap := range expired {
		if hook != nil {
			hook(snap)
		}
		if snap.Dir != "" {
			if err := os.RemoveAll(snap.Dir); err != nil {
				r.logger.Warn("remove session dir failed",
					logging.String(logging.FieldSessionID, snap.ID), logging.Error(err))
			}
		}
		if r.store != nil {
			if err := r.store.Delete(ctx, snap.ID); err != nil {
				r.logger.Warn("journal delete failed",
					logging.String(logging.FieldSessionID, snap.ID), logging.Error(err))
			}
		}
		r.logger.Info("session expired",
			logging.String(logging.FieldSessionID, snap.ID),
			logging.String("state", string(snap.State)))
	}
	return expired
}

func (r *Registry) mutate(ctx context.Context, id string, fn func(*Session) error) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Snapshot{}, services.Wrap(services.ErrSessionNotFound, "", "mutate", id, nil)
	}
	if err := fn(s); err != nil {
		return s.snapshot(), err
	}
	s.UpdatedAt = time.Now().UTC()
	r.persistLocked(ctx, s)
	return s.snapshot(), nil
}

func (r *Registry) persistLocked(ctx context.Context, s *Session) {
	if r.store == nil {
		return
	}
	if err := r.store.Upsert(ctx, s.snapshot()); err != nil {
		r.logger.Warn("journal upsert failed",
			logging.String(logging.FieldSessionID, s.ID), logging.Error(err))
	}
}
