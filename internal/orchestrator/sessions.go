package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"scout/internal/broadcast"
	"scout/internal/event"
	"scout/internal/logging"
	"scout/internal/scrape"
	"scout/internal/services"
	"scout/internal/session"
	"scout/internal/worker"
)

// Status is the enriched session view returned by GetStatus.
type Status struct {
	Session   session.Snapshot  `json:"session"`
	Artifacts session.Artifacts `json:"artifacts"`
}

// SessionSnapshot is the re-derivation view for reconnecting clients: the
// current state plus whatever the artifact files hold right now.
type SessionSnapshot struct {
	Session       session.Snapshot      `json:"session"`
	Profiles      []scrape.Profile      `json:"profiles,omitempty"`
	Collaborators []scrape.Collaborator `json:"collaborators,omitempty"`
}

// StartSession validates the request, registers the session, and launches
// the primary scraping stage.
func (o *Orchestrator) StartSession(ctx context.Context, req scrape.Request) (session.Snapshot, error) {
	snap, err := o.registry.Create(ctx, req, o.cfg.SessionDir)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := os.MkdirAll(snap.Dir, 0o755); err != nil {
		o.registry.Delete(ctx, snap.ID)
		return session.Snapshot{}, services.Wrap(services.ErrWorkerLaunch, worker.StageProfiles, "start",
			"create session directory", err)
	}

	id := snap.ID
	o.hub.Open(id)
	o.emit(id, event.TypeSessionStarted, snap.Request)

	snap, err = o.registry.BeginStage(ctx, id, session.StateScrapingProfiles)
	if err != nil {
		o.hub.Close(id)
		o.registry.Delete(ctx, id)
		return session.Snapshot{}, err
	}

	o.logger.Info("session started",
		logging.String(logging.FieldSessionID, snap.ID),
		logging.String("mode", string(req.Mode)))

	o.startRun(snap.ID, func(runCtx context.Context) {
		o.runPrimary(runCtx, snap)
	})
	return snap, nil
}

// GetStatus returns the session snapshot plus artifact presence.
func (o *Orchestrator) GetStatus(id string) (Status, error) {
	snap, err := o.registry.Get(id)
	if err != nil {
		return Status{}, err
	}
	return Status{Session: snap, Artifacts: session.DetectArtifacts(snap.Dir)}, nil
}

// List returns all known sessions, newest first.
func (o *Orchestrator) List() []session.Snapshot {
	sessions := o.registry.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}

// GetSnapshot re-derives the current session contents from the artifact
// files so a reconnecting client does not depend on event replay.
func (o *Orchestrator) GetSnapshot(id string) (SessionSnapshot, error) {
	snap, err := o.registry.Get(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	out := SessionSnapshot{Session: snap}
	if result, err := scrape.LoadPrimaryResult(filepath.Join(snap.Dir, session.PrimaryResultFile)); err == nil {
		out.Profiles = result.Profiles
	}
	if collaborators, err := scrape.LoadCollaborators(filepath.Join(snap.Dir, session.SecondaryResultFile)); err == nil {
		out.Collaborators = collaborators
	}
	return out, nil
}

// Subscribe attaches a live event stream to a session. A session that
// already reached a terminal state but has not been swept yet yields an
// immediately closed stream rather than a lookup error.
func (o *Orchestrator) Subscribe(id string) (*broadcast.Subscription, error) {
	snap, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	sub, err := o.hub.Subscribe(id)
	if err != nil {
		if snap.State.IsTerminal() {
			return broadcast.ClosedSubscription(id), nil
		}
		return nil, err
	}
	return sub, nil
}

// Unsubscribe detaches a subscription. Idempotent.
func (o *Orchestrator) Unsubscribe(sub *broadcast.Subscription) {
	o.hub.Unsubscribe(sub)
}

// SelectProfile resolves an awaiting_selection session by index and launches
// the collaborator stage for the chosen profile.
func (o *Orchestrator) SelectProfile(ctx context.Context, id string, index int) (session.Snapshot, error) {
	snap, err := o.registry.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if snap.State != session.StateAwaitingSelection {
		return session.Snapshot{}, services.Wrap(services.ErrInvalidTransition, worker.StageCollaborators, "select",
			fmt.Sprintf("session is %s, not awaiting selection", snap.State), nil)
	}

	result, err := scrape.LoadPrimaryResult(filepath.Join(snap.Dir, session.PrimaryResultFile))
	if err != nil {
		return session.Snapshot{}, services.Wrap(services.ErrArtifactParse, worker.StageCollaborators, "select",
			session.PrimaryResultFile, err)
	}
	if index < 0 || index >= len(result.Profiles) {
		return session.Snapshot{}, services.Wrap(services.ErrInvalidRequest, worker.StageCollaborators, "select",
			fmt.Sprintf("index %d out of range (%d profiles)", index, len(result.Profiles)), nil)
	}
	profile := result.Profiles[index]
	if profile.ProfileURL == "" {
		return session.Snapshot{}, services.Wrap(services.ErrInvalidRequest, worker.StageCollaborators, "select",
			"selected profile has no profile url", nil)
	}

	// Claim the worker slot before spawning so a concurrent select loses
	// here instead of inside the goroutine.
	snap, err = o.registry.BeginStage(ctx, id, session.StateScrapingCollaborators)
	if err != nil {
		return session.Snapshot{}, err
	}
	if _, err := o.registry.SetSelected(ctx, id, index); err != nil {
		return session.Snapshot{}, err
	}

	o.logger.Info("profile selected",
		logging.String(logging.FieldSessionID, id),
		logging.Int("index", index))

	o.startRun(id, func(runCtx context.Context) {
		o.runSecondary(runCtx, snap, profile.ProfileURL)
	})
	return snap, nil
}

// Cancel terminates a session: the running worker gets the grace period,
// subscribers see a final error event, and the session and its directory are
// removed.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	snap, err := o.registry.Get(id)
	if err != nil {
		return err
	}
	o.stopRun(id)

	o.emit(id, event.TypeError, event.ErrorPayload{Message: "session cancelled"})
	o.hub.Close(id)
	o.registry.Delete(ctx, id)
	if snap.Dir != "" {
		if err := os.RemoveAll(snap.Dir); err != nil {
			o.logger.Warn("remove session dir failed",
				logging.String(logging.FieldSessionID, id), logging.Error(err))
		}
	}
	o.logger.Info("session cancelled", logging.String(logging.FieldSessionID, id))
	return nil
}
