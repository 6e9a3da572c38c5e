package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"scout/internal/event"
	"scout/internal/logging"
	"scout/internal/progress"
	"scout/internal/scrape"
	"scout/internal/services"
	"scout/internal/session"
	"scout/internal/worker"
)

// runPrimary drives the profile stage and the analysis that follows it.
// Runs on the session's stage goroutine.
func (o *Orchestrator) runPrimary(ctx context.Context, snap session.Snapshot) {
	deadline := o.cfg.Worker.PrimaryDeadline(snap.Request.FastMatch())
	found, err := o.runStage(ctx, snap, worker.StageProfiles, "", deadline)
	if err != nil {
		o.finishStageError(snap.ID, worker.StageProfiles, err)
		return
	}
	o.analyze(ctx, snap, found)
}

// runSecondary drives the collaborator stage to session completion.
func (o *Orchestrator) runSecondary(ctx context.Context, snap session.Snapshot, profileURL string) {
	found, err := o.runStage(ctx, snap, worker.StageCollaborators, profileURL, o.cfg.Worker.SecondaryDeadline())
	if err != nil {
		o.finishStageError(snap.ID, worker.StageCollaborators, err)
		return
	}
	bg := context.Background()
	o.registry.FinishStage(snap.ID)
	if _, err := o.registry.SetCount(bg, snap.ID, session.StateScrapingCollaborators, found); err != nil {
		o.failSession(snap.ID, worker.StageCollaborators, err)
		return
	}

	primary := snap.PrimaryCount
	if current, err := o.registry.Get(snap.ID); err == nil {
		primary = current.PrimaryCount
	}
	o.complete(snap.ID, primary, found, "")
}

// analyze interprets the primary result set and decides the next transition:
// complete, auto-advance, or wait for a caller selection.
func (o *Orchestrator) analyze(ctx context.Context, snap session.Snapshot, found int) {
	bg := context.Background()
	id := snap.ID

	if _, err := o.registry.Transition(bg, id, session.StateAnalyzing); err != nil {
		o.failSession(id, worker.StageProfiles, err)
		return
	}
	o.registry.FinishStage(id)
	if _, err := o.registry.SetCount(bg, id, session.StateScrapingProfiles, found); err != nil {
		o.failSession(id, worker.StageProfiles, err)
		return
	}

	var profiles []scrape.Profile
	if found > 0 {
		result, err := scrape.LoadPrimaryResult(filepath.Join(snap.Dir, session.PrimaryResultFile))
		if err != nil {
			o.failSession(id, worker.StageProfiles,
				services.Wrap(services.ErrArtifactParse, worker.StageProfiles, "analyze", session.PrimaryResultFile, err))
			return
		}
		profiles = result.Profiles
	}

	switch {
	case len(profiles) == 0:
		o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeNone, Count: 0})
		o.complete(id, 0, 0, "")
	case len(profiles) == 1:
		profile := profiles[0]
		if profile.ProfileURL == "" {
			// Sole match without a profile page: nothing to expand, so the
			// session ends here rather than entering the secondary stage.
			o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeNone, Count: 1})
			o.complete(id, 1, 0, "profile_url_missing")
			return
		}
		o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeSingle, Count: 1})
		reason := "single_match"
		if snap.Request.FastMatch() {
			reason = "fast_match"
		}
		o.autoAdvance(ctx, id, profile.ProfileURL, reason)
	default:
		if snap.Request.FastMatch() {
			if profile, ok := fastMatchProfile(snap.Request, profiles); ok {
				o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeSingle, Count: 1})
				o.autoAdvance(ctx, id, profile.ProfileURL, "fast_match")
				return
			}
		}
		o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeMultiple, Count: len(profiles)})
		if _, err := o.registry.Transition(bg, id, session.StateAwaitingSelection); err != nil {
			o.failSession(id, worker.StageProfiles, err)
			return
		}
		o.emit(id, event.TypeSelectionRequired, event.SelectionPayload{Count: len(profiles)})
	}
}

// fastMatchProfile finds the profile whose email key equals the requested
// one. Only a match with a usable profile page counts as definitive.
func fastMatchProfile(req scrape.Request, profiles []scrape.Profile) (scrape.Profile, bool) {
	key := req.EmailKey()
	if key == "" {
		return scrape.Profile{}, false
	}
	for _, profile := range profiles {
		if profile.ProfileURL != "" && scrape.MatchKey(profile.Email) == key {
			return profile, true
		}
	}
	return scrape.Profile{}, false
}

// autoAdvance moves an analyzed session into the collaborator stage.
func (o *Orchestrator) autoAdvance(ctx context.Context, id, profileURL, reason string) {
	o.emit(id, event.TypeStageAutoAdvanced, event.AdvancePayload{ToStage: worker.StageCollaborators, Reason: reason})
	next, err := o.registry.BeginStage(context.Background(), id, session.StateScrapingCollaborators)
	if err != nil {
		o.failSession(id, worker.StageCollaborators, err)
		return
	}
	o.runSecondary(ctx, next, profileURL)
}

// runStage runs one worker alongside the progress watcher and resolves their
// combined outcome: the found count on completion, context errors on
// timeout/cancel, a service error otherwise.
func (o *Orchestrator) runStage(ctx context.Context, snap session.Snapshot, stage, profileURL string, deadline time.Duration) (int, error) {
	stageCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	state := session.StateScrapingProfiles
	if stage == worker.StageCollaborators {
		state = session.StateScrapingCollaborators
	}

	completeCh := make(chan int, 1)
	hooks := progress.Hooks{
		OnProgress: func(u progress.Update) {
			if _, err := o.registry.SetCount(context.Background(), snap.ID, state, u.Found); err != nil {
				return
			}
			o.emit(snap.ID, event.TypeProgressUpdate, event.ProgressPayload{
				Stage:      u.Stage,
				Found:      u.Found,
				Delta:      u.Delta,
				ResultPath: u.ResultPath,
			})
		},
		OnComplete: func(stage string, found int, resultPath string) {
			completeCh <- found
		},
	}

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- o.watchers.Run(stageCtx, snap.Dir, stage, hooks)
	}()

	workerCtx, cancelWorker := context.WithCancel(stageCtx)
	defer cancelWorker()
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- o.workers.Run(workerCtx, worker.Job{
			SessionID:  snap.ID,
			Stage:      stage,
			OutputDir:  snap.Dir,
			Request:    snap.Request,
			ProfileURL: profileURL,
		})
	}()

	var settle <-chan time.Time
	for {
		select {
		case found := <-completeCh:
			// A fast-match worker may still be enumerating after the marker.
			cancelWorker()
			return found, nil
		case err := <-watchDone:
			watchDone = nil
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				cancelWorker()
				return 0, err
			}
		case err := <-workerDone:
			workerDone = nil
			if stageCtx.Err() != nil {
				return 0, stageCtx.Err()
			}
			if err != nil {
				return 0, err
			}
			settle = time.After(o.settleWindow())
		case <-settle:
			return o.inspectAfterExit(snap.Dir, stage)
		case <-stageCtx.Done():
			return 0, stageCtx.Err()
		}
	}
}

// inspectAfterExit covers a worker that exited cleanly before the watcher
// reported completion: look at the disk directly instead of trusting the
// notification path.
func (o *Orchestrator) inspectAfterExit(dir, stage string) (int, error) {
	resultName, markerName, err := progress.StageFiles(stage)
	if err != nil {
		return 0, err
	}
	if _, statErr := os.Stat(filepath.Join(dir, markerName)); statErr != nil {
		return 0, services.Wrap(services.ErrWorkerExit, stage, "wait", "worker exited without completion marker", nil)
	}
	resultPath := filepath.Join(dir, resultName)
	if _, statErr := os.Stat(resultPath); statErr != nil {
		return 0, nil
	}
	found, countErr := progress.Count(stage, resultPath)
	if countErr != nil {
		return 0, services.Wrap(services.ErrArtifactParse, stage, "finalize", resultName, countErr)
	}
	return found, nil
}

// finishStageError maps a failed runStage outcome onto the session: silent
// on cancellation (the canceller owns messaging), timeout_warning then a
// terminal error event plus timed_out on deadline, error plus failed
// otherwise. Subscribers always see a terminal-typed event before the
// stream closes.
func (o *Orchestrator) finishStageError(id, stage string, err error) {
	bg := context.Background()
	o.registry.FinishStage(id)

	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, services.ErrStageTimeout):
		partial := 0
		if snap, getErr := o.registry.Get(id); getErr == nil {
			if stage == worker.StageCollaborators {
				partial = snap.SecondaryCount
			} else {
				partial = snap.PrimaryCount
			}
		}
		o.emit(id, event.TypeTimeoutWarning, event.TimeoutPayload{
			Stage:    stage,
			Deadline: time.Now().UTC().Format(time.RFC3339),
			Partial:  partial,
		})
		if stage == worker.StageProfiles {
			o.emit(id, event.TypeResultFound, event.ResultPayload{Outcome: event.OutcomeInconclusive, Count: partial})
		}
		o.emit(id, event.TypeError, event.ErrorPayload{Message: "stage deadline exceeded", Stage: stage})
		if _, failErr := o.registry.Fail(bg, id, session.StateTimedOut, "stage deadline exceeded"); failErr != nil {
			o.logger.Warn("timed_out transition failed",
				logging.String(logging.FieldSessionID, id), logging.Error(failErr))
		}
		o.hub.Close(id)
		o.logger.Warn("stage timed out",
			logging.String(logging.FieldSessionID, id),
			logging.String(logging.FieldStage, stage),
			logging.Int("partial", partial))
	default:
		o.failSession(id, stage, err)
	}
}

// failSession records a terminal failure and closes the stream.
func (o *Orchestrator) failSession(id, stage string, err error) {
	o.registry.FinishStage(id)
	o.emit(id, event.TypeError, event.ErrorPayload{Message: err.Error(), Stage: stage})
	if _, failErr := o.registry.Fail(context.Background(), id, session.StateFailed, err.Error()); failErr != nil {
		o.logger.Warn("failed transition rejected",
			logging.String(logging.FieldSessionID, id), logging.Error(failErr))
	}
	o.hub.Close(id)
	o.logger.Error("session failed",
		logging.String(logging.FieldSessionID, id),
		logging.String(logging.FieldStage, stage),
		logging.Error(err))
}

// complete finishes a session and closes its stream.
func (o *Orchestrator) complete(id string, profiles, collaborators int, reason string) {
	if _, err := o.registry.Transition(context.Background(), id, session.StateCompleted); err != nil {
		o.failSession(id, "", err)
		return
	}
	o.emit(id, event.TypeCompleted, event.CompletedPayload{
		Profiles:      profiles,
		Collaborators: collaborators,
		Reason:        reason,
	})
	o.hub.Close(id)
	o.logger.Info("session completed",
		logging.String(logging.FieldSessionID, id),
		logging.Int("profiles", profiles),
		logging.Int("collaborators", collaborators))
}
