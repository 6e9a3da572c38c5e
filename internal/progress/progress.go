package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scout/internal/logging"
	"scout/internal/scrape"
	"scout/internal/services"
	"scout/internal/session"
	"scout/internal/watchfs"
	"scout/internal/worker"
)

// Update reports newly observed items in a stage's result file.
type Update struct {
	Stage      string
	Found      int
	Delta      int
	ResultPath string
}

// Hooks receive interpreted progress. Callbacks run on the watcher goroutine;
// keep them fast.
type Hooks struct {
	OnProgress func(Update)
	OnComplete func(stage string, found int, resultPath string)
}

// parseRetryDelay covers the window between a change notification and the
// writer finishing the file.
const parseRetryDelay = 100 * time.Millisecond

// Watcher interprets filesystem signals inside one session directory into
// stage progress. The worker's contract is result-then-marker: the result
// file is fully written before the done marker appears, so a marker sighting
// re-validates the result before the stage is declared complete.
type Watcher struct {
	fs       watchfs.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher constructs a progress watcher over the given change source.
func NewWatcher(fs watchfs.Watcher, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		fs:       fs,
		debounce: debounce,
		logger:   logging.WithComponent(logger, "progress"),
	}
}

// Run watches dir for the stage until the done marker lands or ctx ends.
// Returns nil on stage completion, ctx.Err() on cancellation, and
// ErrArtifactParse when the result file is still unreadable after the done
// marker appeared.
func (w *Watcher) Run(ctx context.Context, dir, stage string, hooks Hooks) error {
	resultName, markerName, err := StageFiles(stage)
	if err != nil {
		return err
	}
	resultPath := filepath.Join(dir, resultName)
	markerPath := filepath.Join(dir, markerName)

	changes, err := w.fs.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch session dir: %w", err)
	}

	log := w.logger.With(logging.String(logging.FieldStage, stage))
	lastFound := 0

	// The worker may have raced ahead of the watch; treat existing files as
	// an initial pending window.
	pending := map[string]bool{}
	if _, statErr := os.Stat(resultPath); statErr == nil {
		pending[resultName] = true
	}
	if _, statErr := os.Stat(markerPath); statErr == nil {
		pending[markerName] = true
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}
	if len(pending) > 0 {
		arm()
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			if change.Name != resultName && change.Name != markerName {
				continue
			}
			pending[change.Name] = true
			arm()
		case <-timerC:
			// Result before marker, regardless of notification order inside
			// the settle window.
			if pending[resultName] {
				found, parseErr := w.countItems(ctx, stage, resultPath)
				if parseErr != nil {
					log.Warn("result file not yet readable", logging.Error(parseErr))
				} else if found > lastFound {
					update := Update{Stage: stage, Found: found, Delta: found - lastFound, ResultPath: resultPath}
					lastFound = found
					if hooks.OnProgress != nil {
						hooks.OnProgress(update)
					}
				}
			}
			if pending[markerName] {
				found, parseErr := w.finalCount(ctx, stage, resultPath)
				if parseErr != nil {
					return parseErr
				}
				if found > lastFound && hooks.OnProgress != nil {
					hooks.OnProgress(Update{Stage: stage, Found: found, Delta: found - lastFound, ResultPath: resultPath})
				}
				if found > lastFound {
					lastFound = found
				}
				log.Info("stage complete", logging.Int("found", lastFound))
				if hooks.OnComplete != nil {
					hooks.OnComplete(stage, lastFound, resultPath)
				}
				return nil
			}
			pending = map[string]bool{}
		}
	}
}

// finalCount re-validates the result file once the marker is down. A missing
// result file is a definitive empty stage; an unreadable one is a worker
// contract violation.
func (w *Watcher) finalCount(ctx context.Context, stage, resultPath string) (int, error) {
	if _, err := os.Stat(resultPath); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	found, err := w.countItems(ctx, stage, resultPath)
	if err != nil {
		return 0, services.Wrap(services.ErrArtifactParse, stage, "finalize", resultPath, err)
	}
	return found, nil
}

// countItems parses the result file and returns the item count, retrying
// once to ride out a mid-write notification.
func (w *Watcher) countItems(ctx context.Context, stage, path string) (int, error) {
	count, err := Count(stage, path)
	if err == nil {
		return count, nil
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(parseRetryDelay):
	}
	return Count(stage, path)
}

// Count parses a stage's result file and returns its item count. The primary
// file is an object with a profiles array; the secondary file is a bare
// array.
func Count(stage, path string) (int, error) {
	switch stage {
	case worker.StageProfiles:
		result, err := scrape.LoadPrimaryResult(path)
		if err != nil {
			return 0, err
		}
		return len(result.Profiles), nil
	case worker.StageCollaborators:
		collaborators, err := scrape.LoadCollaborators(path)
		if err != nil {
			return 0, err
		}
		return len(collaborators), nil
	default:
		return 0, fmt.Errorf("unknown stage %q", stage)
	}
}

// StageFiles maps a stage to its result and marker file names.
func StageFiles(stage string) (resultName, markerName string, err error) {
	switch stage {
	case worker.StageProfiles:
		return session.PrimaryResultFile, session.PrimaryDoneMarker, nil
	case worker.StageCollaborators:
		return session.SecondaryResultFile, session.SecondaryDoneMarker, nil
	default:
		return "", "", fmt.Errorf("unknown stage %q", stage)
	}
}
