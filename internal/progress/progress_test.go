package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"scout/internal/progress"
	"scout/internal/scrape"
	"scout/internal/services"
	"scout/internal/session"
	"scout/internal/testsupport"
	"scout/internal/watchfs"
	"scout/internal/worker"
)

type recorder struct {
	mu       sync.Mutex
	updates  []progress.Update
	complete []int
}

func (r *recorder) hooks() progress.Hooks {
	return progress.Hooks{
		OnProgress: func(u progress.Update) {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
		},
		OnComplete: func(stage string, found int, resultPath string) {
			r.mu.Lock()
			r.complete = append(r.complete, found)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]progress.Update, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Update(nil), r.updates...), append([]int(nil), r.complete...)
}

func newWatcher(t *testing.T) *progress.Watcher {
	t.Helper()
	return progress.NewWatcher(watchfs.New(true, 5*time.Millisecond, nil), 20*time.Millisecond, nil)
}

func runStage(t *testing.T, w *progress.Watcher, dir, stage string, rec *recorder) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), dir, stage, rec.hooks())
	}()
	return done
}

func TestRunReportsIncrementalProgressAndCompletion(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	done := runStage(t, newWatcher(t), dir, worker.StageProfiles, rec)

	testsupport.WriteArtifact(t, dir, session.PrimaryResultFile, primaryResult(t, "a"))
	waitFor(t, func() bool {
		updates, _ := rec.snapshot()
		return len(updates) >= 1
	})

	testsupport.WriteArtifact(t, dir, session.PrimaryResultFile, primaryResult(t, "a", "b", "c"))
	testsupport.WriteArtifact(t, dir, session.PrimaryDoneMarker, nil)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	updates, complete := rec.snapshot()
	if len(updates) < 2 {
		t.Fatalf("updates = %+v", updates)
	}
	if updates[0].Found != 1 || updates[0].Delta != 1 {
		t.Fatalf("first update = %+v", updates[0])
	}
	last := updates[len(updates)-1]
	if last.Found != 3 {
		t.Fatalf("last update = %+v", last)
	}
	if len(complete) != 1 || complete[0] != 3 {
		t.Fatalf("complete = %v", complete)
	}
}

func TestRunHandlesPreexistingArtifacts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteArtifact(t, dir, session.PrimaryResultFile, primaryResult(t, "a", "b"))
	testsupport.WriteArtifact(t, dir, session.PrimaryDoneMarker, nil)

	rec := &recorder{}
	done := runStage(t, newWatcher(t), dir, worker.StageProfiles, rec)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, complete := rec.snapshot()
	if len(complete) != 1 || complete[0] != 2 {
		t.Fatalf("complete = %v", complete)
	}
}

func TestRunMarkerWithoutResultCompletesEmpty(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	done := runStage(t, newWatcher(t), dir, worker.StageCollaborators, rec)

	testsupport.WriteArtifact(t, dir, session.SecondaryDoneMarker, nil)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	updates, complete := rec.snapshot()
	if len(updates) != 0 {
		t.Fatalf("updates = %+v", updates)
	}
	if len(complete) != 1 || complete[0] != 0 {
		t.Fatalf("complete = %v", complete)
	}
}

func TestRunUnparsableResultAfterMarkerFails(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	done := runStage(t, newWatcher(t), dir, worker.StageProfiles, rec)

	testsupport.WriteArtifact(t, dir, session.PrimaryResultFile, []byte(`{"truncated`))
	testsupport.WriteArtifact(t, dir, session.PrimaryDoneMarker, nil)

	err := <-done
	if !errors.Is(err, services.ErrArtifactParse) {
		t.Fatalf("expected ErrArtifactParse, got %v", err)
	}
}

func TestRunCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newWatcher(t).Run(ctx, dir, worker.StageProfiles, progress.Hooks{})
	}()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCount(t *testing.T) {
	dir := t.TempDir()
	primary := testsupport.WriteArtifact(t, dir, session.PrimaryResultFile, primaryResult(t, "a", "b", "c"))
	count, err := progress.Count(worker.StageProfiles, primary)
	if err != nil || count != 3 {
		t.Fatalf("Count(profiles) = (%d, %v)", count, err)
	}

	secondary := testsupport.WriteArtifact(t, dir, session.SecondaryResultFile, []byte(`[{"name":"x"},{"name":"y"}]`))
	count, err = progress.Count(worker.StageCollaborators, secondary)
	if err != nil || count != 2 {
		t.Fatalf("Count(collaborators) = (%d, %v)", count, err)
	}

	if _, err := progress.Count(worker.StageProfiles, dir+"/missing.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func primaryResult(t *testing.T, names ...string) []byte {
	t.Helper()
	profiles := make([]scrape.Profile, 0, len(names))
	for _, name := range names {
		profiles = append(profiles, scrape.Profile{Name: name, ProfileURL: "https://example.org/" + name})
	}
	data, err := json.Marshal(scrape.PrimaryResult{
		SearchedName:  "query",
		Status:        "completed",
		TotalProfiles: len(profiles),
		Profiles:      profiles,
	})
	if err != nil {
		t.Fatalf("marshal primary result: %v", err)
	}
	return data
}

func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
