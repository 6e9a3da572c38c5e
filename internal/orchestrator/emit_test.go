package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"scout/internal/broadcast"
	"scout/internal/event"
	"scout/internal/scrape"
	"scout/internal/session"
	"scout/internal/testsupport"
	"scout/internal/worker"
)

func TestEmitDeliversInSequenceOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry := session.NewRegistry(cfg.Workflow.TTL(), cfg.Workflow.MaxSessions, nil, nil)
	hub := broadcast.NewHub(512, time.Hour, nil)
	o := New(cfg, registry, hub, nil, nil, nil)

	req, err := scrape.New("Ada Lovelace", "", "", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	snap, err := registry.Create(context.Background(), req, cfg.SessionDir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	hub.Open(snap.ID)
	sub, err := hub.Subscribe(snap.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Stage goroutine and watcher callbacks emit concurrently in the
	// settle window; delivery order must still match sequence order.
	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				o.emit(snap.ID, event.TypeProgressUpdate, event.ProgressPayload{Stage: worker.StageProfiles, Found: j})
			}
		}()
	}
	wg.Wait()
	hub.Close(snap.ID)

	var last uint64
	count := 0
	for evt := range sub.Events() {
		if evt.Sequence <= last {
			t.Fatalf("sequence regressed: %d after %d", evt.Sequence, last)
		}
		last = evt.Sequence
		count++
	}
	if count != writers*perWriter {
		t.Fatalf("delivered %d events, want %d", count, writers*perWriter)
	}
}
