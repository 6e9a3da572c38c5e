package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scout/internal/event"
	"scout/internal/logging"
	"scout/internal/services"
)

// Subscription is one attached event consumer. Receive from Events until it
// closes; a closed channel means the session reached a terminal state or the
// subscription was cancelled.
type Subscription struct {
	sessionID string
	ch        chan event.Event
	id        uint64
}

// Events returns the subscriber's delivery channel.
func (s *Subscription) Events() <-chan event.Event {
	return s.ch
}

// SessionID reports which session the subscription is attached to.
func (s *Subscription) SessionID() string {
	return s.sessionID
}

// ClosedSubscription returns a subscription whose channel is already closed.
// Served to consumers attaching after the session's stream was torn down;
// Unsubscribe on it is a no-op.
func ClosedSubscription(sessionID string) *Subscription {
	sub := &Subscription{sessionID: sessionID, ch: make(chan event.Event)}
	close(sub.ch)
	return sub
}

type stream struct {
	subscribers map[uint64]*Subscription
	closed      bool
}

// Hub fans session events out to attached subscribers. Delivery is
// best-effort per subscriber: a full buffer drops the event for that
// subscriber rather than stalling the publisher.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*stream
	nextSub uint64

	buffer    int
	heartbeat time.Duration
	logger    *slog.Logger
	dropped   uint64
}

// NewHub constructs an event hub. buffer is the per-subscriber channel
// capacity; heartbeat is the keepalive cadence for Run.
func NewHub(buffer int, heartbeat time.Duration, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Hub{
		streams:   make(map[string]*stream),
		buffer:    buffer,
		heartbeat: heartbeat,
		logger:    logging.WithComponent(logger, "broadcast"),
	}
}

// Open creates the stream for a session. Idempotent.
func (h *Hub) Open(sessionID string) {
	h.mu.Lock()
	if _, ok := h.streams[sessionID]; !ok {
		h.streams[sessionID] = &stream{subscribers: make(map[uint64]*Subscription)}
	}
	h.mu.Unlock()
}

// Subscribe attaches a consumer to a session's stream. Events published
// before the subscription are not replayed.
func (h *Hub) Subscribe(sessionID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[sessionID]
	if !ok || st.closed {
		return nil, services.Wrap(services.ErrSessionNotFound, "", "subscribe", sessionID, nil)
	}
	h.nextSub++
	sub := &Subscription{
		sessionID: sessionID,
		ch:        make(chan event.Event, h.buffer),
		id:        h.nextSub,
	}
	st.subscribers[sub.id] = sub
	return sub, nil
}

// Unsubscribe detaches and closes a subscription. Idempotent; a nil or
// already-detached subscription is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[sub.sessionID]
	if !ok {
		return
	}
	if _, attached := st.subscribers[sub.id]; !attached {
		return
	}
	delete(st.subscribers, sub.id)
	close(sub.ch)
}

// Publish delivers the event to every subscriber attached to its session.
// Unknown sessions are dropped silently; sessions without subscribers keep
// running unobserved.
func (h *Hub) Publish(evt event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[evt.SessionID]
	if !ok || st.closed {
		return
	}
	h.deliverLocked(st, evt)
}

// Close tears down a session's stream, closing every subscriber channel.
// Idempotent.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[sessionID]
	if !ok {
		return
	}
	st.closed = true
	for id, sub := range st.subscribers {
		delete(st.subscribers, id)
		close(sub.ch)
	}
	delete(h.streams, sessionID)
}

// Run emits heartbeats to every open stream until ctx ends. Heartbeats carry
// sequence zero so they never perturb session event ordering.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			for sessionID, st := range h.streams {
				if st.closed || len(st.subscribers) == 0 {
					continue
				}
				h.deliverLocked(st, event.Heartbeat(sessionID))
			}
			h.mu.Unlock()
		}
	}
}

// Shutdown closes every stream. Used on daemon stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, st := range h.streams {
		st.closed = true
		for id, sub := range st.subscribers {
			delete(st.subscribers, id)
			close(sub.ch)
		}
		delete(h.streams, sessionID)
	}
}

// Subscribers reports how many consumers are attached across all streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, st := range h.streams {
		total += len(st.subscribers)
	}
	return total
}

// Dropped reports how many events were discarded due to slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) deliverLocked(st *stream, evt event.Event) {
	for _, sub := range st.subscribers {
		select {
		case sub.ch <- evt:
		default:
			h.dropped++
			h.logger.Warn("subscriber buffer full, dropping event",
				logging.String(logging.FieldSessionID, evt.SessionID),
				logging.String(logging.FieldEventType, string(evt.Type)))
		}
	}
}
