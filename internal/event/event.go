package event

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of a session event.
type Type string

const (
	TypeSessionStarted    Type = "session_started"
	TypeProgressUpdate    Type = "progress_update"
	TypeResultFound       Type = "result_found"
	TypeSelectionRequired Type = "selection_required"
	TypeStageAutoAdvanced Type = "stage_auto_advanced"
	TypeCompleted         Type = "completed"
	TypeTimeoutWarning    Type = "timeout_warning"
	TypeError             Type = "error"
	TypeHeartbeat         Type = "heartbeat"
)

// Outcome classifies the primary stage's result set.
type Outcome string

const (
	// OutcomeSingle means exactly one profile matched.
	OutcomeSingle Outcome = "single"
	// OutcomeMultiple means more than one profile matched.
	OutcomeMultiple Outcome = "multiple"
	// OutcomeNone means enumeration finished with no match: a definitive miss.
	OutcomeNone Outcome = "none"
	// OutcomeInconclusive means a fast-match search ended before any match,
	// typically on timeout. Distinct from a definitive miss.
	OutcomeInconclusive Outcome = "inconclusive"
)

// Event is the wire envelope delivered to subscribers. Sequence numbers are
// strictly increasing per session; heartbeats carry sequence 0 and are not
// part of the session's numbering.
type Event struct {
	SessionID string          `json:"session_id"`
	Sequence  uint64          `json:"sequence"`
	Type      Type            `json:"event_type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// New builds an event with the payload marshaled in place. Marshal failures
// degrade to an empty payload rather than losing the event.
func New(sessionID string, seq uint64, typ Type, payload any) Event {
	evt := Event{
		SessionID: sessionID,
		Sequence:  seq,
		Type:      typ,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			evt.Data = data
		}
	}
	return evt
}

// Heartbeat builds the keepalive event for idle subscriber connections.
func Heartbeat(sessionID string) Event {
	return Event{
		SessionID: sessionID,
		Type:      TypeHeartbeat,
		Timestamp: time.Now().UTC(),
	}
}

// ProgressPayload carries incremental counts from the watcher.
type ProgressPayload struct {
	Stage      string `json:"stage"`
	Found      int    `json:"found"`
	Delta      int    `json:"delta"`
	ResultPath string `json:"result_path,omitempty"`
}

// ResultPayload carries the outcome of the primary stage.
type ResultPayload struct {
	Outcome Outcome `json:"outcome"`
	Count   int     `json:"count"`
}

// SelectionPayload asks the caller to pick one of the found profiles.
type SelectionPayload struct {
	Count int `json:"count"`
}

// AdvancePayload explains an automatic stage transition.
type AdvancePayload struct {
	ToStage string `json:"to_stage"`
	Reason  string `json:"reason"`
}

// CompletedPayload summarizes a finished session.
type CompletedPayload struct {
	Profiles      int    `json:"profiles"`
	Collaborators int    `json:"collaborators"`
	Reason        string `json:"reason,omitempty"`
}

// ErrorPayload carries terminal failure details.
type ErrorPayload struct {
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// TimeoutPayload carries the deadline notice preceding a timed_out transition.
type TimeoutPayload struct {
	Stage    string `json:"stage"`
	Deadline string `json:"deadline"`
	Partial  int    `json:"partial_results"`
}
