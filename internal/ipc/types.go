package ipc

import (
	"scout/internal/deps"
	"scout/internal/scrape"
	"scout/internal/session"
)

// SessionInfo mirrors the session snapshot DTO for IPC callers.
type SessionInfo = session.Snapshot

// ArtifactInfo mirrors artifact presence for IPC callers.
type ArtifactInfo = session.Artifacts

// DependencyStatus describes availability of an external binary.
type DependencyStatus = deps.Status

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	Version        string             `json:"version"`
	StartedAt      string             `json:"started_at,omitempty"`
	ActiveSessions int                `json:"active_sessions"`
	Subscribers    int                `json:"subscribers"`
	JournalPath    string             `json:"journal_path"`
	LockPath       string             `json:"lock_path"`
	APIAddr        string             `json:"api_addr,omitempty"`
	Dependencies   []DependencyStatus `json:"dependencies,omitempty"`
}

// SearchRequest launches a new scraping session.
type SearchRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Field       string   `json:"field,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
}

// SearchResponse returns the created session.
type SearchResponse struct {
	Session SessionInfo `json:"session"`
}

// SessionsRequest lists known sessions.
type SessionsRequest struct{}

// SessionsResponse contains session entries, newest first.
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// DescribeRequest fetches a single session by id.
type DescribeRequest struct {
	ID string `json:"id"`
}

// DescribeResponse contains a single session plus its artifact presence and
// whatever the artifact files hold right now.
type DescribeResponse struct {
	Session       SessionInfo           `json:"session"`
	Artifacts     ArtifactInfo          `json:"artifacts"`
	Profiles      []scrape.Profile      `json:"profiles,omitempty"`
	Collaborators []scrape.Collaborator `json:"collaborators,omitempty"`
}

// SelectRequest resolves a multi-result session by profile index.
type SelectRequest struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
}

// SelectResponse returns the session after selection.
type SelectResponse struct {
	Session SessionInfo `json:"session"`
}

// CancelRequest cancels a session and removes its artifacts.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse indicates cancel result.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
