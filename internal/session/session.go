package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"scout/internal/scrape"
)

// Session is one scraping workflow instance. Owned exclusively by the
// Registry; mutate only through registry methods.
type Session struct {
	ID      string
	Request scrape.Request
	State   State
	Dir     string

	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time

	PrimaryCount   int
	SecondaryCount int
	SelectedIndex  int

	ErrorMessage string
	LastSequence uint64

	stageActive bool
}

// Snapshot is a copy of session fields safe to use outside the registry lock.
type Snapshot struct {
	ID             string         `json:"id"`
	Request        scrape.Request `json:"request"`
	State          State          `json:"state"`
	Dir            string         `json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	PrimaryCount   int            `json:"primary_count"`
	SecondaryCount int            `json:"secondary_count"`
	SelectedIndex  int            `json:"selected_index"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	LastSequence   uint64         `json:"last_sequence"`
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:             s.ID,
		Request:        s.Request,
		State:          s.State,
		Dir:            s.Dir,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
		UpdatedAt:      s.UpdatedAt,
		PrimaryCount:   s.PrimaryCount,
		SecondaryCount: s.SecondaryCount,
		SelectedIndex:  s.SelectedIndex,
		ErrorMessage:   s.ErrorMessage,
		LastSequence:   s.LastSequence,
	}
}

// NewID generates a session identifier: a sortable UTC timestamp prefix plus
// a random UUID fragment. Unique for the lifetime of the process; the
// registry additionally rejects the (unlikely) duplicate.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "s" + now.UTC().Format("20060102T150405") + "-" + suffix
}
