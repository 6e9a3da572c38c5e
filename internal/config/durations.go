package config

import "time"

// Grace returns how long a cancelled worker gets between SIGTERM and SIGKILL.
func (w Worker) Grace() time.Duration {
	return time.Duration(w.GracePeriod) * time.Second
}

// PrimaryDeadline returns the profile-stage deadline. Fast-match lookups get
// the shorter timeout.
func (w Worker) PrimaryDeadline(fastMatch bool) time.Duration {
	if fastMatch {
		return time.Duration(w.FastMatchTimeout) * time.Second
	}
	return time.Duration(w.PrimaryTimeout) * time.Second
}

// SecondaryDeadline returns the collaborator-stage deadline.
func (w Worker) SecondaryDeadline() time.Duration {
	return time.Duration(w.SecondaryTimeout) * time.Second
}

// TTL returns the session expiry window.
func (w Workflow) TTL() time.Duration {
	return time.Duration(w.SessionTTLHours) * time.Hour
}

// Sweep returns the expiry sweep cadence.
func (w Workflow) Sweep() time.Duration {
	return time.Duration(w.SweepInterval) * time.Second
}

// Debounce returns the filesystem change settle window.
func (w Workflow) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

// Heartbeat returns the keepalive cadence for idle subscriber streams.
func (s Stream) Heartbeat() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}
