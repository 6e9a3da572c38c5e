package session

import "strings"

// State represents the lifecycle of a scraping session.
type State string

const (
	StateInitializing          State = "initializing"
	StateScrapingProfiles      State = "scraping_profiles"
	StateAnalyzing             State = "analyzing"
	StateAwaitingSelection     State = "awaiting_selection"
	StateScrapingCollaborators State = "scraping_collaborators"
	StateCompleted             State = "completed"
	StateFailed                State = "failed"
	StateTimedOut              State = "timed_out"
)

var allStates = []State{
	StateInitializing,
	StateScrapingProfiles,
	StateAnalyzing,
	StateAwaitingSelection,
	StateScrapingCollaborators,
	StateCompleted,
	StateFailed,
	StateTimedOut,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// transitions is the closed table of legal state changes. failed and
// timed_out are reachable from every non-terminal state and therefore
// handled in CanTransition rather than listed here.
var transitions = map[State][]State{
	StateInitializing:          {StateScrapingProfiles},
	StateScrapingProfiles:      {StateAnalyzing},
	StateAnalyzing:             {StateScrapingCollaborators, StateAwaitingSelection, StateCompleted},
	StateAwaitingSelection:     {StateScrapingCollaborators},
	StateScrapingCollaborators: {StateCompleted},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions are valid from the state.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the transition table allows from → to.
func (s State) CanTransition(to State) bool {
	if s.IsTerminal() {
		return false
	}
	if to == StateFailed || to == StateTimedOut {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage names the pipeline stage a running state belongs to, for worker
// argument construction and logging. Empty for non-scraping states.
func (s State) Stage() string {
	switch s {
	case StateScrapingProfiles:
		return "profiles"
	case StateScrapingCollaborators:
		return "collaborators"
	default:
		return ""
	}
}
