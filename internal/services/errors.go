package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used to classify failures across the orchestrator pipeline.
var (
	// ErrInvalidRequest marks malformed mode/parameter combinations.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSessionNotFound marks lookups of unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAlreadyRunning marks attempts to start a stage while one is active.
	ErrAlreadyRunning = errors.New("stage already running")
	// ErrInvalidTransition marks state changes the transition table forbids.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrWorkerLaunch marks failures to start the external worker process.
	ErrWorkerLaunch = errors.New("worker launch failure")
	// ErrWorkerExit marks non-zero worker exits.
	ErrWorkerExit = errors.New("worker exit failure")
	// ErrStageTimeout marks stages that missed their completion deadline.
	ErrStageTimeout = errors.New("stage timeout")
	// ErrArtifactParse marks result files that stayed unreadable after retry.
	ErrArtifactParse = errors.New("artifact parse failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = errors.New("service failure")
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
