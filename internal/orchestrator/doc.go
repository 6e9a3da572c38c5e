// Package orchestrator coordinates scraping sessions end to end.
//
// Each session runs at most one worker at a time; a stage goroutine launches
// the worker, watches its artifact directory for progress, and resolves the
// stage into the next state machine step. Analysis after the primary stage
// decides between completion, automatic advance to the collaborator stage,
// and waiting for an explicit profile selection. All externally visible
// changes flow through the registry and the event hub.
package orchestrator
