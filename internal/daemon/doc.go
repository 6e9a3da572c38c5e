// Package daemon coordinates the long-running scout process.
//
// It wires configuration, the session journal, the orchestrator, and the
// event hub into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon also owns the HTTP API surface used by the
// CLI and by streaming subscribers.
//
// Keep orchestration logic out of this package: session state machines and
// stage supervision live in their respective packages while the daemon
// focuses on startup, shutdown, and high level coordination.
package daemon
