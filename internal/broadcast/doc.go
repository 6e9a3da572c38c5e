// Package broadcast fans session events out to subscribers.
//
// Each session gets its own stream; subscribers attach and detach at will and
// only see events published while attached. Slow consumers lose events rather
// than blocking the orchestrator. Streams close when their session reaches a
// terminal state.
package broadcast
