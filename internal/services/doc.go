// Package services defines the shared error taxonomy consumed by the
// orchestrator, its components, and the transport layers.
//
// Structured error markers plus the Wrap helper translate failures into
// consistent classifications (invalid request vs not found vs terminal
// session failures) that the HTTP and IPC boundaries map onto their own
// status codes. Use these markers when wiring new pipeline logic so error
// handling stays uniform.
package services
