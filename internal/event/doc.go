// Package event defines the envelope and type vocabulary for session event
// streams delivered to subscribers.
package event
