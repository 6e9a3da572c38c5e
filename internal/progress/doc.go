// Package progress turns raw filesystem changes in a session directory into
// interpreted stage progress.
//
// Changes are debounced so bursts of writes collapse into one read. Within a
// settle window the result file is always processed before the done marker,
// and the marker triggers a final re-read of the result so completion counts
// never trail the file on disk.
package progress
