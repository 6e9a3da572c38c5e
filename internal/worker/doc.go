// Package worker launches the external scraping worker and supervises its
// lifetime.
//
// The supervisor owns argument construction from the validated request,
// forwards worker stdout/stderr into the daemon log with the worker's own
// severity tags, and maps failures onto the service error markers. Context
// cancellation is graceful: SIGTERM first so the worker can flush partial
// artifacts, SIGKILL after the configured grace period.
package worker
