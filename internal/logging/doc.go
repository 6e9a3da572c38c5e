// Package logging assembles structured slog loggers and attribute helpers used
// across scout services.
//
// It owns the console/JSON handler plumbing and the shared field-name
// constants so every component tags log lines with the same session and
// stage keys. Prefer these constructors over hand-rolled slog setup.
package logging
