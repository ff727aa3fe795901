// Package logging assembles structured slog loggers and formatting helpers used
// across reawwise.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so the preview and import jobs
// can tag log lines with the session name, job kind, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
