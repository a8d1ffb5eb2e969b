// Package logging assembles structured slog loggers and formatting helpers used
// across dualout.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so coordinator code can tag log
// lines with the collection being edited. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
