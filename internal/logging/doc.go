// Package logging assembles structured slog loggers and formatting helpers used
// across batchenc.
//
// It owns the console and JSON handlers, tees every record into the log file
// without terminal colors, and exposes context-aware helpers so run code can
// tag log lines with run IDs, job indexes and input paths. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
