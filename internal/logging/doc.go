// Package logging assembles structured slog loggers and formatting helpers used
// across the diary assistant.
//
// It owns the console and JSON handlers, fans records out to the terminal and the
// log file, and exposes context-aware helpers so task code automatically tags log
// lines with run, task, and request identifiers. The package also provides a no-op
// logger for tests and wiring code that cannot fail, plus retention pruning for
// log, diagnostics, and interaction directories.
package logging
