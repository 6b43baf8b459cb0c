// Package logging assembles structured slog loggers and formatting helpers used
// across shipit.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// records with run IDs, workflow names, and stage names. The console handler
// folds component/workflow/stage into a single subject prefix. A no-op logger
// is provided for tests and wiring code that cannot fail.
//
// The operator-facing line display is a separate concern (internal/outputsink);
// these loggers write to the log file.
package logging
