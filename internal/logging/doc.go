// Package logging assembles structured slog loggers and formatting helpers used
// across appdl services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so worker and API code can
// automatically tag log lines with job IDs, platforms, and correlation IDs.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail, and a progress sampler that keeps download progress from
// flooding the log.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
