// Package daemon owns the long-running process: it enforces a single
// instance through a file lock, starts the job manager and serves the HTTP
// API. Status and Health aggregate the manager, the database, the media
// library and external binaries for the /api/status and /health routes.
package daemon
