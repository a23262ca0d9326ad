// Package api is the HTTP surface of the daemon. It translates internal
// job, notification and media models into transport-friendly DTOs and serves
// them through a chi router that the browser extension, the dashboard and
// the appdl CLI consume.
//
// # Key Types
//
// Job: transport representation of a download job with progress, error
// classification and the resulting media id.
//
// Notification: one entry of the notification log.
//
// WorkflowStatus / DaemonStatus: manager slots, queue depth, per-status
// counts and dependency availability.
//
// # Errors
//
// Handlers never pick status codes ad hoc. Every failure is classified with
// services.KindOf and mapped by StatusForKind; the body is always
// {"error": "...", "kind": "..."}.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Timestamps use
// RFC3339 with milliseconds in UTC. The bearer token, when configured, guards
// every route except /health so service monitors work unauthenticated.
package api
