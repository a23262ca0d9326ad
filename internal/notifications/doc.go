// Package notifications owns the durable notification log surface used by
// the job manager and the HTTP API.
//
// Every job transition records exactly one notification inside the same
// store transaction; this package builds those records, exposes listing and
// read-state operations, and optionally forwards selected kinds to ntfy once
// they are durable. Forwarding is best effort: the database record is
// authoritative and a push failure never affects a transition.
package notifications
