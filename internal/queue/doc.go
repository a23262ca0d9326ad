// Package queue persists download jobs, their notification log, the cookie
// jar, and the media catalog in SQLite.
//
// The Store manages database connections, schema initialization, busy
// retries, stats queries, and the transactional transition commit that the
// job manager relies on: a job status change and its notification are written
// in one transaction, guarded by a compare-and-swap on the previous status, so
// no partially applied transition is ever observable. Notifications are
// append-only; triggers reject any update other than marking them read and
// reject deletes.
//
// Treat this package as the single source of truth for job statuses and the
// transition table; when you add statuses, notification kinds, or columns,
// update schema.sql and bump schemaVersion.
package queue
