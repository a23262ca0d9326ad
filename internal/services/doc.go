// Package services defines shared utilities consumed by the job manager, the
// HTTP API, and the external integrations (yt-dlp, the media library).
//
// Key responsibilities:
//   - The classified error taxonomy. Collaborators tag failures with one of
//     the exported markers via Wrap; KindOf recovers the Kind so the manager
//     can route it to the retry policy and the API can pick a status code.
//     Classification happens once, at the integration boundary.
//   - Context helpers that stamp job IDs, platforms, and correlation
//     identifiers for logging.
package services
