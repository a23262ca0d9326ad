// Package ytdlp mediates access to the yt-dlp CLI used to fetch media.
//
// It builds the command line, writes per-job Netscape cookie files from the
// cookies synced by the browser extension, parses --newline progress output,
// and classifies failures into the services error taxonomy so the job
// manager can route them to the retry policy without inspecting strings.
//
// Prefer this package over ad-hoc exec.Command usage when invoking yt-dlp so
// classification and progress reporting stay consistent.
package ytdlp
