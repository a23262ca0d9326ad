// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The media library uses it to classify downloaded files (video, audio, or
// still image) and to fill in durations when the fetcher metadata lacks them.
package ffprobe
