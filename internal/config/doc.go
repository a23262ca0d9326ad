// Package config loads, normalizes, and validates appdl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// APPDL_API_TOKEN and APPDL_NTFY_TOPIC. The Config type centralizes every knob
// the daemon and CLI need: storage directories, the API bind address, worker
// pool sizing, retry policy, and the yt-dlp fetcher.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
