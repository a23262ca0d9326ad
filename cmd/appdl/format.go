package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"appdl/internal/api"
)

// API timestamps carry milliseconds; RFC3339 parsing accepts them.
func parseAPITime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func relativeTime(value string, now time.Time) string {
	ts, ok := parseAPITime(value)
	if !ok {
		return "-"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(bytes))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func jobProgress(job api.Job) string {
	switch job.Status {
	case "downloading", "paused":
		return strconv.Itoa(job.Progress) + "%"
	case "completed":
		return "100%"
	default:
		return "-"
	}
}

func jobTitle(job api.Job) string {
	if strings.TrimSpace(job.Title) != "" {
		return job.Title
	}
	return job.URL
}

func jobDetail(job api.Job, now time.Time) string {
	switch {
	case job.ErrorKind != "":
		return job.ErrorKind + ": " + job.ErrorMessage
	case job.Status == "queued" && job.NextAttemptAt != "":
		return "retry " + relativeTime(job.NextAttemptAt, now)
	case job.SizeBytes > 0:
		return formatSize(job.SizeBytes)
	default:
		return ""
	}
}
