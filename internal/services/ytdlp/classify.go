package ytdlp

import (
	"strings"

	"appdl/internal/services"
)

var classifyHints = []struct {
	marker error
	hints  []string
}{
	{services.ErrUnsupportedPlatform, []string{
		"unsupported url",
		"is not a valid url",
	}},
	{services.ErrQuotaExceeded, []string{
		"http error 429",
		"too many requests",
		"rate-limit",
		"rate limit",
		"rate-limited",
	}},
	{services.ErrAuthRequired, []string{
		"sign in to confirm",
		"login required",
		"log in to",
		"requires authentication",
		"private video",
		"video is private",
		"account cookies",
		"use --cookies",
		"confirm your age",
		"http error 401",
		"members-only",
	}},
	{services.ErrNetwork, []string{
		"timed out",
		"timeout",
		"connection reset",
		"connection refused",
		"connection aborted",
		"temporary failure in name resolution",
		"name or service not known",
		"network is unreachable",
		"temporarily unavailable",
		"service unavailable",
		"http error 5",
		"unable to download webpage",
		"unable to download video data",
		"read error",
		"incompleteread",
		"ssl:",
	}},
}

// classify maps yt-dlp output onto an error marker. Unknown failures are
// internal errors and are not retried automatically.
func classify(lines []string) error {
	text := strings.ToLower(strings.Join(lines, "\n"))
	for _, entry := range classifyHints {
		for _, hint := range entry.hints {
			if strings.Contains(text, hint) {
				return entry.marker
			}
		}
	}
	return services.ErrInternal
}

// errorSummary returns the most relevant line for the notification message.
func errorSummary(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return truncate(strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")), 300)
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return truncate(line, 300)
		}
	}
	return "yt-dlp failed"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
