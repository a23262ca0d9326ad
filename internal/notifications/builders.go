package notifications

import (
	"fmt"
	"strings"

	"appdl/internal/platform"
	"appdl/internal/queue"
	"appdl/internal/services"
)

func jobNote(job *queue.Job, kind queue.NotificationKind, title, message, reason string) *queue.Notification {
	return &queue.Notification{
		JobID:      job.ID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		Reason:     reason,
		Attempt:    job.Attempt,
		Persistent: true,
	}
}

func subject(job *queue.Job) string {
	return fmt.Sprintf("%s (%s)", job.DisplayTitle(), job.Platform.DisplayName())
}

// Started is recorded when a worker begins fetching.
func Started(job *queue.Job) *queue.Notification {
	msg := "Downloading " + subject(job)
	if job.Attempt > 0 {
		msg = fmt.Sprintf("%s, attempt %d", msg, job.Attempt+1)
	}
	return jobNote(job, queue.KindStarted, "Download started", msg, "")
}

// Completed is recorded when the media store accepted the file.
func Completed(job *queue.Job) *queue.Notification {
	return jobNote(job, queue.KindCompleted, "Download complete", "Saved "+subject(job), "")
}

// Failed is recorded on a terminal failure. The message carries the
// classified error and, where one exists, what the user can do about it.
func Failed(job *queue.Job, reason string) *queue.Notification {
	var b strings.Builder
	b.WriteString(subject(job))
	b.WriteString(" failed")
	if job.ErrorMessage != "" {
		b.WriteString(": ")
		b.WriteString(job.ErrorMessage)
	}
	if hint := Hint(job.ErrorKind, job.SourceURL); hint != "" {
		b.WriteString(". ")
		b.WriteString(hint)
	}
	return jobNote(job, queue.KindFailed, "Download failed", b.String(), reason)
}

// Retried is recorded whenever a job goes back to the queue.
func Retried(job *queue.Job, reason string) *queue.Notification {
	msg := fmt.Sprintf("%s queued again, attempt %d", subject(job), job.Attempt)
	return jobNote(job, queue.KindRetried, "Download retrying", msg, reason)
}

// Paused is recorded when the user pauses a running download.
func Paused(job *queue.Job) *queue.Notification {
	return jobNote(job, queue.KindPaused, "Download paused", "Paused "+subject(job), "")
}

// Resumed is recorded when a paused download continues.
func Resumed(job *queue.Job) *queue.Notification {
	return jobNote(job, queue.KindResumed, "Download resumed", "Resumed "+subject(job), "")
}

// Cancelled is informational; cancellation is not a failure.
func Cancelled(job *queue.Job) *queue.Notification {
	return jobNote(job, queue.KindCancelled, "Download cancelled", "Cancelled "+subject(job), "")
}

// LibraryCreated is recorded when the library creates a platform folder.
func LibraryCreated(plat platform.Platform, dir string) *queue.Notification {
	return &queue.Notification{
		Kind:       queue.KindLibraryCreated,
		Title:      "Library folder created",
		Message:    fmt.Sprintf("New %s folder at %s", plat.DisplayName(), dir),
		Persistent: true,
	}
}

// System builds a notification not tied to any job.
func System(title, message string) *queue.Notification {
	return &queue.Notification{
		Kind:       queue.KindSystem,
		Title:      title,
		Message:    message,
		Persistent: true,
	}
}

// CookiesUpdated is recorded after a cookie sync replaced an origin's cookies.
func CookiesUpdated(host string, count int) *queue.Notification {
	return System("Cookies updated", fmt.Sprintf("Stored %d cookies for %s. Retry failed downloads to use them.", count, host))
}

// Recovered is recorded on startup when interrupted jobs were requeued.
func Recovered(count int) *queue.Notification {
	noun := "downloads"
	if count == 1 {
		noun = "download"
	}
	return System("Downloads recovered", fmt.Sprintf("Requeued %d interrupted %s after restart", count, noun))
}

// Hint returns user-facing guidance for a failure kind.
func Hint(kind services.Kind, sourceURL string) string {
	switch kind {
	case services.KindAuthRequired:
		host := "the site"
		if u, err := platform.Normalize(sourceURL); err == nil {
			host = platform.CanonicalHost(u.Hostname())
		}
		return fmt.Sprintf("Sign in to %s, refresh cookies with the browser extension, then retry", host)
	case services.KindQuotaExceeded:
		return "The platform is rate limiting; wait a while before retrying"
	case services.KindNetwork:
		return "Automatic retries were exhausted; check connectivity and retry"
	case services.KindUnsupportedPlatform:
		return "This link cannot be downloaded"
	default:
		return ""
	}
}
