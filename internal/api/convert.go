package api

import (
	"slices"
	"time"

	"appdl/internal/media"
	"appdl/internal/queue"
	"appdl/internal/workflow"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromJob converts a job record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		ID:           job.ID,
		URL:          job.SourceURL,
		Platform:     string(job.Platform),
		PlatformName: job.Platform.DisplayName(),
		Status:       string(job.Status),
		Title:        job.Title,
		Progress:     job.Progress,
		Attempt:      job.Attempt,
		AutoRetries:  job.AutoRetries,
		ErrorKind:    string(job.ErrorKind),
		ErrorMessage: job.ErrorMessage,
		MediaID:      job.MediaID,
		SizeBytes:    job.SizeBytes,
		QueuedAt:     formatTime(job.QueuedAt),
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.NextAttemptAt != nil {
		dto.NextAttemptAt = formatTime(*job.NextAttemptAt)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromNotification converts a notification record.
func FromNotification(n *queue.Notification) Notification {
	if n == nil {
		return Notification{}
	}
	return Notification{
		ID:         n.ID,
		JobID:      n.JobID,
		Kind:       string(n.Kind),
		Title:      n.Title,
		Message:    n.Message,
		Reason:     n.Reason,
		Attempt:    n.Attempt,
		CreatedAt:  formatTime(n.CreatedAt),
		Read:       n.Read,
		Persistent: n.Persistent,
	}
}

// FromNotifications converts a slice of notification records.
func FromNotifications(notes []*queue.Notification) []Notification {
	out := make([]Notification, 0, len(notes))
	for _, n := range notes {
		out = append(out, FromNotification(n))
	}
	return out
}

// FromMediaItem converts a library catalog entry.
func FromMediaItem(item *media.Item) MediaItem {
	if item == nil {
		return MediaItem{}
	}
	return MediaItem{
		ID:        item.ID,
		Hash:      item.Hash,
		Path:      item.Path,
		SizeBytes: item.SizeBytes,
		Type:      string(item.Type),
		Title:     item.Title,
		Platform:  string(item.Platform),
		SourceURL: item.SourceURL,
		Duration:  item.Duration,
		CreatedAt: formatTime(item.CreatedAt),
	}
}

// FromStatusSummary converts workflow diagnostics. Every status appears in
// QueueStats, zero counts included.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	return WorkflowStatus{
		Running:       summary.Running,
		MaxConcurrent: summary.MaxConcurrent,
		ActiveSlots:   summary.ActiveSlots,
		Waiting:       summary.Waiting,
		QueueLimit:    summary.QueueLimit,
		QueueStats:    MergeQueueStats(summary.QueueStats),
		Unread:        summary.Unread,
		LastError:     summary.LastError,
	}
}

// MergeQueueStats keys counts by status string, filling absent statuses.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// SortedStatusKeys returns QueueStats keys in state machine order.
func SortedStatusKeys(stats map[string]int) []string {
	order := queue.AllStatuses()
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return slices.Index(order, queue.Status(a)) - slices.Index(order, queue.Status(b))
	})
	return keys
}
