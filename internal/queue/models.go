package queue

import (
	"fmt"
	"strings"
	"time"

	"appdl/internal/platform"
	"appdl/internal/services"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusPaused,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the job state machine.
var transitions = map[Status][]Status{
	StatusQueued:      {StatusDownloading, StatusCancelled},
	StatusDownloading: {StatusCompleted, StatusPaused, StatusFailed, StatusQueued, StatusCancelled},
	StatusPaused:      {StatusDownloading, StatusCancelled},
	StatusFailed:      {StatusQueued},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status if recognized.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no automatic transition leaves the status.
// Failed jobs only move again on an explicit user retry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// HoldsSlot reports whether a job in this status occupies a worker slot.
func (s Status) HoldsSlot() bool {
	return s == StatusDownloading || s == StatusPaused
}

// Job is one download attempt lineage.
type Job struct {
	ID        string
	SourceURL string
	Platform  platform.Platform
	Status    Status
	Title     string
	Progress  int
	// Attempt counts every retry, automatic or user-initiated.
	Attempt int
	// AutoRetries counts automatic retries since the last user action.
	AutoRetries   int
	ErrorKind     services.Kind
	ErrorMessage  string
	MediaID       string
	SizeBytes     int64
	NextAttemptAt *time.Time
	QueuedAt      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.NextAttemptAt != nil {
		next := *j.NextAttemptAt
		clone.NextAttemptAt = &next
	}
	return &clone
}

// DisplayTitle returns the title or, before metadata is known, the source URL.
func (j *Job) DisplayTitle() string {
	if j == nil {
		return ""
	}
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}
	return j.SourceURL
}

// Eligible reports whether a queued job may be admitted at now.
func (j *Job) Eligible(now time.Time) bool {
	return j.NextAttemptAt == nil || !j.NextAttemptAt.After(now)
}

func (j *Job) validate() error {
	if j == nil {
		return fmt.Errorf("%w: job is nil", ErrInvariant)
	}
	if _, ok := statusSet[j.Status]; !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, j.Status)
	}
	if (j.Status == StatusCompleted) != (j.MediaID != "") {
		return fmt.Errorf("%w: media id must be set exactly when completed (status %s)", ErrInvariant, j.Status)
	}
	if j.Status != StatusFailed && (j.ErrorKind != "" || j.ErrorMessage != "") {
		return fmt.Errorf("%w: error present on %s job", ErrInvariant, j.Status)
	}
	if j.Status == StatusFailed && j.ErrorKind == "" {
		return fmt.Errorf("%w: failed job without error kind", ErrInvariant)
	}
	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("%w: progress %d out of range", ErrInvariant, j.Progress)
	}
	return nil
}

// JobFilter narrows List results. Empty slices match everything.
type JobFilter struct {
	Statuses  []Status
	Platforms []platform.Platform
	Limit     int
}
