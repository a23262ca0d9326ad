package queue

import (
	"database/sql"
	"strings"
	"time"

	"appdl/internal/platform"
	"appdl/internal/services"
)

// timeLayout is fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const jobColumns = "id, source_url, platform, status, title, progress, attempt, auto_retries, error_kind, error_message, media_id, size_bytes, next_attempt_at, queued_at, created_at, updated_at"

const notificationColumns = "id, job_id, kind, title, message, reason, attempt, created_at, is_read, persistent"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            string
		sourceURL     string
		platformRaw   string
		statusRaw     string
		title         sql.NullString
		progress      int
		attempt       int
		autoRetries   int
		errorKind     sql.NullString
		errorMessage  sql.NullString
		mediaID       sql.NullString
		sizeBytes     int64
		nextAttemptAt sql.NullString
		queuedRaw     string
		createdRaw    string
		updatedRaw    string
	)
	if err := scanner.Scan(
		&id,
		&sourceURL,
		&platformRaw,
		&statusRaw,
		&title,
		&progress,
		&attempt,
		&autoRetries,
		&errorKind,
		&errorMessage,
		&mediaID,
		&sizeBytes,
		&nextAttemptAt,
		&queuedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		SourceURL:    sourceURL,
		Platform:     platform.Platform(platformRaw),
		Status:       Status(statusRaw),
		Title:        title.String,
		Progress:     progress,
		Attempt:      attempt,
		AutoRetries:  autoRetries,
		ErrorKind:    services.Kind(errorKind.String),
		ErrorMessage: errorMessage.String,
		MediaID:      mediaID.String,
		SizeBytes:    sizeBytes,
	}
	if nextAttemptAt.Valid {
		if next, err := parseTimeString(nextAttemptAt.String); err == nil {
			job.NextAttemptAt = &next
		}
	}
	if queued, err := parseTimeString(queuedRaw); err == nil {
		job.QueuedAt = queued
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanNotification(scanner interface{ Scan(dest ...any) error }) (*Notification, error) {
	var (
		id         int64
		jobID      sql.NullString
		kind       string
		title      string
		message    string
		reason     sql.NullString
		attempt    int
		createdRaw string
		isRead     int
		persistent int
	)
	if err := scanner.Scan(&id, &jobID, &kind, &title, &message, &reason, &attempt, &createdRaw, &isRead, &persistent); err != nil {
		return nil, err
	}
	n := &Notification{
		ID:         id,
		JobID:      jobID.String,
		Kind:       NotificationKind(kind),
		Title:      title,
		Message:    message,
		Reason:     reason.String,
		Attempt:    attempt,
		Read:       isRead != 0,
		Persistent: persistent != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		n.CreatedAt = created
	}
	return n, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(timeLayout, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
