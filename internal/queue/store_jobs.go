package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"appdl/internal/platform"
)

// CreateJob inserts a new queued job for a normalized URL.
func (s *Store) CreateJob(ctx context.Context, sourceURL string, plat platform.Platform) (*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		Platform:  plat,
		Status:    StatusQueued,
		QueuedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := job.validate(); err != nil {
		return nil, err
	}
	ts := formatTime(now)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (id, source_url, platform, status, progress, attempt, auto_retries, size_bytes, queued_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, 0, 0, 0, ?, ?, ?)`,
		job.ID, job.SourceURL, string(job.Platform), string(job.Status), ts, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if len(filter.Platforms) > 0 {
		clauses = append(clauses, "platform IN ("+makePlaceholders(len(filter.Platforms))+")")
		for _, plat := range filter.Platforms {
			args = append(args, string(plat))
		}
	}
	query := "SELECT " + jobColumns + " FROM jobs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return s.queryJobs(ctx, query, args...)
}

// QueuedJobs returns queued jobs in admission order.
func (s *Store) QueuedJobs(ctx context.Context) ([]*Job, error) {
	return s.queryJobs(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY queued_at, id",
		string(StatusQueued),
	)
}

// InterruptedJobs returns jobs left downloading or paused by a previous run.
func (s *Store) InterruptedJobs(ctx context.Context) ([]*Job, error) {
	return s.queryJobs(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM jobs WHERE status IN (?, ?) ORDER BY queued_at, id",
		string(StatusDownloading), string(StatusPaused),
	)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateProgress records download progress for a job that is still
// downloading. It reports false when the job has since left that state.
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int, title string) (bool, error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET progress = ?, title = COALESCE(?, title), updated_at = ?
		 WHERE id = ? AND status = ?`,
		progress, nullableString(title), formatTime(time.Now()), id, string(StatusDownloading),
	)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
