package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Transition moves one job between statuses and records the matching
// notification in the same database transaction.
type Transition struct {
	// From is the status the caller observed; the update only applies when
	// the stored status still matches.
	From Status
	// Job carries the full target state.
	Job *Job
	// Note is appended alongside the status change. Nil records nothing.
	Note *Notification
	// Recovery permits the startup path from a slot-holding status back to
	// queued, which the regular state machine does not allow from paused.
	Recovery bool
}

// CommitTransition applies t atomically. On success the job's UpdatedAt and
// the note's ID and CreatedAt are filled in. Any failure leaves both the job
// row and the notification log untouched.
func (s *Store) CommitTransition(ctx context.Context, t Transition) error {
	ctx = ensureContext(ctx)
	job := t.Job
	if job == nil {
		return fmt.Errorf("%w: transition without job", ErrInvariant)
	}
	allowed := CanTransition(t.From, job.Status)
	if t.Recovery {
		allowed = t.From.HoldsSlot() && job.Status == StatusQueued
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s not permitted", ErrInvariant, t.From, job.Status)
	}
	if err := job.validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transition: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, title = ?, progress = ?, attempt = ?, auto_retries = ?,
			 error_kind = ?, error_message = ?, media_id = ?, size_bytes = ?, next_attempt_at = ?,
			 queued_at = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(job.Status),
			nullableString(job.Title),
			job.Progress,
			job.Attempt,
			job.AutoRetries,
			nullableString(string(job.ErrorKind)),
			nullableString(job.ErrorMessage),
			nullableString(job.MediaID),
			job.SizeBytes,
			nullableTime(job.NextAttemptAt),
			formatTime(job.QueuedAt),
			formatTime(now),
			job.ID,
			string(t.From),
		)
		if err != nil {
			return fmt.Errorf("update job status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs WHERE id = ?", job.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check job: %w", err)
			}
			if exists == 0 {
				return ErrJobNotFound
			}
			return fmt.Errorf("%w: job %s is no longer %s", ErrStaleTransition, job.ID, t.From)
		}

		if t.Note != nil {
			if t.Note.JobID == "" {
				t.Note.JobID = job.ID
			}
			if err := insertNotification(ctx, tx, t.Note, now); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		job.UpdatedAt = now
		return nil
	})
}

// insertNotification appends n inside tx. created_at is kept strictly
// increasing per job so readers see job events in commit order.
func insertNotification(ctx context.Context, tx *sql.Tx, n *Notification, now time.Time) error {
	createdAt := now
	if n.JobID != "" {
		var latest sql.NullString
		if err := tx.QueryRowContext(ctx,
			"SELECT MAX(created_at) FROM notifications WHERE job_id = ?", n.JobID,
		).Scan(&latest); err != nil {
			return fmt.Errorf("read latest notification: %w", err)
		}
		if latest.Valid {
			if prev, err := parseTimeString(latest.String); err == nil && !createdAt.After(prev) {
				createdAt = prev.Add(time.Microsecond)
			}
		}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (job_id, kind, title, message, reason, attempt, created_at, is_read, persistent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		nullableString(n.JobID),
		string(n.Kind),
		n.Title,
		n.Message,
		nullableString(n.Reason),
		n.Attempt,
		formatTime(createdAt),
		boolToInt(n.Persistent),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("notification id: %w", err)
	}
	n.ID = id
	n.CreatedAt = createdAt
	n.Read = false
	return nil
}

// IsStale reports whether err came from a lost compare-and-set.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleTransition)
}
