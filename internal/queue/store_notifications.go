package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// AppendNotification records an event that is not tied to a status change,
// such as a cookie refresh or a new library folder.
func (s *Store) AppendNotification(ctx context.Context, n *Notification) error {
	ctx = ensureContext(ctx)
	if n == nil {
		return errors.New("append notification: nil notification")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin append: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := insertNotification(ctx, tx, n, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetNotification fetches a notification by id.
func (s *Store) GetNotification(ctx context.Context, id int64) (*Notification, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns notifications newest first. Search matches
// title or message case-insensitively with Unicode case folding.
func (s *Store) ListNotifications(ctx context.Context, filter NotificationFilter) ([]*Notification, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if filter.UnreadOnly {
		clauses = append(clauses, "is_read = 0")
	}
	if len(filter.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+makePlaceholders(len(filter.Kinds))+")")
		for _, kind := range filter.Kinds {
			args = append(args, string(kind))
		}
	}
	if filter.JobID != "" {
		clauses = append(clauses, "job_id = ?")
		args = append(args, filter.JobID)
	}
	query := "SELECT " + notificationColumns + " FROM notifications"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	needle := strings.TrimSpace(filter.Search)
	if needle == "" && filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	folder := cases.Fold()
	needle = folder.String(needle)
	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if needle != "" {
			haystack := folder.String(n.Title + "\n" + n.Message)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, n)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, rows.Err()
}

// MarkRead flips one notification to read. Marking an already read
// notification is a no-op.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ? AND is_read = 0", id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetNotification(ctx, id); err != nil {
		return err
	}
	return nil
}

// MarkAllRead flips every unread notification and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "UPDATE notifications SET is_read = 1 WHERE is_read = 0")
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT COUNT(1) FROM notifications WHERE is_read = 0").Scan(&count); err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}
