package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"appdl/internal/logging"
	"appdl/internal/queue"
)

// Store is the persistence the service reads and appends through.
type Store interface {
	AppendNotification(ctx context.Context, n *queue.Notification) error
	ListNotifications(ctx context.Context, filter queue.NotificationFilter) ([]*queue.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) (int64, error)
	UnreadCount(ctx context.Context) (int, error)
}

// Service exposes the notification log and forwards durable records.
type Service struct {
	store     Store
	forwarder Forwarder
	logger    *slog.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewService wraps store. A nil forwarder disables push forwarding.
func NewService(store Store, forwarder Forwarder, logger *slog.Logger) *Service {
	if forwarder == nil {
		forwarder = noopForwarder{}
	}
	return &Service{
		store:     store,
		forwarder: forwarder,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		timeout:   15 * time.Second,
	}
}

// Append records a notification that is not part of a job transition and
// forwards it once durable.
func (s *Service) Append(ctx context.Context, n *queue.Notification) error {
	if err := s.store.AppendNotification(ctx, n); err != nil {
		return err
	}
	s.Forward(n)
	return nil
}

// Forward pushes an already committed notification in the background.
func (s *Service) Forward(n *queue.Notification) {
	if s == nil || n == nil {
		return
	}
	if _, noop := s.forwarder.(noopForwarder); noop {
		return
	}
	note := *n
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.forwarder.Forward(ctx, &note); err != nil {
			logging.WarnWithContext(s.logger, "notification forward failed", "notification_forward_failed",
				logging.String(logging.FieldJobID, note.JobID),
				logging.String("kind", string(note.Kind)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network reachability"),
				logging.String(logging.FieldImpact, "push notification not delivered; the notification log is unaffected"),
			)
		}
	}()
}

// List returns notifications matching filter together with the unread count.
func (s *Service) List(ctx context.Context, filter queue.NotificationFilter) ([]*queue.Notification, int, error) {
	notes, err := s.store.ListNotifications(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.UnreadCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return notes, unread, nil
}

// MarkRead acknowledges one notification.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.store.MarkRead(ctx, id)
}

// MarkAllRead acknowledges every unread notification. Calling it again
// changes nothing.
func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.logger.Debug("notifications marked read", logging.Int64("updated", updated))
	}
	return updated, nil
}

// UnreadCount returns the badge count.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	return s.store.UnreadCount(ctx)
}

// Close waits for in-flight forwards.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.wg.Wait()
}
