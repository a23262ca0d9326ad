package workflow

import (
	"context"

	"appdl/internal/logging"
	"appdl/internal/queue"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running       bool
	LastError     string
	MaxConcurrent int
	ActiveSlots   int
	Waiting       int
	QueueLimit    int
	QueueStats    map[queue.Status]int
	Unread        int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	unread, err := m.store.UnreadCount(ctx)
	if err != nil {
		m.logger.Warn("failed to read unread count", logging.Error(err))
	}

	summary := StatusSummary{
		Running:       running,
		MaxConcurrent: m.opts.MaxConcurrent,
		ActiveSlots:   min(int(m.active.Load()), m.opts.MaxConcurrent),
		Waiting:       m.queue.len(),
		QueueLimit:    m.opts.QueueLimit,
		QueueStats:    stats,
		Unread:        unread,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
