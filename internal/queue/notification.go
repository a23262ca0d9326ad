package queue

import (
	"strings"
	"time"
)

// NotificationKind classifies a notification.
type NotificationKind string

const (
	KindStarted        NotificationKind = "started"
	KindCompleted      NotificationKind = "completed"
	KindFailed         NotificationKind = "failed"
	KindRetried        NotificationKind = "retried"
	KindPaused         NotificationKind = "paused"
	KindResumed        NotificationKind = "resumed"
	KindCancelled      NotificationKind = "cancelled"
	KindLibraryCreated NotificationKind = "libraryCreated"
	KindSystem         NotificationKind = "system"
)

var allNotificationKinds = []NotificationKind{
	KindStarted,
	KindCompleted,
	KindFailed,
	KindRetried,
	KindPaused,
	KindResumed,
	KindCancelled,
	KindLibraryCreated,
	KindSystem,
}

// AllNotificationKinds returns every notification kind.
func AllNotificationKinds() []NotificationKind {
	out := make([]NotificationKind, len(allNotificationKinds))
	copy(out, allNotificationKinds)
	return out
}

// ParseNotificationKind resolves a kind name case-insensitively.
func ParseNotificationKind(value string) (NotificationKind, bool) {
	value = strings.TrimSpace(value)
	for _, kind := range allNotificationKinds {
		if strings.EqualFold(string(kind), value) {
			return kind, true
		}
	}
	return "", false
}

// Notification is an immutable record of one job or system event. Only Read
// ever changes, and only from false to true.
type Notification struct {
	ID      int64
	JobID   string
	Kind    NotificationKind
	Title   string
	Message string
	// Reason explains a retry or stop decision (error kind and policy verdict).
	Reason     string
	Attempt    int
	CreatedAt  time.Time
	Read       bool
	Persistent bool
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	UnreadOnly bool
	Kinds      []NotificationKind
	JobID      string
	Search     string
	Limit      int
}

// ParseNotificationFilter maps the API filter keyword (all, unread, a kind
// name, or the "download" group) onto a NotificationFilter.
func ParseNotificationFilter(value string) (NotificationFilter, bool) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "all":
		return NotificationFilter{}, true
	case "unread":
		return NotificationFilter{UnreadOnly: true}, true
	case "download", "downloads":
		return NotificationFilter{Kinds: []NotificationKind{KindStarted, KindCompleted}}, true
	}
	if kind, ok := ParseNotificationKind(value); ok {
		return NotificationFilter{Kinds: []NotificationKind{kind}}, true
	}
	return NotificationFilter{}, false
}
