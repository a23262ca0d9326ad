package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"appdl/internal/config"
	"appdl/internal/queue"
)

const userAgent = "appdl/0.1.0"

// Forwarder pushes a durable notification to an external channel.
type Forwarder interface {
	Forward(ctx context.Context, n *queue.Notification) error
}

// NewForwarder builds an ntfy forwarder when a topic is configured. When no
// topic is configured, a noop implementation is returned.
func NewForwarder(cfg *config.Config) Forwarder {
	if cfg == nil {
		return noopForwarder{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopForwarder{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	kinds := make(map[queue.NotificationKind]struct{}, len(cfg.Notifications.ForwardKinds))
	for _, raw := range cfg.Notifications.ForwardKinds {
		if kind, ok := queue.ParseNotificationKind(raw); ok {
			kinds[kind] = struct{}{}
		}
	}
	return &ntfyForwarder{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		kinds:    kinds,
	}
}

type ntfyForwarder struct {
	endpoint string
	client   *http.Client
	kinds    map[queue.NotificationKind]struct{}
}

var kindTags = map[queue.NotificationKind][]string{
	queue.KindStarted:        {"arrow_down"},
	queue.KindCompleted:      {"white_check_mark"},
	queue.KindFailed:         {"x"},
	queue.KindRetried:        {"repeat"},
	queue.KindPaused:         {"pause_button"},
	queue.KindResumed:        {"arrow_forward"},
	queue.KindCancelled:      {"no_entry_sign"},
	queue.KindLibraryCreated: {"file_folder"},
	queue.KindSystem:         {"gear"},
}

func (f *ntfyForwarder) Forward(ctx context.Context, n *queue.Notification) error {
	if f == nil || f.client == nil || n == nil {
		return nil
	}
	if _, ok := f.kinds[n.Kind]; !ok {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(n.Message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if n.Title != "" {
		req.Header.Set("Title", "appdl - "+n.Title)
	}
	tags := append([]string{"appdl", string(n.Kind)}, kindTags[n.Kind]...)
	req.Header.Set("Tags", strings.Join(tags, ","))
	if n.Kind == queue.KindFailed {
		req.Header.Set("Priority", "high")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopForwarder struct{}

func (noopForwarder) Forward(context.Context, *queue.Notification) error { return nil }
