package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"appdl/internal/logging"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/services"
	"appdl/internal/testsupport"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured []capturedRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]capturedRequest, len(captured))
		copy(out, captured)
		return out
	}
}

func TestNewForwarderReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	fwd := notifications.NewForwarder(cfg)
	if err := fwd.Forward(context.Background(), notifications.System("x", "y")); err != nil {
		t.Fatalf("expected noop forwarder to return nil, got %v", err)
	}
}

func TestForwarderSendsSelectedKinds(t *testing.T) {
	server, captured := newNtfyServer(t)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ForwardKinds = []string{"failed"}
	fwd := notifications.NewForwarder(cfg)

	job := &queue.Job{ID: "j1", SourceURL: "https://www.youtube.com/watch?v=1", Platform: "youtube", Title: "Clip",
		Status: queue.StatusFailed, ErrorKind: services.KindAuthRequired, ErrorMessage: "sign in to confirm"}
	if err := fwd.Forward(context.Background(), notifications.Failed(job, "AuthRequired")); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if err := fwd.Forward(context.Background(), notifications.Started(job)); err != nil {
		t.Fatalf("Forward started: %v", err)
	}

	got := captured()
	if len(got) != 1 {
		t.Fatalf("expected only the failed notification to be forwarded, got %d", len(got))
	}
	if got[0].title != "appdl - Download failed" {
		t.Fatalf("unexpected title %q", got[0].title)
	}
	if got[0].priority != "high" {
		t.Fatalf("expected high priority, got %q", got[0].priority)
	}
	if !strings.HasPrefix(got[0].tags, "appdl,failed") {
		t.Fatalf("unexpected tags %q", got[0].tags)
	}
	if !strings.Contains(got[0].body, "refresh cookies") || !strings.Contains(got[0].body, "youtube.com") {
		t.Fatalf("expected cookie hint in body, got %q", got[0].body)
	}
}

func TestForwarderReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ForwardKinds = []string{"system"}
	err := notifications.NewForwarder(cfg).Forward(context.Background(), notifications.System("t", "m"))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestServiceAppendForwardsAfterPersisting(t *testing.T) {
	server, captured := newNtfyServer(t)
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ForwardKinds = []string{"system"}
	store := testsupport.MustOpenStore(t, cfg)
	svc := notifications.NewService(store, notifications.NewForwarder(cfg), logging.NewNop())

	ctx := context.Background()
	if err := svc.Append(ctx, notifications.CookiesUpdated("youtube.com", 4)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	svc.Close()

	notes, unread, err := svc.List(ctx, queue.NotificationFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(notes) != 1 || unread != 1 || notes[0].Kind != queue.KindSystem || notes[0].JobID != "" {
		t.Fatalf("unexpected notifications %+v unread=%d", notes, unread)
	}
	if got := captured(); len(got) != 1 {
		t.Fatalf("expected one forwarded notification, got %d", len(got))
	}

	updated, err := svc.MarkAllRead(ctx)
	if err != nil || updated != 1 {
		t.Fatalf("MarkAllRead: updated=%d err=%v", updated, err)
	}
	updated, err = svc.MarkAllRead(ctx)
	if err != nil || updated != 0 {
		t.Fatalf("second MarkAllRead: updated=%d err=%v", updated, err)
	}
}

func TestBuildersCarryAttemptAndReason(t *testing.T) {
	job := &queue.Job{ID: "j2", SourceURL: "https://vm.tiktok.com/abc", Platform: "tiktok", Attempt: 2}
	note := notifications.Retried(job, "NetworkError: retry 2 of 3 in 4s")
	if note.Kind != queue.KindRetried || note.Attempt != 2 || note.JobID != "j2" || !note.Persistent {
		t.Fatalf("unexpected retried notification %+v", note)
	}
	if !strings.Contains(note.Message, "attempt 2") || note.Reason == "" {
		t.Fatalf("expected attempt and reason, got %+v", note)
	}
	cancelled := notifications.Cancelled(job)
	if cancelled.Kind != queue.KindCancelled || cancelled.Reason != "" {
		t.Fatalf("unexpected cancelled notification %+v", cancelled)
	}
}

func TestHint(t *testing.T) {
	if hint := notifications.Hint(services.KindAuthRequired, "https://www.instagram.com/p/x"); !strings.Contains(hint, "instagram.com") {
		t.Fatalf("unexpected auth hint %q", hint)
	}
	if hint := notifications.Hint(services.KindInternal, ""); hint != "" {
		t.Fatalf("expected no hint for internal errors, got %q", hint)
	}
}
