package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"appdl/internal/media"
	"appdl/internal/platform"
	"appdl/internal/queue"
	"appdl/internal/services"
	"appdl/internal/testsupport"
)

func startDownload(t *testing.T, store *queue.Store, job *queue.Job) {
	t.Helper()
	next := job.Clone()
	next.Status = queue.StatusDownloading
	note := &queue.Notification{Kind: queue.KindStarted, Title: "Download started", Message: job.SourceURL}
	if err := store.CommitTransition(context.Background(), queue.Transition{From: queue.StatusQueued, Job: next, Note: note}); err != nil {
		t.Fatalf("start download: %v", err)
	}
	*job = *next
}

func TestCreateAndGetJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=abc123")
	if job.ID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if job.Status != queue.StatusQueued || job.Platform != platform.YouTube {
		t.Fatalf("unexpected new job: %+v", job)
	}

	fetched, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.SourceURL != job.SourceURL || fetched.Attempt != 0 || fetched.MediaID != "" {
		t.Fatalf("unexpected fetched job: %+v", fetched)
	}
	if !fetched.QueuedAt.Equal(job.QueuedAt) {
		t.Fatalf("queued_at mismatch: got %v want %v", fetched.QueuedAt, job.QueuedAt)
	}
}

func TestGetJobNotFound(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.GetJob(context.Background(), "missing")
	if !errors.Is(err, queue.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if services.KindOf(err) != services.KindNotFound {
		t.Fatalf("expected NotFound kind, got %s", services.KindOf(err))
	}
}

func TestCommitTransitionAppendsNotification(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://www.tiktok.com/@user/video/1")

	startDownload(t, store, job)

	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Status != queue.StatusDownloading {
		t.Fatalf("expected downloading, got %s", fetched.Status)
	}
	notes, err := store.ListNotifications(ctx, queue.NotificationFilter{JobID: job.ID})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Kind != queue.KindStarted || notes[0].Read {
		t.Fatalf("expected one unread started notification, got %+v", notes)
	}
}

func TestCommitTransitionRejectsStaleSource(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "https://reddit.com/r/videos/comments/x")

	next := job.Clone()
	next.Status = queue.StatusCancelled
	err := store.CommitTransition(context.Background(), queue.Transition{
		From: queue.StatusDownloading,
		Job:  next,
		Note: &queue.Notification{Kind: queue.KindCancelled, Title: "Cancelled"},
	})
	if !errors.Is(err, queue.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
	count, err := store.UnreadCount(context.Background())
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no notification after stale transition, got %d", count)
	}
}

func TestCommitTransitionRejectsIllegalEdge(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "https://www.instagram.com/p/abc/")

	next := job.Clone()
	next.Status = queue.StatusPaused
	err := store.CommitTransition(context.Background(), queue.Transition{From: queue.StatusQueued, Job: next})
	if !errors.Is(err, queue.ErrInvariant) {
		t.Fatalf("expected ErrInvariant for queued -> paused, got %v", err)
	}
}

func TestCommitTransitionEnforcesMediaInvariant(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job := testsupport.NewJob(t, store, "https://x.com/user/status/1")
	startDownload(t, store, job)

	next := job.Clone()
	next.Status = queue.StatusCompleted
	err := store.CommitTransition(context.Background(), queue.Transition{From: queue.StatusDownloading, Job: next})
	if !errors.Is(err, queue.ErrInvariant) {
		t.Fatalf("expected ErrInvariant for completed without media, got %v", err)
	}

	failed := job.Clone()
	failed.Status = queue.StatusFailed
	err = store.CommitTransition(context.Background(), queue.Transition{From: queue.StatusDownloading, Job: failed})
	if !errors.Is(err, queue.ErrInvariant) {
		t.Fatalf("expected ErrInvariant for failed without error kind, got %v", err)
	}
}

func TestCommitTransitionRollsBackOnNotificationFailure(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=rollback")
	startDownload(t, store, job)

	next := job.Clone()
	next.Status = queue.StatusFailed
	next.ErrorKind = services.KindAuthRequired
	next.ErrorMessage = "sign in required"
	err := store.CommitTransition(ctx, queue.Transition{
		From: queue.StatusDownloading,
		Job:  next,
		Note: &queue.Notification{Kind: queue.NotificationKind("bogus"), Title: "x"},
	})
	if err == nil {
		t.Fatal("expected commit to fail for unknown notification kind")
	}
	if services.KindOf(err) != services.KindInternal {
		t.Fatalf("expected internal error kind, got %s", services.KindOf(err))
	}

	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Status != queue.StatusDownloading || fetched.ErrorKind != "" {
		t.Fatalf("expected job unchanged after rollback, got %+v", fetched)
	}
	notes, err := store.ListNotifications(ctx, queue.NotificationFilter{JobID: job.ID})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected only the started notification, got %d", len(notes))
	}
}

func TestNotificationTimestampsIncreasePerJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=order")

	startDownload(t, store, job)
	paused := job.Clone()
	paused.Status = queue.StatusPaused
	if err := store.CommitTransition(ctx, queue.Transition{From: queue.StatusDownloading, Job: paused, Note: &queue.Notification{Kind: queue.KindPaused, Title: "Paused"}}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	resumed := paused.Clone()
	resumed.Status = queue.StatusDownloading
	if err := store.CommitTransition(ctx, queue.Transition{From: queue.StatusPaused, Job: resumed, Note: &queue.Notification{Kind: queue.KindResumed, Title: "Resumed"}}); err != nil {
		t.Fatalf("resume: %v", err)
	}

	notes, err := store.ListNotifications(ctx, queue.NotificationFilter{JobID: job.ID})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notes))
	}
	want := []queue.NotificationKind{queue.KindResumed, queue.KindPaused, queue.KindStarted}
	for i, n := range notes {
		if n.Kind != want[i] {
			t.Fatalf("notification %d: got %s want %s", i, n.Kind, want[i])
		}
		if i > 0 && !notes[i-1].CreatedAt.After(n.CreatedAt) {
			t.Fatalf("created_at not strictly increasing: %v then %v", n.CreatedAt, notes[i-1].CreatedAt)
		}
	}
}

func TestRecoveryTransitionFromPaused(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=recover")
	startDownload(t, store, job)
	paused := job.Clone()
	paused.Status = queue.StatusPaused
	if err := store.CommitTransition(ctx, queue.Transition{From: queue.StatusDownloading, Job: paused}); err != nil {
		t.Fatalf("pause: %v", err)
	}

	interrupted, err := store.InterruptedJobs(ctx)
	if err != nil {
		t.Fatalf("InterruptedJobs: %v", err)
	}
	if len(interrupted) != 1 || interrupted[0].ID != job.ID {
		t.Fatalf("expected paused job to be interrupted, got %+v", interrupted)
	}

	requeued := paused.Clone()
	requeued.Status = queue.StatusQueued
	if err := store.CommitTransition(ctx, queue.Transition{From: queue.StatusPaused, Job: requeued}); !errors.Is(err, queue.ErrInvariant) {
		t.Fatalf("expected paused -> queued to need recovery, got %v", err)
	}
	if err := store.CommitTransition(ctx, queue.Transition{From: queue.StatusPaused, Job: requeued, Recovery: true}); err != nil {
		t.Fatalf("recovery transition: %v", err)
	}
}

func TestUpdateProgressOnlyWhileDownloading(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=progress")

	ok, err := store.UpdateProgress(ctx, job.ID, 40, "")
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if ok {
		t.Fatal("expected progress update to be ignored for queued job")
	}

	startDownload(t, store, job)
	ok, err = store.UpdateProgress(ctx, job.ID, 140, "Clip title")
	if err != nil || !ok {
		t.Fatalf("UpdateProgress: ok=%v err=%v", ok, err)
	}
	fetched, _ := store.GetJob(ctx, job.ID)
	if fetched.Progress != 100 || fetched.Title != "Clip title" {
		t.Fatalf("unexpected progress state: %+v", fetched)
	}
}

func TestListJobsFiltersAndQueuedOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	first := testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=1")
	time.Sleep(2 * time.Millisecond)
	second := testsupport.NewJob(t, store, "https://www.tiktok.com/@a/video/2")
	startDownload(t, store, first)

	queued, err := store.QueuedJobs(ctx)
	if err != nil {
		t.Fatalf("QueuedJobs: %v", err)
	}
	if len(queued) != 1 || queued[0].ID != second.ID {
		t.Fatalf("unexpected queued jobs: %+v", queued)
	}

	tiktok, err := store.ListJobs(ctx, queue.JobFilter{Platforms: []platform.Platform{platform.TikTok}})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(tiktok) != 1 || tiktok[0].ID != second.ID {
		t.Fatalf("unexpected platform filter result: %+v", tiktok)
	}

	all, err := store.ListJobs(ctx, queue.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusQueued] != 1 || stats[queue.StatusDownloading] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMarkReadIsMonotonicAndIdempotent(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, title := range []string{"one", "two"} {
		if err := store.AppendNotification(ctx, &queue.Notification{Kind: queue.KindSystem, Title: title, Message: title}); err != nil {
			t.Fatalf("AppendNotification: %v", err)
		}
	}
	notes, _ := store.ListNotifications(ctx, queue.NotificationFilter{})
	if err := store.MarkRead(ctx, notes[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := store.MarkRead(ctx, notes[0].ID); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if err := store.MarkRead(ctx, 9999); !errors.Is(err, queue.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}

	changed, err := store.MarkAllRead(ctx)
	if err != nil || changed != 1 {
		t.Fatalf("MarkAllRead: changed=%d err=%v", changed, err)
	}
	changed, err = store.MarkAllRead(ctx)
	if err != nil || changed != 0 {
		t.Fatalf("second MarkAllRead: changed=%d err=%v", changed, err)
	}
	count, _ := store.UnreadCount(ctx)
	if count != 0 {
		t.Fatalf("expected zero unread, got %d", count)
	}
}

func TestListNotificationsSearchFoldsCase(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	entries := []string{"Straße am Meer", "Mountain trip", "STRASSE party"}
	for _, title := range entries {
		if err := store.AppendNotification(ctx, &queue.Notification{Kind: queue.KindSystem, Title: title, Message: "m"}); err != nil {
			t.Fatalf("AppendNotification: %v", err)
		}
	}
	got, err := store.ListNotifications(ctx, queue.NotificationFilter{Search: "strasse"})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 folded matches, got %d", len(got))
	}
	limited, err := store.ListNotifications(ctx, queue.NotificationFilter{Search: "strasse", Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply after search, got %d (%v)", len(limited), err)
	}
}

func TestParseNotificationFilter(t *testing.T) {
	tests := []struct {
		in        string
		ok        bool
		unread    bool
		kindCount int
	}{
		{"", true, false, 0},
		{"all", true, false, 0},
		{"unread", true, true, 0},
		{"download", true, false, 2},
		{"failed", true, false, 1},
		{"LibraryCreated", true, false, 1},
		{"bogus", false, false, 0},
	}
	for _, tc := range tests {
		filter, ok := queue.ParseNotificationFilter(tc.in)
		if ok != tc.ok || filter.UnreadOnly != tc.unread || len(filter.Kinds) != tc.kindCount {
			t.Fatalf("ParseNotificationFilter(%q) = %+v, %v", tc.in, filter, ok)
		}
	}
}

func TestReplaceCookiesScopesByOrigin(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	first := []media.Cookie{{Name: "SID", Value: "a", Domain: ".youtube.com", Path: "/"}, {Name: "HSID", Value: "b", Domain: ".youtube.com"}}
	if err := store.ReplaceCookies(ctx, "youtube.com", first); err != nil {
		t.Fatalf("ReplaceCookies: %v", err)
	}
	if err := store.ReplaceCookies(ctx, "tiktok.com", []media.Cookie{{Name: "tt", Value: "c", Domain: ".tiktok.com"}}); err != nil {
		t.Fatalf("ReplaceCookies: %v", err)
	}
	if err := store.ReplaceCookies(ctx, "youtube.com", first[:1]); err != nil {
		t.Fatalf("ReplaceCookies: %v", err)
	}

	got, err := store.CookiesForHost(ctx, "www.youtube.com")
	if err != nil {
		t.Fatalf("CookiesForHost: %v", err)
	}
	if len(got) != 1 || got[0].Name != "SID" {
		t.Fatalf("expected replaced cookie set, got %+v", got)
	}
	tt, _ := store.CookiesForHost(ctx, "tiktok.com")
	if len(tt) != 1 {
		t.Fatalf("expected tiktok cookies untouched, got %+v", tt)
	}
}

func TestRecordMediaDeduplicatesByHash(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	item := media.Item{ID: "m1", Hash: "abc", Path: "/lib/youtube/abc.mp4", SizeBytes: 10, Type: media.TypeVideo, Platform: platform.YouTube, SourceURL: "https://youtube.com/watch?v=1"}
	saved, created, err := store.RecordMedia(ctx, item)
	if err != nil || !created || saved.ID != "m1" {
		t.Fatalf("RecordMedia: %+v created=%v err=%v", saved, created, err)
	}
	item.ID = "m2"
	again, created, err := store.RecordMedia(ctx, item)
	if err != nil || created || again.ID != "m1" {
		t.Fatalf("expected existing entry, got %+v created=%v err=%v", again, created, err)
	}
	if _, err := store.GetMedia(ctx, "m2"); !errors.Is(err, queue.ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound, got %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.NewJob(t, store, "https://www.youtube.com/watch?v=h")
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck || health.TotalJobs != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}
