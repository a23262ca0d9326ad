package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appdl/internal/api"
	"appdl/internal/queue"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func submitJSON(t *testing.T, env *cliTestEnv, url string) api.Job {
	t.Helper()
	out, _, err := env.run(t, "--json", "submit", url)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var job api.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode submit output %q: %v", out, err)
	}
	return job
}

func TestSubmitWaitCompletes(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "submit", "--wait", "--poll", "10ms", testURL)
	if err != nil {
		t.Fatalf("submit --wait: %v", err)
	}
	requireContains(t, out, "Completed Test clip")

	out, _, err = env.run(t, "jobs", "--status", "completed")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "YouTube")
}

func TestSubmitRejectsUnsupportedPlatform(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "submit", "https://example.com/video")
	if err == nil {
		t.Fatal("expected error for unsupported platform")
	}
	jobs, listErr := env.store.ListJobs(context.Background(), queue.JobFilter{})
	if listErr != nil {
		t.Fatalf("ListJobs: %v", listErr)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}

func TestPauseResumeCancel(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fetcher.setBlocking(true)

	job := submitJSON(t, env, testURL)
	env.waitStatus(t, job.ID, queue.StatusDownloading)

	out, _, err := env.run(t, "pause", job.ID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	requireContains(t, out, "paused")

	_, _, err = env.run(t, "pause", job.ID)
	if err == nil {
		t.Fatal("expected second pause to fail")
	}
	requireContains(t, err.Error(), "paused")

	if _, _, err := env.run(t, "resume", job.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	env.waitStatus(t, job.ID, queue.StatusDownloading)

	out, _, err = env.run(t, "cancel", job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "cancelled")

	out, _, err = env.run(t, "job", job.ID)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	requireContains(t, out, "Job "+job.ID)
	requireContains(t, out, "cancelled")
}

func TestRetryRequiresFailedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fetcher.setBlocking(true)

	job := submitJSON(t, env, testURL)
	_, _, err := env.run(t, "retry", job.ID)
	if err == nil {
		t.Fatal("expected retry of an active job to fail")
	}

	_, _, err = env.run(t, "job", "no-such-job")
	if err == nil {
		t.Fatal("expected not found error")
	}
}

func TestNotificationsAndReadAll(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "submit", "--wait", "--poll", "10ms", testURL); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, _, err := env.run(t, "notifications")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	requireContains(t, out, "completed")
	if strings.HasSuffix(out, "\n0 unread\n") {
		t.Fatalf("expected unread notifications, got %q", out)
	}

	out, _, err = env.run(t, "read-all")
	if err != nil {
		t.Fatalf("read-all: %v", err)
	}
	requireContains(t, out, "Marked")

	out, _, err = env.run(t, "notifications", "--filter", "unread")
	if err != nil {
		t.Fatalf("notifications unread: %v", err)
	}
	requireContains(t, out, "No notifications")
	requireContains(t, out, "0 unread")

	if _, _, err := env.run(t, "read", "abc"); err == nil {
		t.Fatal("expected invalid id error")
	}
}

func TestCookiesImport(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		".instagram.com\tTRUE\t/\tTRUE\t1999999999\tsessionid\tabc\n" +
		"#HttpOnly_.instagram.com\tTRUE\t/\tTRUE\t1999999999\tcsrftoken\txyz\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cookies: %v", err)
	}

	out, _, err := env.run(t, "cookies", "import", "https://www.instagram.com/", path)
	if err != nil {
		t.Fatalf("cookies import: %v", err)
	}
	requireContains(t, out, "Stored 2 cookie(s)")

	cookies, err := env.store.CookiesForHost(context.Background(), "instagram.com")
	if err != nil {
		t.Fatalf("CookiesForHost: %v", err)
	}
	if len(cookies) != 2 {
		t.Fatalf("expected 2 stored cookies, got %d", len(cookies))
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "Running")
	requireContains(t, out, "database")
	requireContains(t, out, "yt-dlp")
}

func TestUnavailableDaemonHint(t *testing.T) {
	env := setupCLITestEnv(t)
	env.daemon.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, _, err := env.run(t, "jobs")
		return err != nil && strings.Contains(err.Error(), "appdl daemon")
	})
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "appdl.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"--config", target, "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "loaded from "+target)
	requireContains(t, out, "max_concurrent")
}
