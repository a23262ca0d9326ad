package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"appdl/internal/api"
	"appdl/internal/config"
	"appdl/internal/daemon"
	"appdl/internal/library"
	"appdl/internal/logging"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/testsupport"
	"appdl/internal/workflow"
)

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()
	if err := os.MkdirAll(cfg.Paths.LibraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	logger := logging.NewNop()
	notes := notifications.NewService(store, notifications.NewForwarder(cfg), logger)
	lib := library.NewFileStore(cfg.Paths.LibraryDir, "", store, logger)
	mgr := workflow.NewManager(workflow.OptionsFromConfig(cfg), store, nil, lib, notes, logger)
	d, err := daemon.New(cfg, store, notes, lib, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.Workflow.MaxConcurrent != cfg.Workflow.MaxConcurrent {
		t.Fatalf("unexpected max concurrent %d", status.Workflow.MaxConcurrent)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api to be listening")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.APIAddr() != "" {
		t.Fatal("expected api listener to be closed")
	}
}

func TestSecondInstanceIsRejectedByLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	first := newDaemon(t, cfg, store)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}

	second := newDaemon(t, cfg, store)
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestHealthAndStatusOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithAPIToken("secret"))
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.APIAddr()

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected health status %d", resp.StatusCode)
	}
	checks := map[string]api.HealthCheck{}
	for _, check := range health.Checks {
		checks[check.Name] = check
	}
	if !checks["database"].OK {
		t.Fatalf("expected database check to pass: %+v", checks["database"])
	}
	if !checks["yt-dlp"].OK {
		t.Fatalf("expected stubbed yt-dlp to be found: %+v", checks["yt-dlp"])
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Workflow.QueueStats) == 0 {
		t.Fatal("expected queue stats for every status")
	}
}
