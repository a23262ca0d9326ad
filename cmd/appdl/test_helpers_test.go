package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"appdl/internal/config"
	"appdl/internal/daemon"
	"appdl/internal/library"
	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/testsupport"
	"appdl/internal/workflow"
)

// testFetcher completes immediately unless block is set, in which case it
// waits for its context to end.
type testFetcher struct {
	mu    sync.Mutex
	block bool
}

func (f *testFetcher) setBlocking(block bool) {
	f.mu.Lock()
	f.block = block
	f.mu.Unlock()
}

func (f *testFetcher) Fetch(ctx context.Context, req media.Request, progress media.ProgressFunc) (*media.Result, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()

	if block {
		progress(media.Progress{Percent: 25, Phase: "download"})
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(req.WorkDir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video-"+req.JobID), 0o644); err != nil {
		return nil, err
	}
	return &media.Result{Path: path, Title: "Test clip", Ext: "mp4", SizeBytes: int64(len("video-" + req.JobID))}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	fetcher    *testFetcher
	configPath string
	apiAddr    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".config", "appdl", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	if err := os.MkdirAll(cfg.Paths.LibraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}

	logger := logging.NewNop()
	fetcher := &testFetcher{}
	notes := notifications.NewService(store, notifications.NewForwarder(cfg), logger)
	lib := library.NewFileStore(cfg.Paths.LibraryDir, "", store, logger, library.WithEventSink(notes))
	opts := workflow.OptionsFromConfig(cfg)
	opts.DispatchInterval = 20 * time.Millisecond
	opts.CancelTimeout = 200 * time.Millisecond
	mgr := workflow.NewManager(opts, store, fetcher, lib, notes, logger)

	d, err := daemon.New(cfg, store, notes, lib, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		fetcher:    fetcher,
		configPath: configPath,
		apiAddr:    d.APIAddr(),
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", env.configPath, "--api", env.apiAddr}, args...))
}

func (env *cliTestEnv) waitStatus(t *testing.T, id string, status queue.Status) {
	t.Helper()
	waitFor(t, 5*time.Second, func() bool {
		job, err := env.store.GetJob(context.Background(), id)
		return err == nil && job.Status == status
	})
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
