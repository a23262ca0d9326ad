package workflow_test

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/queue"
	"appdl/internal/retry"
	"appdl/internal/testsupport"
	"appdl/internal/workflow"
)

type fetchFunc func(ctx context.Context, req media.Request, progress media.ProgressFunc) (*media.Result, error)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []media.Request
	handler fetchFunc
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, req media.Request, progress media.ProgressFunc) (*media.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	handler := f.handler
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if handler == nil {
		return okResult(req), nil
	}
	return handler(ctx, req, progress)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okResult(req media.Request) *media.Result {
	return &media.Result{
		Path:      filepath.Join(req.WorkDir, "clip.mp4"),
		Title:     "Clip " + req.JobID[:8],
		Ext:       "mp4",
		SizeBytes: 42,
	}
}

type fakeMediaStore struct {
	mu    sync.Mutex
	saved []string
}

func (s *fakeMediaStore) Save(_ context.Context, req media.Request, _ *media.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, req.JobID)
	return "media-" + req.JobID, nil
}

type harness struct {
	mgr     *workflow.Manager
	store   *queue.Store
	fetcher *fakeFetcher
	media   *fakeMediaStore
}

func newHarness(t *testing.T, handler fetchFunc, mutate func(*workflow.Options)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	opts := workflow.OptionsFromConfig(cfg)
	opts.MaxConcurrent = 1
	opts.QueueLimit = 0
	opts.DownloadTimeout = 5 * time.Second
	opts.CancelTimeout = 200 * time.Millisecond
	opts.DispatchInterval = 20 * time.Millisecond
	opts.ProgressInterval = 0
	opts.Policy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	if mutate != nil {
		mutate(&opts)
	}

	h := &harness{
		store:   store,
		fetcher: &fakeFetcher{handler: handler},
		media:   &fakeMediaStore{},
	}
	h.mgr = workflow.NewManager(opts, store, h.fetcher, h.media, nil, logging.NewNop())
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.mgr.Stop)
}

func (h *harness) submit(t *testing.T, rawURL string) *queue.Job {
	t.Helper()
	job, err := h.mgr.Submit(context.Background(), rawURL)
	if err != nil {
		t.Fatalf("Submit(%q): %v", rawURL, err)
	}
	return job
}

func (h *harness) job(t *testing.T, id string) *queue.Job {
	t.Helper()
	job, err := h.store.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job
}

func (h *harness) waitStatus(t *testing.T, id string, want queue.Status) *queue.Job {
	t.Helper()
	var last *queue.Job
	waitFor(t, func() bool {
		last = h.job(t, id)
		return last.Status == want
	}, "job %s to reach %s", id, want)
	return last
}

// noteKinds returns a job's notification kinds oldest first.
func (h *harness) noteKinds(t *testing.T, id string) []queue.NotificationKind {
	t.Helper()
	notes, err := h.store.ListNotifications(context.Background(), queue.NotificationFilter{JobID: id})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	kinds := make([]queue.NotificationKind, 0, len(notes))
	for _, n := range notes {
		kinds = append(kinds, n.Kind)
	}
	slices.Reverse(kinds)
	return kinds
}

func waitFor(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for "+format, args...)
}

// gate blocks fetches until released and reports when each one starts.
type gate struct {
	started chan string
	release chan struct{}
	once    sync.Once
}

func newGate() *gate {
	return &gate{started: make(chan string, 16), release: make(chan struct{})}
}

func (g *gate) open() {
	g.once.Do(func() { close(g.release) })
}

func (g *gate) fetch(ctx context.Context, req media.Request, _ media.ProgressFunc) (*media.Result, error) {
	g.started <- req.JobID
	select {
	case <-g.release:
		return okResult(req), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gate) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case id := <-g.started:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a fetch to start")
		return ""
	}
}
