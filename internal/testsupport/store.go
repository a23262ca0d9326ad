package testsupport

import (
	"context"
	"testing"

	"appdl/internal/config"
	"appdl/internal/platform"
	"appdl/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, rawURL string) *queue.Job {
	t.Helper()

	plat, u, err := platform.Detect(rawURL)
	if err != nil {
		t.Fatalf("platform.Detect(%q): %v", rawURL, err)
	}
	job, err := store.CreateJob(context.Background(), u.String(), plat)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}
