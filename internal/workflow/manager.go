package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/retry"
)

// Manager owns job admission, the worker pool and every status transition.
type Manager struct {
	opts     Options
	policy   retry.Policy
	store    *queue.Store
	fetcher  media.Fetcher
	media    media.Store
	notifier *notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	queue *admissionQueue
	// workers runs one goroutine per admitted job; its limit is the slot
	// count. active mirrors the number of running workers for Status.
	workers *errgroup.Group
	active  atomic.Int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	activeMu sync.Mutex
	runtimes map[string]*jobRuntime

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a manager. notifier may be nil, in which case
// committed notifications are only stored.
func NewManager(opts Options, store *queue.Store, fetcher media.Fetcher, mediaStore media.Store, notifier *notifications.Service, logger *slog.Logger) *Manager {
	opts = opts.withDefaults()
	policy := opts.Policy
	if policy.MaxAttempts == 0 && policy.BaseDelay == 0 && policy.MaxDelay == 0 {
		policy = retry.DefaultPolicy()
	}
	return &Manager{
		opts:     opts,
		policy:   policy,
		store:    store,
		fetcher:  fetcher,
		media:    mediaStore,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		now:      func() time.Time { return time.Now().UTC() },
		queue:    newAdmissionQueue(opts.QueueLimit),
		locks:    make(map[string]*sync.Mutex),
		runtimes: make(map[string]*jobRuntime),
	}
}

// lockJob serializes every mutation of one job.
func (m *Manager) lockJob(id string) func() {
	m.locksMu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// commit applies a transition and forwards its notification once durable.
func (m *Manager) commit(ctx context.Context, t queue.Transition) error {
	if err := m.store.CommitTransition(ctx, t); err != nil {
		return err
	}
	if t.Note != nil {
		m.notifier.Forward(t.Note)
	}
	return nil
}

// appendNote records a notification outside any job transition.
func (m *Manager) appendNote(ctx context.Context, n *queue.Notification) error {
	if m.notifier == nil {
		return m.store.AppendNotification(ctx, n)
	}
	return m.notifier.Append(ctx, n)
}

func (m *Manager) runtimeFor(id string) *jobRuntime {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	return m.runtimes[id]
}

func (m *Manager) register(id string, rt *jobRuntime) {
	m.activeMu.Lock()
	m.runtimes[id] = rt
	m.activeMu.Unlock()
}

func (m *Manager) unregister(id string, rt *jobRuntime) {
	m.activeMu.Lock()
	if m.runtimes[id] == rt {
		delete(m.runtimes, id)
	}
	m.activeMu.Unlock()
}

// newWorkerGroup returns a group admitting at most MaxConcurrent workers.
func (m *Manager) newWorkerGroup() *errgroup.Group {
	g := new(errgroup.Group)
	g.SetLimit(m.opts.MaxConcurrent)
	return g
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
