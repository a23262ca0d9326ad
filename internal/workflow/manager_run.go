package workflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"appdl/internal/logging"
	"appdl/internal/notifications"
	"appdl/internal/queue"
)

// Start recovers interrupted jobs, loads the queue and begins dispatching.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	if err := m.recover(ctx); err != nil {
		m.setLastError(err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.workers = m.newWorkerGroup()
	m.running = true
	m.lastErr = nil

	m.wg.Add(1)
	go m.dispatch(runCtx, m.workers)

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Int("max_concurrent", m.opts.MaxConcurrent),
		logging.Int("queued", m.queue.len()),
	)
	return nil
}

// Stop halts dispatching and waits for workers to let go of their jobs.
// Jobs still downloading stay that way in the store and are requeued by the
// next Start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	workers := m.workers
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	if workers != nil {
		_ = workers.Wait()
	}
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

// recover requeues jobs left downloading or paused by a previous run, then
// loads every queued job into the admission queue in queue order.
func (m *Manager) recover(ctx context.Context) error {
	interrupted, err := m.store.InterruptedJobs(ctx)
	if err != nil {
		return err
	}
	recovered := 0
	for _, job := range interrupted {
		next := job.Clone()
		next.Status = queue.StatusQueued
		next.Progress = 0
		next.NextAttemptAt = nil
		note := notifications.Retried(next, "daemon restart")
		if err := m.commit(ctx, queue.Transition{From: job.Status, Job: next, Note: note, Recovery: true}); err != nil {
			logging.WarnWithContext(m.logger, "interrupted job not recovered", "job_recovery_failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("status", string(job.Status)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "job stays in its interrupted state until the next start"),
			)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		m.logger.Info("interrupted jobs requeued",
			logging.String(logging.FieldEventType, "jobs_recovered"),
			logging.Int("count", recovered),
		)
		if err := m.appendNote(ctx, notifications.Recovered(recovered)); err != nil {
			logging.WarnWithContext(m.logger, "recovery notification not recorded", "notification_append_failed",
				logging.Error(err),
			)
		}
	}

	queued, err := m.store.QueuedJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range queued {
		m.queue.push(job.ID, notBefore(job))
	}
	return nil
}

func notBefore(job *queue.Job) time.Time {
	if job.NextAttemptAt == nil {
		return time.Time{}
	}
	return *job.NextAttemptAt
}

// dispatch hands eligible jobs to free slots until ctx ends.
func (m *Manager) dispatch(ctx context.Context, workers *errgroup.Group) {
	defer m.wg.Done()
	for {
		nextDue := m.admit(ctx, workers)
		wait := m.opts.DispatchInterval
		if !nextDue.IsZero() {
			if until := nextDue.Sub(m.now()); until < wait {
				wait = max(until, time.Millisecond)
			}
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.queue.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// admit starts workers in queue order until the group refuses one or no
// entry is due. It returns when dispatch should look again.
func (m *Manager) admit(ctx context.Context, workers *errgroup.Group) time.Time {
	start := func(id string) bool {
		m.active.Add(1)
		if workers.TryGo(func() error {
			defer m.workerDone()
			m.runJob(ctx, id)
			return nil
		}) {
			return true
		}
		m.active.Add(-1)
		return false
	}
	for ctx.Err() == nil {
		admitted, refused, nextDue := m.queue.admitNext(m.now(), start)
		switch {
		case admitted:
			continue
		case refused && m.active.Load() < int64(m.opts.MaxConcurrent):
			// A worker has finished its job but not yet left the group.
			return m.now().Add(time.Millisecond)
		case refused:
			return time.Time{}
		default:
			return nextDue
		}
	}
	return time.Time{}
}

// workerDone records a worker leaving its slot and wakes the dispatcher.
func (m *Manager) workerDone() {
	m.active.Add(-1)
	m.queue.signal()
}
