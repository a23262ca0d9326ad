package workflow

import (
	"context"
	"errors"
	"fmt"

	"appdl/internal/logging"
	"appdl/internal/notifications"
	"appdl/internal/platform"
	"appdl/internal/queue"
	"appdl/internal/services"
)

// Submit validates a link, persists a new queued job and enqueues it.
// Malformed or unsupported links create nothing.
func (m *Manager) Submit(ctx context.Context, rawURL string) (*queue.Job, error) {
	plat, parsed, err := platform.Detect(rawURL)
	if err != nil {
		return nil, err
	}
	if !m.queue.reserve() {
		m.logger.Info("submission rejected",
			logging.Args(logging.DecisionAttrs("admission", "rejected", "queue full")...)...,
		)
		return nil, services.Wrap(services.ErrQueueFull, "workflow", "submit",
			fmt.Sprintf("queue holds %d jobs", m.opts.QueueLimit), nil)
	}
	job, err := m.store.CreateJob(ctx, parsed.String(), plat)
	if err != nil {
		m.queue.release()
		return nil, services.Wrap(services.ErrInternal, "workflow", "submit", "persist job", err)
	}
	m.queue.pushReserved(job.ID, notBefore(job))
	m.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldPlatform, string(plat)),
		logging.String("url", job.SourceURL),
	)
	return job, nil
}

// Get returns one job.
func (m *Manager) Get(ctx context.Context, id string) (*queue.Job, error) {
	return m.store.GetJob(ctx, id)
}

// List returns jobs matching filter, newest first.
func (m *Manager) List(ctx context.Context, filter queue.JobFilter) ([]*queue.Job, error) {
	return m.store.ListJobs(ctx, filter)
}

// Retry requeues a failed job on user request. The attempt counter grows; a
// job already past the retry budget gets one fetch and no automatic retries.
func (m *Manager) Retry(ctx context.Context, id string) (*queue.Job, error) {
	unlock := m.lockJob(id)
	defer unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusFailed {
		return nil, invalidState("retry", job)
	}
	if !m.queue.reserve() {
		return nil, services.Wrap(services.ErrQueueFull, "workflow", "retry",
			fmt.Sprintf("queue holds %d jobs", m.opts.QueueLimit), nil)
	}
	next := job.Clone()
	next.Status = queue.StatusQueued
	next.Attempt++
	next.AutoRetries = 0
	next.Progress = 0
	next.ErrorKind = ""
	next.ErrorMessage = ""
	next.NextAttemptAt = nil
	next.QueuedAt = m.now()
	if err := m.commit(ctx, queue.Transition{From: queue.StatusFailed, Job: next, Note: notifications.Retried(next, "manual retry")}); err != nil {
		m.queue.release()
		return nil, commitError("retry", err)
	}
	m.queue.pushReserved(next.ID, notBefore(next))
	m.logger.Info("job retried",
		logging.String(logging.FieldEventType, "job_retried"),
		logging.String(logging.FieldJobID, next.ID),
		logging.Int("attempt", next.Attempt),
	)
	return next, nil
}

// Cancel stops a job that has not finished. A job holding a slot has its
// fetch aborted; the slot frees once the fetcher returns or CancelTimeout
// elapses.
func (m *Manager) Cancel(ctx context.Context, id string) (*queue.Job, error) {
	unlock := m.lockJob(id)
	defer unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !queue.CanTransition(job.Status, queue.StatusCancelled) {
		return nil, invalidState("cancel", job)
	}
	next := job.Clone()
	next.Status = queue.StatusCancelled
	next.NextAttemptAt = nil
	if err := m.commit(ctx, queue.Transition{From: job.Status, Job: next, Note: notifications.Cancelled(next)}); err != nil {
		return nil, commitError("cancel", err)
	}
	m.queue.remove(id)
	if rt := m.runtimeFor(id); rt != nil {
		rt.abort()
		rt.notify()
	}
	m.logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
		logging.String(logging.FieldJobID, id),
		logging.String("from", string(job.Status)),
	)
	return next, nil
}

// Pause suspends a downloading job. The job keeps its slot.
func (m *Manager) Pause(ctx context.Context, id string) (*queue.Job, error) {
	unlock := m.lockJob(id)
	defer unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusDownloading {
		return nil, invalidState("pause", job)
	}
	next := job.Clone()
	next.Status = queue.StatusPaused
	if err := m.commit(ctx, queue.Transition{From: queue.StatusDownloading, Job: next, Note: notifications.Paused(next)}); err != nil {
		return nil, commitError("pause", err)
	}
	if rt := m.runtimeFor(id); rt != nil {
		rt.abort()
	}
	m.logger.Info("job paused",
		logging.String(logging.FieldEventType, "job_paused"),
		logging.String(logging.FieldJobID, id),
	)
	return next, nil
}

// Resume continues a paused job in the slot it kept.
func (m *Manager) Resume(ctx context.Context, id string) (*queue.Job, error) {
	unlock := m.lockJob(id)
	defer unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != queue.StatusPaused {
		return nil, invalidState("resume", job)
	}
	next := job.Clone()
	next.Status = queue.StatusDownloading
	if err := m.commit(ctx, queue.Transition{From: queue.StatusPaused, Job: next, Note: notifications.Resumed(next)}); err != nil {
		return nil, commitError("resume", err)
	}
	if rt := m.runtimeFor(id); rt != nil {
		rt.notify()
	}
	m.logger.Info("job resumed",
		logging.String(logging.FieldEventType, "job_resumed"),
		logging.String(logging.FieldJobID, id),
	)
	return next, nil
}

func invalidState(op string, job *queue.Job) error {
	return services.Wrap(services.ErrInvalidState, "workflow", op,
		fmt.Sprintf("job %s is %s", job.ID, job.Status), nil)
}

func commitError(op string, err error) error {
	if errors.Is(err, services.ErrNotFound) {
		return err
	}
	return services.Wrap(services.ErrInternal, "workflow", op, "commit transition", err)
}
