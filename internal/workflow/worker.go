package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/services"
)

// jobRuntime is the in-memory side of a job holding a slot.
type jobRuntime struct {
	wake chan struct{}

	mu           sync.Mutex
	cancelFetch  context.CancelFunc
	pendingAbort bool
	held         *media.Result
	lastProgress time.Time
	// abandoned delivers the outcome of a fetch given up on after
	// CancelTimeout. The job must not fetch again until it is drained.
	abandoned <-chan fetchOutcome
}

func newJobRuntime() *jobRuntime {
	return &jobRuntime{wake: make(chan struct{}, 1)}
}

// abort cancels the fetch in flight. With no fetch running, the next one
// is cancelled as soon as it starts.
func (rt *jobRuntime) abort() {
	rt.mu.Lock()
	if rt.cancelFetch != nil {
		rt.cancelFetch()
	} else {
		rt.pendingAbort = true
	}
	rt.mu.Unlock()
}

// notify wakes a worker waiting for its job to leave paused.
func (rt *jobRuntime) notify() {
	select {
	case rt.wake <- struct{}{}:
	default:
	}
}

type fetchOutcome struct {
	result *media.Result
	err    error
	// timedOut is set when the download timeout expired.
	timedOut bool
	// aborted is set when a control operation cancelled the fetch.
	aborted bool
}

// runJob drives one admitted job until it leaves the slot-holding statuses.
// It runs inside the worker group, so returning frees the slot.
func (m *Manager) runJob(ctx context.Context, id string) {
	job, rt, ok := m.begin(ctx, id)
	if !ok {
		return
	}
	defer m.unregister(id, rt)

	jobCtx := services.WithPlatform(services.WithJobID(ctx, job.ID), string(job.Platform))
	logger := logging.WithContext(jobCtx, m.logger)
	workDir := filepath.Join(m.opts.WorkDir, job.ID+"-"+strconv.Itoa(job.Attempt))
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Debug("work directory cleanup failed", logging.Error(err))
		}
	}()

	for {
		var out fetchOutcome
		if held := rt.takeHeld(); held != nil {
			out = fetchOutcome{result: held}
		} else {
			if !m.awaitAbandoned(ctx, rt, id, logger) {
				return
			}
			out = m.fetch(ctx, rt, job, workDir, logger)
		}
		if ctx.Err() != nil {
			// Shutdown. The job stays downloading for the next Start to requeue.
			return
		}

		unlock := m.lockJob(id)
		current, err := m.store.GetJob(ctx, id)
		if err != nil {
			unlock()
			logging.ErrorWithContext(logger, "job lookup failed after fetch", "job_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "job is requeued on the next daemon start"),
			)
			m.setLastError(err)
			return
		}
		switch current.Status {
		case queue.StatusDownloading:
			if out.aborted && out.err != nil {
				// Paused and resumed while the fetch was winding down.
				unlock()
				job = current
				continue
			}
			m.settle(ctx, current, out, workDir, logger)
			unlock()
			return
		case queue.StatusPaused:
			if out.err == nil && out.result != nil {
				rt.hold(out.result)
			}
			unlock()
			resumed, ok := m.awaitResume(ctx, rt, id, logger)
			if !ok {
				return
			}
			job = resumed
		default:
			unlock()
			logger.Info("worker released job",
				logging.String(logging.FieldEventType, "job_released"),
				logging.String("status", string(current.Status)),
			)
			return
		}
	}
}

// begin moves a popped job from queued to downloading.
func (m *Manager) begin(ctx context.Context, id string) (*queue.Job, *jobRuntime, bool) {
	unlock := m.lockJob(id)
	defer unlock()

	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		logging.WarnWithContext(m.logger, "admitted job not loaded", "job_lookup_failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job skipped"),
		)
		return nil, nil, false
	}
	if job.Status != queue.StatusQueued {
		// Cancelled while waiting for a slot.
		return nil, nil, false
	}
	if !job.Eligible(m.now()) {
		m.queue.push(job.ID, notBefore(job))
		return nil, nil, false
	}

	next := job.Clone()
	next.Status = queue.StatusDownloading
	next.Progress = 0
	next.NextAttemptAt = nil
	if err := m.commit(ctx, queue.Transition{From: queue.StatusQueued, Job: next, Note: notifications.Started(next)}); err != nil {
		logging.ErrorWithContext(m.logger, "job start not committed", "job_start_failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database health with appdl status"),
		)
		m.setLastError(err)
		if !queue.IsStale(err) {
			m.queue.push(job.ID, time.Time{})
		}
		return nil, nil, false
	}
	rt := newJobRuntime()
	m.register(id, rt)
	m.logger.Info("download started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String(logging.FieldJobID, next.ID),
		logging.String(logging.FieldPlatform, string(next.Platform)),
		logging.Int("attempt", next.Attempt),
		logging.String("url", next.SourceURL),
	)
	return next, rt, true
}

// fetch runs one fetch attempt under the download timeout. When the fetch
// context ends the fetcher gets CancelTimeout to return before it is
// abandoned.
func (m *Manager) fetch(ctx context.Context, rt *jobRuntime, job *queue.Job, workDir string, logger *slog.Logger) fetchOutcome {
	fetchCtx, cancel := context.WithTimeout(ctx, m.opts.DownloadTimeout)
	defer cancel()
	rt.setCancel(cancel)
	defer rt.setCancel(nil)

	req := media.Request{
		JobID:    job.ID,
		URL:      job.SourceURL,
		Platform: job.Platform,
		Attempt:  job.Attempt,
		WorkDir:  workDir,
	}
	sampler := logging.NewProgressSampler(10)
	done := make(chan fetchOutcome, 1)
	go func() {
		result, err := m.fetcher.Fetch(fetchCtx, req, func(p media.Progress) {
			m.reportProgress(ctx, rt, job.ID, p, sampler, logger)
		})
		done <- fetchOutcome{result: result, err: err}
	}()

	var out fetchOutcome
	select {
	case out = <-done:
	case <-fetchCtx.Done():
		timer := time.NewTimer(m.opts.CancelTimeout)
		select {
		case out = <-done:
		case <-timer.C:
			logging.WarnWithContext(logger, "fetcher did not stop in time", "fetch_abandoned",
				logging.Duration("cancel_timeout", m.opts.CancelTimeout),
				logging.String(logging.FieldImpact, "slot released while the fetch process winds down"),
			)
			rt.setAbandoned(done)
			out = fetchOutcome{err: fetchCtx.Err()}
		}
		timer.Stop()
	}

	switch {
	case ctx.Err() != nil:
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		if out.err != nil || out.result == nil {
			out.timedOut = true
			out.err = services.Wrap(services.ErrNetwork, "workflow", "fetch",
				fmt.Sprintf("download exceeded %s", m.opts.DownloadTimeout), out.err)
		}
	case errors.Is(fetchCtx.Err(), context.Canceled):
		out.aborted = true
	}
	if out.err == nil && out.result == nil {
		out.err = services.Wrap(services.ErrInternal, "workflow", "fetch", "fetcher returned no result", nil)
	}
	return out
}

// reportProgress coalesces progress writes to at most one per
// ProgressInterval; completion of a phase is always written.
func (m *Manager) reportProgress(ctx context.Context, rt *jobRuntime, id string, p media.Progress, sampler *logging.ProgressSampler, logger *slog.Logger) {
	if p.Percent < 0 {
		return
	}
	now := m.now()
	rt.mu.Lock()
	due := p.Percent >= 100 || rt.lastProgress.IsZero() || now.Sub(rt.lastProgress) >= m.opts.ProgressInterval
	if due {
		rt.lastProgress = now
	}
	rt.mu.Unlock()
	if sampler.ShouldLog(p.Percent, p.Phase) {
		logger.Debug("download progress",
			logging.Any(logging.FieldProgressPercent, p.Percent),
			logging.String("phase", p.Phase),
			logging.String("speed", p.Speed),
			logging.String("eta", p.ETA),
		)
	}
	if !due {
		return
	}
	if _, err := m.store.UpdateProgress(ctx, id, int(p.Percent), ""); err != nil && ctx.Err() == nil {
		logger.Debug("progress update failed", logging.Error(err))
	}
}

// awaitResume blocks a paused job's worker until the job is resumed or
// leaves the slot-holding statuses. The slot stays occupied meanwhile.
func (m *Manager) awaitResume(ctx context.Context, rt *jobRuntime, id string, logger *slog.Logger) (*queue.Job, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-rt.wake:
		}
		job, err := m.store.GetJob(ctx, id)
		if err != nil {
			logging.WarnWithContext(logger, "paused job lookup failed", "job_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "worker released; job recovers on next start"),
			)
			return nil, false
		}
		switch job.Status {
		case queue.StatusPaused:
			continue
		case queue.StatusDownloading:
			return job, true
		default:
			return nil, false
		}
	}
}

// awaitAbandoned blocks until a fetch abandoned by an earlier pause has
// returned, so two fetches never share the job's work directory. Its late
// result is discarded. It gives up when the job leaves the slot-holding
// statuses or ctx ends.
func (m *Manager) awaitAbandoned(ctx context.Context, rt *jobRuntime, id string, logger *slog.Logger) bool {
	abandoned := rt.takeAbandoned()
	if abandoned == nil {
		return true
	}
	logger.Info("waiting for abandoned fetch to exit",
		logging.String(logging.FieldEventType, "fetch_drain"),
	)
	for {
		select {
		case <-abandoned:
			return true
		case <-ctx.Done():
			return false
		case <-rt.wake:
		}
		job, err := m.store.GetJob(ctx, id)
		if err != nil {
			logging.WarnWithContext(logger, "job lookup failed while draining fetch", "job_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "worker released; job recovers on next start"),
			)
			return false
		}
		if job.Status != queue.StatusDownloading && job.Status != queue.StatusPaused {
			return false
		}
	}
}

// settle records the outcome of a fetch for a job still downloading. The
// caller holds the job lock.
func (m *Manager) settle(ctx context.Context, job *queue.Job, out fetchOutcome, workDir string, logger *slog.Logger) {
	if out.err != nil {
		m.failOrRetry(ctx, job, out.err, logger)
		return
	}
	req := media.Request{JobID: job.ID, URL: job.SourceURL, Platform: job.Platform, Attempt: job.Attempt, WorkDir: workDir}
	mediaID, err := m.media.Save(ctx, req, out.result)
	if err != nil {
		m.failOrRetry(ctx, job, err, logger)
		return
	}

	next := job.Clone()
	next.Status = queue.StatusCompleted
	next.Progress = 100
	next.MediaID = mediaID
	next.SizeBytes = out.result.SizeBytes
	if out.result.Title != "" {
		next.Title = out.result.Title
	}
	if err := m.commit(ctx, queue.Transition{From: queue.StatusDownloading, Job: next, Note: notifications.Completed(next)}); err != nil {
		m.commitFailed(ctx, job, err, logger)
		return
	}
	logger.Info("download completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("media_id", mediaID),
		logging.Int64("size_bytes", next.SizeBytes),
		logging.String("title", next.Title),
	)
}

// failOrRetry routes a classified failure through the retry policy.
func (m *Manager) failOrRetry(ctx context.Context, job *queue.Job, cause error, logger *slog.Logger) {
	kind := services.KindOf(cause)
	decision := m.policy.Decide(kind, job.Attempt)
	attrs := logging.DecisionAttrs("retry_policy", string(decision.Action), decision.Reason)
	attrs = append(attrs,
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Int("attempt", job.Attempt),
		logging.Int("auto_retries", job.AutoRetries),
		logging.Error(cause),
	)

	if decision.Retry() {
		now := m.now()
		next := job.Clone()
		next.Status = queue.StatusQueued
		next.Attempt++
		next.AutoRetries++
		next.Progress = 0
		next.QueuedAt = now
		next.NextAttemptAt = nil
		if decision.Delay > 0 {
			due := now.Add(decision.Delay)
			next.NextAttemptAt = &due
		}
		if err := m.commit(ctx, queue.Transition{From: queue.StatusDownloading, Job: next, Note: notifications.Retried(next, decision.Reason)}); err != nil {
			m.commitFailed(ctx, job, err, logger)
			return
		}
		m.queue.push(next.ID, notBefore(next))
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "retry_scheduled"),
			logging.Duration("delay", decision.Delay),
			logging.Int("next_attempt", next.Attempt),
		)
		logger.Info("download requeued", logging.Args(attrs...)...)
		return
	}

	next := job.Clone()
	next.Status = queue.StatusFailed
	next.ErrorKind = kind
	next.ErrorMessage = cause.Error()
	if err := m.commit(ctx, queue.Transition{From: queue.StatusDownloading, Job: next, Note: notifications.Failed(next, decision.Reason)}); err != nil {
		m.commitFailed(ctx, job, err, logger)
		return
	}
	attrs = append(attrs,
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, notifications.Hint(kind, job.SourceURL)),
	)
	logging.WarnWithContext(logger, "download failed", "job_failed", attrs...)
}

// commitFailed handles a worker transition the store refused. A stale
// transition means a control operation won; anything else is retried once as
// an internal failure and otherwise left for startup recovery.
func (m *Manager) commitFailed(ctx context.Context, job *queue.Job, err error, logger *slog.Logger) {
	if queue.IsStale(err) {
		return
	}
	m.setLastError(err)
	next := job.Clone()
	next.Status = queue.StatusFailed
	next.ErrorKind = services.KindInternal
	next.ErrorMessage = services.Wrap(services.ErrInternal, "workflow", "commit", "transition rejected", err).Error()
	if failErr := m.commit(ctx, queue.Transition{From: queue.StatusDownloading, Job: next, Note: notifications.Failed(next, "internal error")}); failErr != nil {
		logging.ErrorWithContext(logger, "job transition not committed", "transition_failed",
			logging.Error(err),
			logging.String("fallback_error", failErr.Error()),
			logging.String(logging.FieldErrorHint, "job is requeued on the next daemon start"),
		)
		return
	}
	logging.ErrorWithContext(logger, "job failed on rejected transition", "transition_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(services.KindInternal)),
	)
}

func (rt *jobRuntime) setCancel(cancel context.CancelFunc) {
	rt.mu.Lock()
	rt.cancelFetch = cancel
	if cancel != nil && rt.pendingAbort {
		rt.pendingAbort = false
		cancel()
	}
	rt.mu.Unlock()
}

func (rt *jobRuntime) hold(result *media.Result) {
	rt.mu.Lock()
	rt.held = result
	rt.mu.Unlock()
}

func (rt *jobRuntime) takeHeld() *media.Result {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	held := rt.held
	rt.held = nil
	return held
}

func (rt *jobRuntime) setAbandoned(done <-chan fetchOutcome) {
	rt.mu.Lock()
	rt.abandoned = done
	rt.mu.Unlock()
}

func (rt *jobRuntime) takeAbandoned() <-chan fetchOutcome {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	done := rt.abandoned
	rt.abandoned = nil
	return done
}
