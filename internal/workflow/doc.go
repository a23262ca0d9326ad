// Package workflow is the job lifecycle manager.
//
// The Manager accepts download requests, admits them through a bounded FIFO
// into a fixed pool of worker slots, drives each job through the status
// state machine (queued, downloading, paused, completed, failed, cancelled)
// and consults the retry policy on classified failures. Every transition is
// committed together with its notification in one store transaction, under
// a per-job lock so racing Retry, Cancel, Pause and fetch completion calls
// cannot both apply.
//
// A single dispatcher goroutine pops eligible jobs whenever a slot frees, a
// job is enqueued, or a delayed retry becomes due. Jobs interrupted by a
// previous run are requeued on Start.
package workflow
