package queue

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusDownloading, true},
		{StatusQueued, StatusCancelled, true},
		{StatusQueued, StatusCompleted, false},
		{StatusDownloading, StatusQueued, true},
		{StatusDownloading, StatusPaused, true},
		{StatusPaused, StatusDownloading, true},
		{StatusPaused, StatusQueued, false},
		{StatusFailed, StatusQueued, true},
		{StatusFailed, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusQueued, false},
	}
	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestJobEligible(t *testing.T) {
	now := time.Now()
	job := &Job{Status: StatusQueued}
	if !job.Eligible(now) {
		t.Fatal("expected job without delay to be eligible")
	}
	later := now.Add(time.Second)
	job.NextAttemptAt = &later
	if job.Eligible(now) {
		t.Fatal("expected delayed job to be ineligible")
	}
	if !job.Eligible(later) {
		t.Fatal("expected job to be eligible at its retry time")
	}
}

func TestJobValidate(t *testing.T) {
	valid := &Job{Status: StatusCompleted, MediaID: "m", Progress: 100}
	if err := valid.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []*Job{
		{Status: StatusQueued, MediaID: "m"},
		{Status: StatusQueued, ErrorMessage: "boom"},
		{Status: StatusFailed},
		{Status: StatusDownloading, Progress: 101},
		{Status: Status("bogus")},
	}
	for _, job := range bad {
		if err := job.validate(); err == nil {
			t.Fatalf("expected invariant error for %+v", job)
		}
	}
}
