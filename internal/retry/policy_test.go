package retry

import (
	"testing"
	"time"

	"appdl/internal/services"
)

func TestDecideNetworkBackoff(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		attempt int
		action  Action
		delay   time.Duration
	}{
		{0, RetryAfter, 2 * time.Second},
		{1, RetryAfter, 4 * time.Second},
		{2, RetryAfter, 8 * time.Second},
		{3, Stop, 0},
		{7, Stop, 0},
	}
	for _, tc := range tests {
		got := p.Decide(services.KindNetwork, tc.attempt)
		if got.Action != tc.action || got.Delay != tc.delay {
			t.Fatalf("Decide(network, %d) = %+v, want %s %s", tc.attempt, got, tc.action, tc.delay)
		}
		if got.Reason == "" {
			t.Fatalf("Decide(network, %d) missing reason", tc.attempt)
		}
	}
}

func TestDecideStopsNonRetryableKinds(t *testing.T) {
	p := DefaultPolicy()
	for _, kind := range []services.Kind{
		services.KindAuthRequired,
		services.KindUnsupportedPlatform,
		services.KindQuotaExceeded,
		services.KindInternal,
		services.KindInvalidURL,
	} {
		got := p.Decide(kind, 0)
		if got.Action != Stop || got.Retry() {
			t.Fatalf("Decide(%s, 0) = %+v, want stop", kind, got)
		}
	}
}

func TestDecideRetryNowWithoutDelay(t *testing.T) {
	p := Policy{MaxAttempts: 2}
	got := p.Decide(services.KindNetwork, 1)
	if got.Action != RetryNow || got.Delay != 0 {
		t.Fatalf("expected immediate retry, got %+v", got)
	}
}

func TestBackoffCaps(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}
	if got := p.Backoff(5); got != 60*time.Second {
		t.Fatalf("Backoff(5) = %s, want 60s", got)
	}
	if got := p.Backoff(40); got != 60*time.Second {
		t.Fatalf("Backoff(40) = %s, want 60s", got)
	}
}
