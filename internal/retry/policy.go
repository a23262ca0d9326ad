// Package retry decides whether a failed download is attempted again.
//
// Decide is a pure function of the classified failure and the job's attempt
// counter; callers own the clock.
package retry

import (
	"fmt"
	"time"

	"appdl/internal/services"
)

// Action is the verdict for one failure.
type Action string

const (
	RetryNow   Action = "retry_now"
	RetryAfter Action = "retry_after"
	Stop       Action = "stop"
)

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Delay  time.Duration
	// Reason is a short human-readable explanation shown with the
	// notification for the transition.
	Reason string
}

// Retry reports whether the job goes back to the queue.
func (d Decision) Retry() bool {
	return d.Action == RetryNow || d.Action == RetryAfter
}

// Policy configures exponential backoff for retryable failures.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns base 2s, cap 60s, three automatic retries.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}
}

// Decide maps a failure kind and the attempt that failed onto a verdict.
// Once attempt reaches MaxAttempts nothing is retried automatically, so a
// user retry past the budget gets exactly one more fetch.
func (p Policy) Decide(kind services.Kind, attempt int) Decision {
	if !kind.Retryable() {
		return Decision{Action: Stop, Reason: stopReason(kind)}
	}
	if attempt >= p.MaxAttempts {
		return Decision{
			Action: Stop,
			Reason: fmt.Sprintf("%s: gave up at attempt %d of %d", kind, attempt, p.MaxAttempts),
		}
	}
	delay := p.Backoff(attempt)
	if delay <= 0 {
		return Decision{
			Action: RetryNow,
			Reason: fmt.Sprintf("%s: retry %d of %d", kind, attempt+1, p.MaxAttempts),
		}
	}
	return Decision{
		Action: RetryAfter,
		Delay:  delay,
		Reason: fmt.Sprintf("%s: retry %d of %d in %s", kind, attempt+1, p.MaxAttempts, delay),
	}
}

// Backoff returns min(base * 2^n, max).
func (p Policy) Backoff(n int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 0; i < n; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func stopReason(kind services.Kind) string {
	switch kind {
	case services.KindAuthRequired:
		return "AuthRequired: sign-in needed, refresh cookies and retry"
	case services.KindUnsupportedPlatform:
		return "UnsupportedPlatform: the source cannot be downloaded"
	case services.KindQuotaExceeded:
		return "QuotaExceeded: the platform is rate limiting requests"
	case "":
		return "failed without classification"
	default:
		return fmt.Sprintf("%s: not retried automatically", kind)
	}
}
