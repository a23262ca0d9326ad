package services

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a classified failure.
type Kind string

const (
	KindInvalidURL          Kind = "InvalidUrl"
	KindUnsupportedPlatform Kind = "UnsupportedPlatform"
	KindQueueFull           Kind = "QueueFull"
	KindAuthRequired        Kind = "AuthRequired"
	KindNetwork             Kind = "NetworkError"
	KindQuotaExceeded       Kind = "QuotaExceeded"
	KindInvalidState        Kind = "InvalidState"
	KindInternal            Kind = "InternalError"
	KindNotFound            Kind = "NotFound"
	KindValidation          Kind = "ValidationError"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrQueueFull           = errors.New("queue full")
	ErrAuthRequired        = errors.New("authentication required")
	ErrNetwork             = errors.New("network error")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrInvalidState        = errors.New("invalid state")
	ErrInternal            = errors.New("internal error")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
)

var kindMarkers = []struct {
	kind   Kind
	marker error
}{
	{KindInvalidURL, ErrInvalidURL},
	{KindUnsupportedPlatform, ErrUnsupportedPlatform},
	{KindQueueFull, ErrQueueFull},
	{KindAuthRequired, ErrAuthRequired},
	{KindNetwork, ErrNetwork},
	{KindQuotaExceeded, ErrQuotaExceeded},
	{KindInvalidState, ErrInvalidState},
	{KindNotFound, ErrNotFound},
	{KindValidation, ErrValidation},
	{KindInternal, ErrInternal},
}

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above; nil defaults to ErrInternal.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf returns the classified kind of err. Errors carrying no marker are
// internal errors; nil yields the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindMarkers {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	return KindInternal
}

// Marker returns the sentinel error for a kind.
func Marker(kind Kind) error {
	for _, entry := range kindMarkers {
		if entry.kind == kind {
			return entry.marker
		}
	}
	return ErrInternal
}

// ParseKind resolves a stored kind name.
func ParseKind(value string) (Kind, bool) {
	value = strings.TrimSpace(value)
	for _, entry := range kindMarkers {
		if strings.EqualFold(string(entry.kind), value) {
			return entry.kind, true
		}
	}
	return "", false
}

// Retryable reports whether the kind may ever succeed on an automatic retry.
func (k Kind) Retryable() bool {
	return k == KindNetwork
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
