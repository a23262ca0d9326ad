package queue

import (
	"errors"
	"fmt"

	"appdl/internal/services"
)

var (
	// ErrJobNotFound is returned when no job matches the id.
	ErrJobNotFound = fmt.Errorf("job %w", services.ErrNotFound)
	// ErrNotificationNotFound is returned when no notification matches the id.
	ErrNotificationNotFound = fmt.Errorf("notification %w", services.ErrNotFound)
	// ErrMediaNotFound is returned when no catalog entry matches.
	ErrMediaNotFound = fmt.Errorf("media item %w", services.ErrNotFound)
	// ErrStaleTransition means the stored status no longer matches the
	// expected source status; another transition won.
	ErrStaleTransition = errors.New("stale transition")
	// ErrInvariant is returned when a job write would violate a job invariant.
	ErrInvariant = errors.New("job invariant violated")
)
