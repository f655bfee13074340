package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a recoverable chunk-manager error.
type Kind int

// Error kinds, per the external interface's failure modes.
const (
	// KindAlreadyInFlight is returned by RegisterVisit for a visit id
	// that is already registered.
	KindAlreadyInFlight Kind = iota
	// KindNotInFlight is returned when an operation requires a valid,
	// in-flight visit and the given id is unknown or failed.
	KindNotInFlight
	// KindCapacityExceeded is returned when a bounded pool (visits,
	// descriptors, FIFO entries, blocks) has no room left.
	KindCapacityExceeded
	// KindDeadlineExceeded is returned by WaitForOwnership on timeout.
	KindDeadlineExceeded
	// KindOutOfRange is returned when a per-chunk block request exceeds
	// MaxBlocksPerChunk.
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyInFlight:
		return "already in flight"
	case KindNotInFlight:
		return "not in flight"
	case KindCapacityExceeded:
		return "capacity exceeded"
	case KindDeadlineExceeded:
		return "deadline exceeded"
	case KindOutOfRange:
		return "out of range"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every chunk-manager
// operation. Callers distinguish failure modes with Is/the Kind method,
// never by string matching.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is reports whether target has the same Kind, so callers may write
// errors.Is(err, types.AlreadyInFlight()).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// AlreadyInFlight builds a KindAlreadyInFlight error.
func AlreadyInFlight() error {
	return errors.WithStack(&Error{Kind: KindAlreadyInFlight})
}

// NotInFlight builds a KindNotInFlight error.
func NotInFlight() error {
	return errors.WithStack(&Error{Kind: KindNotInFlight})
}

// CapacityExceeded builds a KindCapacityExceeded error with a short
// note on which pool was exhausted.
func CapacityExceeded(reason string) error {
	return errors.WithStack(&Error{Kind: KindCapacityExceeded, Reason: reason})
}

// DeadlineExceeded builds a KindDeadlineExceeded error.
func DeadlineExceeded() error {
	return errors.WithStack(&Error{Kind: KindDeadlineExceeded})
}

// OutOfRange builds a KindOutOfRange error with a short note.
func OutOfRange(reason string) error {
	return errors.WithStack(&Error{Kind: KindOutOfRange, Reason: reason})
}
