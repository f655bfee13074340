// Package clock provides the absolute, monotonic deadline value used by
// the ownership condition's timed wait.
package clock

import "time"

// Deadline is an absolute point in time, monotonic per Go's time.Time
// semantics (https://pkg.go.dev/time#hdr-Monotonic_Clocks). The zero
// value is not a valid deadline; use Never for "wait forever".
type Deadline struct {
	t       time.Time
	forever bool
}

// After returns a Deadline d in the future.
func After(d time.Duration) Deadline {
	return Deadline{t: time.Now().Add(d)}
}

// At returns a Deadline pinned to an absolute instant, for tests that
// need deterministic deadlines.
func At(t time.Time) Deadline {
	return Deadline{t: t}
}

// Never returns a Deadline that never expires.
func Never() Deadline {
	return Deadline{forever: true}
}

// Expired reports whether the deadline has already passed.
func (d Deadline) Expired() bool {
	if d.forever {
		return false
	}
	return !time.Now().Before(d.t)
}

// Remaining returns the duration until the deadline, or the largest
// representable duration if the deadline never expires. A non-positive
// result means the deadline has passed.
func (d Deadline) Remaining() time.Duration {
	if d.forever {
		return time.Duration(1<<63 - 1)
	}
	return time.Until(d.t)
}

// Forever reports whether this deadline never expires.
func (d Deadline) Forever() bool {
	return d.forever
}
