// Package syncutil provides the mutex-guarded condition variable the
// chunk manager serializes every public call on.
package syncutil

import (
	"sync"
	"time"

	"github.com/lsst-ap/chunkmgr/clock"
)

// Cond pairs a sync.Mutex with a broadcast-only condition, extended
// with deadline-bounded waiting — something sync.Cond does not offer
// natively. Modeled on the wait/wait-with-predicate/timed-wait/
// timed-wait-with-predicate quartet of a POSIX condition variable.
type Cond struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// New creates a ready-to-use Cond.
func New() *Cond {
	c := &Cond{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Lock acquires the underlying mutex. Callers hold it for the entire
// duration of one manager transaction.
func (c *Cond) Lock() {
	c.mu.Lock()
}

// Unlock releases the underlying mutex.
func (c *Cond) Unlock() {
	c.mu.Unlock()
}

// Wait blocks until Broadcast is called. The lock must be held; it is
// released while waiting and reacquired before returning.
func (c *Cond) Wait() {
	c.cond.Wait()
}

// WaitPredicate blocks until predicate() returns true, rechecking after
// every wakeup (guards against spurious wakeup, matching
// pthread_cond_wait's documented behavior). The lock must be held.
func (c *Cond) WaitPredicate(predicate func() bool) {
	for !predicate() {
		c.cond.Wait()
	}
}

// WaitDeadline blocks until Broadcast is called or the deadline passes.
// Returns true if woken by a broadcast before the deadline, false on
// timeout. The lock must be held throughout; it is released while
// actually blocked.
func (c *Cond) WaitDeadline(deadline clock.Deadline) bool {
	if deadline.Expired() {
		return false
	}
	timedOut := false
	timer := time.AfterFunc(deadline.Remaining(), func() {
		c.mu.Lock()
		timedOut = true
		c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer timer.Stop()
	c.cond.Wait()
	return !timedOut
}

// WaitPredicateDeadline blocks until predicate() is true or the
// deadline passes, returning which happened first. The lock must be
// held throughout.
func (c *Cond) WaitPredicateDeadline(predicate func() bool, deadline clock.Deadline) bool {
	if predicate() {
		return true
	}
	if deadline.Forever() {
		c.WaitPredicate(predicate)
		return true
	}
	if deadline.Expired() {
		return predicate()
	}

	timedOut := false

	timer := time.AfterFunc(deadline.Remaining(), func() {
		c.mu.Lock()
		timedOut = true
		c.mu.Unlock()
		c.cond.Broadcast()
	})
	defer timer.Stop()

	for !predicate() {
		if timedOut {
			return false
		}
		c.cond.Wait()
	}
	return true
}

// Broadcast wakes every waiter. A notify-one variant is deliberately not
// provided: every transition that can satisfy multiple waiters must wake
// all of them so each can re-check its own predicate.
func (c *Cond) Broadcast() {
	c.cond.Broadcast()
}
