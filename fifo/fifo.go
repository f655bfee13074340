// Package fifo implements the bounded power-of-two circular ring buffer
// of 64-bit ids used for each chunk descriptor's interested-parties
// queue.
package fifo

import "github.com/lsst-ap/chunkmgr/types"

// FIFO is a fixed-capacity circular buffer of int64 ids. Capacity must
// be a power of two (enforced by New).
type FIFO struct {
	buf        []int64
	mask       int64
	head, tail int64
	size       int64
}

// New creates a FIFO with the given capacity, which must be a power of
// two (matching the original Fifo<NumEntries> template's compile-time
// assertion).
func New(capacity int) *FIFO {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("fifo: capacity must be a power of two")
	}
	return &FIFO{
		buf:  make([]int64, capacity),
		mask: int64(capacity - 1),
	}
}

// Cap returns the FIFO's fixed capacity.
func (f *FIFO) Cap() int {
	return len(f.buf)
}

// Len returns the number of queued ids.
func (f *FIFO) Len() int {
	return int(f.size)
}

// Empty reports whether the FIFO holds no ids.
func (f *FIFO) Empty() bool {
	return f.size == 0
}

// Full reports whether the FIFO is at capacity.
func (f *FIFO) Full() bool {
	return int(f.size) == len(f.buf)
}

// Enqueue appends id to the tail. Fails with CapacityExceeded if full.
func (f *FIFO) Enqueue(id int64) error {
	if f.Full() {
		return types.CapacityExceeded("interested-parties fifo full")
	}
	f.buf[f.tail] = id
	f.tail = (f.tail + 1) & f.mask
	f.size++
	return nil
}

// Dequeue removes and returns the id at the head. ok is false if the
// FIFO was empty.
func (f *FIFO) Dequeue() (id int64, ok bool) {
	if f.Empty() {
		return 0, false
	}
	id = f.buf[f.head]
	f.head = (f.head + 1) & f.mask
	f.size--
	return id, true
}

// Clear empties the FIFO without freeing its backing array.
func (f *FIFO) Clear() {
	f.head, f.tail, f.size = 0, 0, 0
}

// Contains reports whether id is currently queued. Enqueue itself does
// not reject duplicates.
func (f *FIFO) Contains(id int64) bool {
	for i := int64(0); i < f.size; i++ {
		if f.buf[(f.head+i)&f.mask] == id {
			return true
		}
	}
	return false
}

// Each calls fn for every queued id, head to tail, without dequeuing.
func (f *FIFO) Each(fn func(id int64)) {
	for i := int64(0); i < f.size; i++ {
		fn(f.buf[(f.head+i)&f.mask])
	}
}
