// Package hashedset implements the fixed-capacity, open-addressing-by-
// chaining set keyed by 64-bit identifiers that the visit tracker and
// chunk sub-manager are both specializations of.
package hashedset

import "github.com/lsst-ap/chunkmgr/types"

const noIndex = -1

type entry[V any] struct {
	id    int64
	next  int // next in bucket chain, or in the free list when id == NoID
	value V
}

// Set is a fixed-capacity set of at most capacity entries keyed by a
// 64-bit id, with collisions resolved by chaining through an embedded
// "next" field and free slots threaded into a singly linked free list.
// Capacity is fixed at construction and never grows.
type Set[V any] struct {
	entries  []entry[V]
	buckets  []int // length 2*capacity, load factor <= 0.5
	freeHead int
	size     int
}

// New creates a Set able to hold up to capacity entries. capacity must
// be a power of two; the hash table is sized at 2*capacity buckets to
// keep the load factor at or below 0.5.
func New[V any](capacity int) *Set[V] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("hashedset: capacity must be a power of two")
	}

	s := &Set[V]{
		entries:  make([]entry[V], capacity),
		buckets:  make([]int, 2*capacity),
		freeHead: 0,
	}
	for i := range s.buckets {
		s.buckets[i] = noIndex
	}
	for i := range s.entries {
		s.entries[i].id = types.NoID
		if i == len(s.entries)-1 {
			s.entries[i].next = noIndex
		} else {
			s.entries[i].next = i + 1
		}
	}
	return s
}

// Cap returns the fixed entry capacity.
func (s *Set[V]) Cap() int {
	return len(s.entries)
}

// Len returns the number of currently occupied entries.
func (s *Set[V]) Len() int {
	return s.size
}

func (s *Set[V]) bucket(id int64) int {
	return int(wangMix64(uint64(id))) & (len(s.buckets) - 1)
}

// Find returns a pointer to the value for id, or nil if absent. O(1)
// expected, O(chain length) worst case.
func (s *Set[V]) Find(id int64) *V {
	idx := s.doFind(id)
	if idx == noIndex {
		return nil
	}
	return &s.entries[idx].value
}

func (s *Set[V]) doFind(id int64) int {
	b := s.bucket(id)
	for i := s.buckets[b]; i != noIndex; i = s.entries[i].next {
		if s.entries[i].id == id {
			return i
		}
	}
	return noIndex
}

// Insert default-constructs a new entry for id and returns a pointer to
// it, or returns nil if id already exists or no free entry remains.
func (s *Set[V]) Insert(id int64) *V {
	v, inserted := s.FindOrInsert(id)
	if !inserted {
		return nil
	}
	return v
}

// FindOrInsert returns the existing entry for id, or inserts a new one
// if absent. inserted reports whether a new entry was created; when
// inserted is true and the returned pointer is nil, insertion was
// needed but no free entry remained (the set is full).
func (s *Set[V]) FindOrInsert(id int64) (value *V, inserted bool) {
	if idx := s.doFind(id); idx != noIndex {
		return &s.entries[idx].value, false
	}
	if s.freeHead == noIndex {
		return nil, true
	}

	idx := s.freeHead
	s.freeHead = s.entries[idx].next

	b := s.bucket(id)
	s.entries[idx].id = id
	s.entries[idx].next = s.buckets[b]
	var zero V
	s.entries[idx].value = zero
	s.buckets[b] = idx
	s.size++

	return &s.entries[idx].value, true
}

// Erase removes id from the set, unlinking it from its bucket chain and
// returning its slot to the free list. Reports whether id was present.
func (s *Set[V]) Erase(id int64) bool {
	b := s.bucket(id)
	prev := noIndex
	for i := s.buckets[b]; i != noIndex; prev, i = i, s.entries[i].next {
		if s.entries[i].id != id {
			continue
		}
		if prev == noIndex {
			s.buckets[b] = s.entries[i].next
		} else {
			s.entries[prev].next = s.entries[i].next
		}

		s.entries[i].id = types.NoID
		var zero V
		s.entries[i].value = zero
		s.entries[i].next = s.freeHead
		s.freeHead = i
		s.size--
		return true
	}
	return false
}

// Each calls fn for every occupied entry. Callers that iterate the raw
// backing array directly must check id != NoID themselves; Each already
// does that filtering.
func (s *Set[V]) Each(fn func(id int64, value *V)) {
	for i := range s.entries {
		if s.entries[i].id != types.NoID {
			fn(s.entries[i].id, &s.entries[i].value)
		}
	}
}

// FreeListLen returns the number of unused entries, which must always
// equal Cap()-Len(); exposed for tests that check that invariant.
func (s *Set[V]) FreeListLen() int {
	n := 0
	for i := s.freeHead; i != noIndex; i = s.entries[i].next {
		n++
	}
	return n
}
