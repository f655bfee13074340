package chunkset

import (
	"github.com/lsst-ap/chunkmgr/blockalloc"
	"github.com/lsst-ap/chunkmgr/fifo"
	"github.com/lsst-ap/chunkmgr/hashedset"
	"github.com/lsst-ap/chunkmgr/types"
)

// Config fixes the sub-manager's resource bounds at construction.
type Config struct {
	// MaxChunks bounds the descriptor HashedSet's capacity; must be a
	// power of two.
	MaxChunks int
	// InterestedPartiesCapacity bounds each descriptor's FIFO of
	// waiting visits; must be a power of two.
	InterestedPartiesCapacity int
}

// SubManager holds the hashed set of chunk descriptors and the block
// allocator backing them. Every method assumes the manager's mutex is
// already held by the caller; SubManager itself holds no lock.
type SubManager struct {
	cfg   Config
	set   *hashedset.Set[Descriptor]
	alloc *blockalloc.Allocator
}

// New creates a SubManager. alloc is the block pool new chunks draw
// from; it outlives the SubManager.
func New(cfg Config, alloc *blockalloc.Allocator) *SubManager {
	return &SubManager{
		cfg:   cfg,
		set:   hashedset.New[Descriptor](cfg.MaxChunks),
		alloc: alloc,
	}
}

// Find returns the descriptor for id, or nil if no such chunk is
// currently tracked (Free state).
func (m *SubManager) Find(id types.ChunkID) *Descriptor {
	return m.set.Find(int64(id))
}

// Len returns the number of currently occupied (non-Free) descriptors.
func (m *SubManager) Len() int {
	return m.set.Len()
}

// Cap returns the descriptor pool's fixed capacity.
func (m *SubManager) Cap() int {
	return m.set.Cap()
}

// Each calls fn for every currently occupied descriptor, for printing
// and scanning.
func (m *SubManager) Each(fn func(id types.ChunkID, d *Descriptor)) {
	m.set.Each(func(id int64, d *Descriptor) {
		fn(types.ChunkID(id), d)
	})
}

// CreateOrRegisterInterest grants or queues ownership of a set of chunks
// for a visit. For each
// (duplicate-free) chunk id: if no descriptor exists yet, one is
// created owned by visitID and returned in toRead; otherwise visitID is
// enqueued on the existing descriptor's interested-parties FIFO and it
// is returned in toWaitFor.
//
// Strong exception safety: the whole call either succeeds or mutates
// nothing. This is checked up front — counting how many new
// descriptors would be needed against the HashedSet's free-entry count,
// and checking every already-owned chunk's FIFO has room — before any
// mutation happens.
func (m *SubManager) CreateOrRegisterInterest(
	visitID types.VisitID,
	chunkIDs []types.ChunkID,
) (toRead, toWaitFor []*Descriptor, err error) {
	needNew := 0
	for _, id := range chunkIDs {
		d := m.set.Find(int64(id))
		if d == nil {
			needNew++
			continue
		}
		if d.interestedParties.Full() {
			return nil, nil, types.CapacityExceeded("interested-parties fifo full")
		}
	}
	if needNew > m.set.Cap()-m.set.Len() {
		return nil, nil, types.CapacityExceeded("insufficient free chunk descriptors")
	}

	toRead = make([]*Descriptor, 0, needNew)
	toWaitFor = make([]*Descriptor, 0, len(chunkIDs)-needNew)

	for _, id := range chunkIDs {
		if d := m.set.Find(int64(id)); d != nil {
			// Guaranteed room: checked above under the same lock.
			_ = d.interestedParties.Enqueue(int64(visitID))
			toWaitFor = append(toWaitFor, d)
			continue
		}

		d, inserted := m.set.FindOrInsert(int64(id))
		if !inserted || d == nil {
			// Unreachable given the precheck above; defensive only.
			return nil, nil, types.CapacityExceeded("insufficient free chunk descriptors")
		}
		*d = Descriptor{
			id:                id,
			ownerVisit:        visitID,
			usable:            false,
			interestedParties: fifo.New(m.cfg.InterestedPartiesCapacity),
		}
		toRead = append(toRead, d)
	}

	return toRead, toWaitFor, nil
}

// CheckForOwnership reports which queued chunks a visit now owns. Every descriptor in
// toWaitFor now owned by visitID is removed (filtered in place — the
// returned remaining slice reuses toWaitFor's backing array and keeps
// the relative order of the entries left); those not yet usable are
// additionally returned in toRead so the visit re-reads them.
func (m *SubManager) CheckForOwnership(
	visitID types.VisitID,
	toWaitFor []*Descriptor,
) (remaining, toRead []*Descriptor) {
	remaining = toWaitFor[:0]
	for _, d := range toWaitFor {
		if d.OwnerVisit() != visitID {
			remaining = append(remaining, d)
			continue
		}
		if !d.Usable() {
			toRead = append(toRead, d)
		}
	}
	return remaining, toRead
}

// RelinquishOwnership ends a visit's ownership of every descriptor it
// currently owns, handing each off to its next interested party or
// freeing it if none remain, and removes visitID from the
// interested-parties queue of every other descriptor. isValid reports
// whether a given visit id is still a live candidate successor
// (registered and not failed). Returns whether any descriptor changed
// owner, so the caller knows whether to notifyAll; freeing a
// descriptor does not count as a change.
func (m *SubManager) RelinquishOwnership(
	visitID types.VisitID,
	rollback bool,
	isValid func(types.VisitID) bool,
) bool {
	changed := false
	var toErase []types.ChunkID

	m.set.Each(func(id int64, d *Descriptor) {
		if d.ownerVisit != visitID {
			// Drop visitID from this chunk's waiters, keeping the
			// others in their original order.
			q := d.interestedParties
			for i, n := 0, q.Len(); i < n; i++ {
				raw, _ := q.Dequeue()
				if types.VisitID(raw) != visitID {
					_ = q.Enqueue(raw)
				}
			}
			return
		}

		successor, found := nextValidInterestedParty(d.interestedParties, isValid)
		if !found {
			d.Clear(m.alloc)
			toErase = append(toErase, types.ChunkID(id))
			return
		}

		if d.usable {
			// Owned-Ready -> Owned-Ready: fold or discard the
			// departing owner's changes, successor inherits the
			// already-loaded chunk as-is.
			if rollback {
				d.Rollback(m.alloc)
			} else {
				d.Commit()
			}
		} else {
			// Owned-Loading -> Owned-Loading: the departing owner
			// never finished its read; release its partial blocks so
			// the successor starts clean and re-reads (observed via
			// CheckForOwnership's !usable check).
			d.Clear(m.alloc)
		}
		d.ownerVisit = successor
		changed = true
	})

	for _, id := range toErase {
		m.set.Erase(int64(id))
	}
	return changed
}

// nextValidInterestedParty drains q from the front until either it is
// empty or a valid (still in-flight, not failed) visit id is found.
// Drained invalid ids are permanently discarded, never re-queued.
func nextValidInterestedParty(q *fifo.FIFO, isValid func(types.VisitID) bool) (types.VisitID, bool) {
	for {
		raw, ok := q.Dequeue()
		if !ok {
			return 0, false
		}
		id := types.VisitID(raw)
		if isValid(id) {
			return id, true
		}
	}
}
