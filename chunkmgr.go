// Package chunkmgr implements the Chunk Manager: an in-process
// coordinator that tracks in-flight visits, allocates chunk descriptors
// and fixed-size memory blocks from a bounded pool, arbitrates
// exclusive ownership of each chunk among competing visits with a
// first-interested-first-served queue, and coordinates waiting,
// hand-off, commit and rollback across worker goroutines.
package chunkmgr

import (
	"github.com/outofforest/mass"

	"github.com/lsst-ap/chunkmgr/blockalloc"
	"github.com/lsst-ap/chunkmgr/chunkset"
	"github.com/lsst-ap/chunkmgr/clock"
	"github.com/lsst-ap/chunkmgr/syncutil"
	"github.com/lsst-ap/chunkmgr/types"
	"github.com/lsst-ap/chunkmgr/visittracker"
)

// Config fixes every resource bound at construction. All fields are
// immutable once passed to New.
type Config struct {
	// MaxVisitsInFlight bounds the visit tracker; must be a power of
	// two (reference value 16).
	MaxVisitsInFlight int
	// MaxChunks bounds the chunk descriptor pool; must be a power of
	// two.
	MaxChunks int
	// InterestedPartiesCapacity bounds each chunk's waiter FIFO; must
	// be a power of two.
	InterestedPartiesCapacity int
	// NumBlocks is the block pool's total capacity.
	NumBlocks int
	// BlockSize is the fixed size, in bytes, of one block.
	BlockSize int
	// MaxBlocksPerChunk caps a single Allocate call's block count.
	MaxBlocksPerChunk int
}

// ChunkManager is the façade: it holds the mutex, the ownership
// condition, the visit tracker, and the chunk sub-manager. Every
// public method acquires the mutex exactly once — no nested locks, no
// lock upgrades.
type ChunkManager struct {
	cfg Config

	cond    *syncutil.Cond
	tracker *visittracker.Tracker
	chunks  *chunkset.SubManager
	alloc   *blockalloc.Allocator
	massH   *mass.Mass[ChunkHandle]
}

// New constructs a ChunkManager with its own heap-allocated block pool.
func New(cfg Config) *ChunkManager {
	return NewWithAllocator(cfg, blockalloc.New(blockalloc.Config{
		NumBlocks:         cfg.NumBlocks,
		BlockSize:         cfg.BlockSize,
		MaxBlocksPerChunk: cfg.MaxBlocksPerChunk,
	}))
}

// NewWithAllocator constructs a ChunkManager over a caller-supplied
// block allocator, e.g. one built with blockalloc.NewShared for a
// multi-process deployment.
func NewWithAllocator(cfg Config, alloc *blockalloc.Allocator) *ChunkManager {
	return &ChunkManager{
		cfg:     cfg,
		cond:    syncutil.New(),
		tracker: visittracker.New(cfg.MaxVisitsInFlight),
		chunks: chunkset.New(chunkset.Config{
			MaxChunks:                 cfg.MaxChunks,
			InterestedPartiesCapacity: cfg.InterestedPartiesCapacity,
		}, alloc),
		alloc: alloc,
		massH: mass.New[ChunkHandle](uint64(cfg.MaxChunks)),
	}
}

// RegisterVisit adds visitId as a new in-flight visit. Fails with
// AlreadyInFlight if it is already registered, or CapacityExceeded if
// the visit tracker is full.
func (m *ChunkManager) RegisterVisit(visitID types.VisitID) error {
	m.cond.Lock()
	defer m.cond.Unlock()

	if m.tracker.Exists(visitID) {
		return types.AlreadyInFlight()
	}
	if m.tracker.Len() >= m.tracker.Cap() {
		return types.CapacityExceeded("visit tracker full")
	}
	m.tracker.Register(visitID)
	return nil
}

// IsVisitInFlight reports whether visitID is registered and not failed.
func (m *ChunkManager) IsVisitInFlight(visitID types.VisitID) bool {
	m.cond.Lock()
	defer m.cond.Unlock()
	return m.tracker.IsValid(visitID)
}

// FailVisit marks visitID as failed. Idempotent; silent if unknown.
func (m *ChunkManager) FailVisit(visitID types.VisitID) {
	m.cond.Lock()
	defer m.cond.Unlock()
	m.tracker.MarkFailed(visitID)
}

// StartVisit requests ownership of chunkIDs on behalf of visitID.
// Fails with NotInFlight if the visit is unknown or failed, or
// CapacityExceeded if there aren't enough free descriptors for the
// request. Newly owned chunks come back in toRead; chunks already
// owned by another visit come back in toWaitFor.
func (m *ChunkManager) StartVisit(
	visitID types.VisitID,
	chunkIDs []types.ChunkID,
) (toRead, toWaitFor []*ChunkHandle, err error) {
	m.cond.Lock()
	defer m.cond.Unlock()

	if !m.tracker.IsValid(visitID) {
		return nil, nil, types.NotInFlight()
	}
	if len(chunkIDs) > m.chunks.Cap()-m.chunks.Len() {
		return nil, nil, types.CapacityExceeded("insufficient free chunk descriptors")
	}

	descRead, descWait, err := m.chunks.CreateOrRegisterInterest(visitID, chunkIDs)
	if err != nil {
		return nil, nil, err
	}

	return m.wrapAll(visitID, descRead), m.wrapAll(visitID, descWait), nil
}

// WaitForOwnership blocks until every chunk in toWaitFor is owned by
// visitID, or deadline passes. Returns the chunks (a subset of
// toWaitFor) that must be (re-)read because they were not usable when
// ownership transferred. Fails with DeadlineExceeded on timeout; a
// visit being marked failed by another goroutine does NOT abort the
// wait — that is the caller's decision via FailVisit + EndVisit.
func (m *ChunkManager) WaitForOwnership(
	visitID types.VisitID,
	toWaitFor []*ChunkHandle,
	deadline clock.Deadline,
) ([]*ChunkHandle, error) {
	m.cond.Lock()
	defer m.cond.Unlock()

	descWaitFor := unwrapAll(toWaitFor)
	var descToRead []*chunkset.Descriptor

	satisfied := func() bool {
		var newToRead []*chunkset.Descriptor
		descWaitFor, newToRead = m.chunks.CheckForOwnership(visitID, descWaitFor)
		descToRead = append(descToRead, newToRead...)
		return len(descWaitFor) == 0
	}

	if !m.cond.WaitPredicateDeadline(satisfied, deadline) {
		return nil, types.DeadlineExceeded()
	}

	return m.wrapAll(visitID, descToRead), nil
}

// GetChunks returns handles for every currently known id among
// chunkIDs (unknown ids are silently skipped). Does not change
// ownership and never blocks.
func (m *ChunkManager) GetChunks(chunkIDs []types.ChunkID) []*ChunkHandle {
	m.cond.Lock()
	defer m.cond.Unlock()

	handles := make([]*ChunkHandle, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		d := m.chunks.Find(id)
		if d == nil {
			continue
		}
		handles = append(handles, m.wrap(d.OwnerVisit(), d))
	}
	return handles
}

// EndVisit ends visitID's participation. The effective rollback is
// rollback || !tracker.IsValid(visitID): once a visit has been marked
// failed, it always rolls back regardless of the rollback argument.
// Returns whether the visit's work was committed (always false if the
// visit did not exist).
func (m *ChunkManager) EndVisit(visitID types.VisitID, rollback bool) bool {
	m.cond.Lock()
	defer m.cond.Unlock()

	if !m.tracker.Exists(visitID) {
		return false
	}

	effectiveRollback := rollback || !m.tracker.IsValid(visitID)
	m.tracker.Erase(visitID)

	changed := m.chunks.RelinquishOwnership(visitID, effectiveRollback, m.tracker.IsValid)
	if changed {
		m.cond.Broadcast()
	}

	return !effectiveRollback
}

func (m *ChunkManager) wrap(visitID types.VisitID, d *chunkset.Descriptor) *ChunkHandle {
	h := m.massH.New()
	h.id = d.ID()
	h.visitID = visitID
	h.desc = d
	h.alloc = m.alloc
	return h
}

func (m *ChunkManager) wrapAll(visitID types.VisitID, descs []*chunkset.Descriptor) []*ChunkHandle {
	if len(descs) == 0 {
		return nil
	}
	handles := make([]*ChunkHandle, len(descs))
	for i, d := range descs {
		handles[i] = m.wrap(visitID, d)
	}
	return handles
}

func unwrapAll(handles []*ChunkHandle) []*chunkset.Descriptor {
	if len(handles) == 0 {
		return nil
	}
	descs := make([]*chunkset.Descriptor, len(handles))
	for i, h := range handles {
		descs[i] = h.desc
	}
	return descs
}
