package chunkmgr

import (
	"lukechampine.com/blake3"

	"github.com/lsst-ap/chunkmgr/blockalloc"
	"github.com/lsst-ap/chunkmgr/chunkset"
	"github.com/lsst-ap/chunkmgr/types"
)

// ChunkHandle is a non-owning reference pairing a chunk descriptor with
// the block allocator it draws from. It is cheap to copy and not
// thread-safe on its own — callers serialize access to a chunk's
// blocks via visit ownership, never via the manager's mutex (which
// only guards descriptor bookkeeping).
type ChunkHandle struct {
	id      types.ChunkID
	visitID types.VisitID
	desc    *chunkset.Descriptor
	alloc   *blockalloc.Allocator
}

// GetID returns the chunk id this handle refers to.
func (h *ChunkHandle) GetID() types.ChunkID {
	return h.id
}

// GetVisitID returns the visit this handle was issued to.
func (h *ChunkHandle) GetVisitID() types.VisitID {
	return h.visitID
}

// IsUsable reports whether the chunk's contents have been fully read
// in (Owned-Ready) as opposed to still loading (Owned-Loading).
func (h *ChunkHandle) IsUsable() bool {
	return h.desc.Usable()
}

// MarkUsable records that this visit has finished reading the chunk in,
// transitioning it from Owned-Loading to Owned-Ready.
func (h *ChunkHandle) MarkUsable() {
	h.desc.MarkUsable()
}

// AppendDelta allocates n additional blocks for the chunk's uncommitted
// delta region and returns their offsets, for the visit-private code
// above this core to write new data into.
func (h *ChunkHandle) AppendDelta(n int) ([]int64, error) {
	return h.desc.AppendDelta(h.alloc, n)
}

// Commit folds the chunk's uncommitted delta region into its permanent,
// committed state. Never allocates or frees blocks, so invariant (3)
// holds across the call regardless of what the data-storage layer did
// with AppendDelta.
func (h *ChunkHandle) Commit() {
	h.desc.Commit()
}

// Rollback discards the chunk's uncommitted delta region, returning its
// blocks to the allocator.
func (h *ChunkHandle) Rollback() {
	h.desc.Rollback(h.alloc)
}

// Clear drops every block owned by the chunk — committed and
// uncommitted — back to the allocator, used on hand-off-with-reread
// where the next owner starts the chunk over from scratch.
func (h *ChunkHandle) Clear() {
	h.desc.Clear(h.alloc)
}

// Checksum returns a debug-time blake3 digest of every block the chunk
// currently holds, for corruption detection by code that wants to
// compare it against a previous observation. Blocks appended since the
// last Commit are included; the digest does not separate committed
// from uncommitted data. It is opaque to and never
// consulted by the manager itself — purely a convenience for the
// data-storage layer built above this core.
func (h *ChunkHandle) Checksum() [32]byte {
	sum := blake3.New(32, nil)
	for _, off := range h.desc.Blocks() {
		_, _ = sum.Write(h.alloc.Bytes(off))
	}
	var out [32]byte
	copy(out[:], sum.Sum(nil))
	return out
}
