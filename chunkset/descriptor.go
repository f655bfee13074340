package chunkset

import (
	"github.com/lsst-ap/chunkmgr/blockalloc"
	"github.com/lsst-ap/chunkmgr/fifo"
	"github.com/lsst-ap/chunkmgr/types"
)

// Descriptor is the manager's bookkeeping record for one chunk. An
// occupied slot in the sub-manager's hashed set is always in
// Owned-Loading or Owned-Ready; "Free" is represented by the slot
// being unoccupied.
//
// size/delta/nextBlock are opaque to everything except Commit/
// Rollback/AppendDelta below: size is the count of blocks belonging to
// data already committed, delta is the count of blocks appended since
// the last commit (uncommitted), and nextBlock is the index, within
// the chunk's block list, of the next block that would be appended. The actual catalog record format
// living inside those blocks is a data-storage-layer concern this
// package does not interpret.
type Descriptor struct {
	id                types.ChunkID
	ownerVisit        types.VisitID
	usable            bool
	interestedParties *fifo.FIFO

	blocks []int64

	size      int64
	delta     int64
	nextBlock int64
}

// ID returns the chunk id this descriptor tracks.
func (d *Descriptor) ID() types.ChunkID {
	return d.id
}

// OwnerVisit returns the visit currently owning this descriptor.
func (d *Descriptor) OwnerVisit() types.VisitID {
	return d.ownerVisit
}

// Usable reports whether the chunk's contents were fully read in.
func (d *Descriptor) Usable() bool {
	return d.usable
}

// MarkUsable records that the owning visit has fully read the chunk in
// (Owned-Loading -> Owned-Ready).
func (d *Descriptor) MarkUsable() {
	d.usable = true
}

// Blocks returns the offsets currently allocated to this chunk.
func (d *Descriptor) Blocks() []int64 {
	return d.blocks
}

// InterestedParties returns the visit ids currently queued for
// ownership, head to tail, without dequeuing them.
func (d *Descriptor) InterestedParties() []types.VisitID {
	var ids []types.VisitID
	d.interestedParties.Each(func(id int64) {
		ids = append(ids, types.VisitID(id))
	})
	return ids
}

// AppendDelta grows the chunk's block-backed delta region by n blocks,
// allocating them from alloc and returning their offsets. Committed
// data (size) is left untouched; the new blocks count against delta
// until Commit or Rollback is called.
func (d *Descriptor) AppendDelta(alloc *blockalloc.Allocator, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	offsets, err := alloc.Allocate(n)
	if err != nil {
		return nil, err
	}
	d.blocks = append(d.blocks, offsets...)
	d.delta += int64(n)
	d.nextBlock += int64(n)
	return offsets, nil
}

// Commit folds the uncommitted delta region into size, leaving the
// chunk's committed block count inclusive of every block appended
// since construction. Returns the offsets that just became committed,
// for callers that want to checksum or log them. Never allocates or
// frees blocks, preserving invariant (3) across the call.
func (d *Descriptor) Commit() []int64 {
	if d.delta == 0 {
		return nil
	}
	committed := d.blocks[d.size : d.size+d.delta]
	d.size += d.delta
	d.delta = 0
	return committed
}

// Rollback discards the uncommitted delta region, freeing its blocks
// back to alloc and truncating the descriptor's block list to the
// last committed size.
func (d *Descriptor) Rollback(alloc *blockalloc.Allocator) {
	if d.delta == 0 {
		return
	}
	discarded := d.blocks[d.size : d.size+d.delta]
	alloc.FreeBlocks(discarded)
	d.blocks = d.blocks[:d.size]
	d.nextBlock -= d.delta
	d.delta = 0
}

// Clear drops every block (committed and uncommitted) back to alloc
// and resets all bookkeeping to empty. Used on hand-off-with-reread,
// where the successor starts the chunk over from Owned-Loading.
func (d *Descriptor) Clear(alloc *blockalloc.Allocator) {
	alloc.FreeBlocks(d.blocks)
	d.blocks = nil
	d.size, d.delta, d.nextBlock = 0, 0, 0
	d.usable = false
}
