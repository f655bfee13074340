// Package blockalloc implements the bitset-backed block allocator: a
// contiguous pool of fixed-size blocks, offset-addressed relative to
// the allocator's own base so the same pool is usable from a process
// that maps the shared region at any virtual address.
package blockalloc

import (
	"sync"
	"unsafe"

	"github.com/lsst-ap/chunkmgr/bitset"
	"github.com/lsst-ap/chunkmgr/types"
)

// Config fixes the allocator's resource bounds at construction.
type Config struct {
	NumBlocks         int
	BlockSize         int
	MaxBlocksPerChunk int
}

// Allocator wraps a bitset over NumBlocks bits plus a mutex, and owns
// the backing byte pool the blocks live in. Offsets returned by
// Allocate are relative to the allocator's own base, never absolute
// pointers, so they stay valid across processes mapping the same pool
// at different virtual addresses.
type Allocator struct {
	cfg Config

	mu   sync.Mutex
	bits *bitset.Bitset
	pool []byte

	unmap func()
}

// New creates an Allocator backed by a plain heap-allocated byte slice
// — the default, single-process mode.
func New(cfg Config) *Allocator {
	return &Allocator{
		cfg:  cfg,
		bits: bitset.New(cfg.NumBlocks),
		pool: make([]byte, cfg.NumBlocks*cfg.BlockSize),
	}
}

// NumBlocks returns the pool's total block capacity.
func (a *Allocator) NumBlocks() int {
	return a.cfg.NumBlocks
}

// BlockSize returns the fixed size of one block.
func (a *Allocator) BlockSize() int {
	return a.cfg.BlockSize
}

// Free returns the number of currently unallocated blocks.
func (a *Allocator) Free() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.NumBlocks - a.bits.Count()
}

// Allocate reserves n blocks and returns their offsets (relative to the
// allocator's base, each a multiple of BlockSize), ascending. Allocating
// 0 is a legal no-op. Allocating more than MaxBlocksPerChunk fails with
// OutOfRange; allocating more than are free fails with CapacityExceeded.
func (a *Allocator) Allocate(n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	if n > a.cfg.MaxBlocksPerChunk {
		return nil, types.OutOfRange("block request exceeds MaxBlocksPerChunk")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := make([]int, n)
	if !a.bits.Allocate(n, idx) {
		return nil, outOfMemory()
	}

	offsets := make([]int64, n)
	for i, bi := range idx {
		offsets[i] = int64(bi * a.cfg.BlockSize)
	}
	return offsets, nil
}

// FreeBlocks releases the blocks at the given offsets back to the pool.
// Freeing an offset that was not allocated is a programmer error,
// caught only in debug builds (the bitset's own debug assertion).
func (a *Allocator) FreeBlocks(offsets []int64) {
	if len(offsets) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := make([]int, len(offsets))
	for i, off := range offsets {
		idx[i] = int(off / int64(a.cfg.BlockSize))
	}
	a.bits.Free(idx)
}

// Bytes returns the backing byte slice for the block at the given
// offset, sized to BlockSize.
func (a *Allocator) Bytes(offset int64) []byte {
	return a.pool[offset : offset+int64(a.cfg.BlockSize)]
}

func (a *Allocator) blockPointer(offset int64) unsafe.Pointer {
	return unsafe.Pointer(&a.pool[offset])
}

// Close releases any resources backing the pool (a no-op for the
// heap-allocated mode; see NewShared for the mmap-backed mode).
func (a *Allocator) Close() {
	if a.unmap != nil {
		a.unmap()
	}
}

func outOfMemory() error {
	return types.CapacityExceeded("block pool exhausted")
}
