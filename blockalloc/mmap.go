package blockalloc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lsst-ap/chunkmgr/bitset"
)

// NewShared creates an Allocator whose block pool lives in an anonymous
// shared memory mapping instead of ordinary heap memory, so the pool
// can be handed to a multi-process deployment of the manager. The
// bitset and mutex still live in this process's heap — only the block
// pool itself is mapped; a single-process deployment can ignore this
// and just use New, since offset-addressing then collapses to ordinary
// slice indexing.
func NewShared(cfg Config) (*Allocator, error) {
	size := cfg.NumBlocks * cfg.BlockSize
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, errors.Wrapf(err, "block pool mmap failed")
	}

	return &Allocator{
		cfg:  cfg,
		bits: bitset.New(cfg.NumBlocks),
		pool: data,
		unmap: func() {
			_ = unix.Munmap(data)
		},
	}, nil
}
