// Package chunktest provides a small test harness for spinning up a
// ChunkManager and its background block-pool eraser under a supervised
// goroutine group, mirroring the teacher's alloc.RunInTest pattern.
package chunktest

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"

	"github.com/lsst-ap/chunkmgr"
	"github.com/lsst-ap/chunkmgr/blockalloc"
)

// DefaultConfig is a small, fast configuration suitable for unit tests.
func DefaultConfig() chunkmgr.Config {
	return chunkmgr.Config{
		MaxVisitsInFlight:         16,
		MaxChunks:                 64,
		InterestedPartiesCapacity: 8,
		NumBlocks:                 256,
		BlockSize:                 64,
		MaxBlocksPerChunk:         16,
	}
}

// New creates a ChunkManager with its eraser workers running under a
// parallel.Group wired to t.Cleanup, and returns it ready for use.
func New(t *testing.T, cfg chunkmgr.Config) *chunkmgr.ChunkManager {
	alloc := blockalloc.New(blockalloc.Config{
		NumBlocks:         cfg.NumBlocks,
		BlockSize:         cfg.BlockSize,
		MaxBlocksPerChunk: cfg.MaxBlocksPerChunk,
	})
	manager := chunkmgr.NewWithAllocator(cfg, alloc)

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))

	freedCh := make(chan []int64, 1)
	readyCh := make(chan []int64, 1)

	group := parallel.NewGroup(ctx)
	group.Spawn("eraser", parallel.Continue, func(ctx context.Context) error {
		return alloc.RunEraser(ctx, freedCh, readyCh, 2)
	})

	t.Cleanup(func() {
		close(freedCh)
		cancel()
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			t.Fatal(err)
		}
	})

	return manager
}
