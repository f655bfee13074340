package blockalloc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/outofforest/parallel"
	"github.com/outofforest/photon"
)

// RunEraser runs numOfWorkers goroutines that zero freed blocks
// arriving on freedCh before they are returned to a readyCh pool,
// mirroring the teacher's node-eraser worker pool. This is a hygiene
// supplement beyond what the manager's own invariants require (the
// manager only tracks which bits are set, never block contents). Only
// blocks sent on freedCh are zeroed: FreeBlocks returns blocks to the
// bitset directly and does not send them here, so a block reallocated
// after FreeBlocks still holds its previous bytes.
func (a *Allocator) RunEraser(
	ctx context.Context,
	freedCh <-chan []int64,
	readyCh chan<- []int64,
	numOfWorkers int,
) error {
	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for i := range numOfWorkers {
			spawn(fmt.Sprintf("eraser-%02d", i), parallel.Fail, func(ctx context.Context) error {
				for offsets := range freedCh {
					for _, off := range offsets {
						clear(photon.SliceFromPointer[byte](a.blockPointer(off), a.cfg.BlockSize))
					}
					select {
					case readyCh <- offsets:
					case <-ctx.Done():
						return errors.WithStack(ctx.Err())
					}
				}
				return errors.WithStack(ctx.Err())
			})
		}
		return nil
	})
}
