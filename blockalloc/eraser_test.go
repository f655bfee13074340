package blockalloc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/outofforest/logger"
	"github.com/outofforest/parallel"

	"github.com/lsst-ap/chunkmgr/blockalloc"
)

func TestRunEraserZeroesFreedBlocks(t *testing.T) {
	requireT := require.New(t)

	a := blockalloc.New(blockalloc.Config{NumBlocks: 4, BlockSize: 8, MaxBlocksPerChunk: 4})
	offsets, err := a.Allocate(2)
	requireT.NoError(err)
	copy(a.Bytes(offsets[0]), []byte{1, 2, 3, 4, 5, 6, 7, 8})

	freedCh := make(chan []int64, 1)
	readyCh := make(chan []int64, 1)

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)))
	defer cancel()

	group := parallel.NewGroup(ctx)
	group.Spawn("eraser", parallel.Continue, func(ctx context.Context) error {
		return a.RunEraser(ctx, freedCh, readyCh, 1)
	})

	freedCh <- []int64{offsets[0]}

	select {
	case got := <-readyCh:
		requireT.Equal([]int64{offsets[0]}, got)
	case <-time.After(time.Second):
		t.Fatal("eraser did not return the freed block")
	}

	requireT.Equal(make([]byte, 8), a.Bytes(offsets[0]))

	close(freedCh)
	cancel()
	_ = group.Wait()
}
