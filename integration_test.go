package chunkmgr_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lsst-ap/chunkmgr"
	"github.com/lsst-ap/chunkmgr/chunktest"
	"github.com/lsst-ap/chunkmgr/clock"
	"github.com/lsst-ap/chunkmgr/types"
)

// TestConcurrentHandoffChain exercises three goroutines contending for
// one chunk end-to-end: A reads it in, B and C queue behind it in that
// order, A commits and ends, B must observe ownership first and, once
// B also ends, C must observe it next.
func TestConcurrentHandoffChain(t *testing.T) {
	requireT := require.New(t)
	m := chunktest.New(t, chunktest.DefaultConfig())

	requireT.NoError(m.RegisterVisit(1))
	requireT.NoError(m.RegisterVisit(2))
	requireT.NoError(m.RegisterVisit(3))

	toRead, _, err := m.StartVisit(1, []types.ChunkID{42})
	requireT.NoError(err)
	toRead[0].MarkUsable()

	_, toWaitForB, err := m.StartVisit(2, []types.ChunkID{42})
	requireT.NoError(err)
	_, toWaitForC, err := m.StartVisit(3, []types.ChunkID{42})
	requireT.NoError(err)

	order := make(chan types.VisitID, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := m.WaitForOwnership(2, toWaitForB, clock.After(5*time.Second))
		requireT.NoError(err)
		order <- 2
		requireT.True(m.EndVisit(2, false))
	}()
	go func() {
		defer wg.Done()
		_, err := m.WaitForOwnership(3, toWaitForC, clock.After(5*time.Second))
		requireT.NoError(err)
		order <- 3
	}()

	time.Sleep(20 * time.Millisecond)
	requireT.True(m.EndVisit(1, false))

	wg.Wait()
	close(order)

	var seen []types.VisitID
	for v := range order {
		seen = append(seen, v)
	}
	requireT.Equal([]types.VisitID{2, 3}, seen, "B must be served before C")
}

// TestInvariantNoVisitAfterEndVisit checks that once EndVisit(v) returns,
// no descriptor references v as owner or waiter.
func TestInvariantNoVisitAfterEndVisit(t *testing.T) {
	requireT := require.New(t)
	m := chunktest.New(t, chunktest.DefaultConfig())

	requireT.NoError(m.RegisterVisit(1))
	requireT.NoError(m.RegisterVisit(2))

	_, _, err := m.StartVisit(1, []types.ChunkID{7})
	requireT.NoError(err)
	_, _, err = m.StartVisit(2, []types.ChunkID{7})
	requireT.NoError(err)

	requireT.False(m.EndVisit(2, true))

	d := m.GetChunks([]types.ChunkID{7})
	requireT.Len(d, 1)
	requireT.NotEqualValues(2, d[0].GetVisitID())
}

// TestRegisterVisitCapacityIsExact checks the capacity boundary: exactly
// MaxVisitsInFlight registrations succeed, the next fails.
func TestRegisterVisitCapacityIsExact(t *testing.T) {
	requireT := require.New(t)
	cfg := chunkmgr.Config{
		MaxVisitsInFlight:         4,
		MaxChunks:                 16,
		InterestedPartiesCapacity: 4,
		NumBlocks:                 32,
		BlockSize:                 8,
		MaxBlocksPerChunk:         4,
	}
	m := chunktest.New(t, cfg)

	for i := 0; i < 4; i++ {
		requireT.NoError(m.RegisterVisit(types.VisitID(i)))
	}
	requireT.Error(m.RegisterVisit(4))

	requireT.False(m.EndVisit(0, true))
	requireT.NoError(m.RegisterVisit(4), "freeing a slot must allow a new registration")
}
