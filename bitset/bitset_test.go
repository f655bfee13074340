package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateAllOrNothingScenario6(t *testing.T) {
	requireT := require.New(t)

	b := New(8)
	// pattern 0b10111011: bits 0,1,3,4,5,7 set; bits 2 and 6 free.
	for _, i := range []int{0, 1, 3, 4, 5, 7} {
		b.Set(i)
	}
	requireT.Equal(6, b.Count())

	out := make([]int, 4)
	requireT.False(b.Allocate(4, out))
	requireT.Equal(6, b.Count(), "bitset must be unchanged after a failed allocate")

	out3 := make([]int, 3)
	// only 2 free bits exist (2 and 6) so this must also fail.
	requireT.False(b.Allocate(3, out3))
	requireT.Equal(6, b.Count())
}

func TestAllocateAscendingOrder(t *testing.T) {
	requireT := require.New(t)

	b := New(8)
	for _, i := range []int{0, 1, 3, 4, 5} {
		b.Set(i)
	}
	// free bits: 2, 6, 7

	out := make([]int, 3)
	requireT.True(b.Allocate(3, out))
	requireT.Equal([]int{2, 6, 7}, out)
	requireT.Equal(8, b.Count())
}

func TestAllocateZeroIsNoOp(t *testing.T) {
	requireT := require.New(t)

	b := New(8)
	requireT.True(b.Allocate(0, nil))
	requireT.Equal(0, b.Count())
}

func TestFreeThenReallocate(t *testing.T) {
	requireT := require.New(t)

	b := New(4)
	out := make([]int, 4)
	requireT.True(b.Allocate(4, out))
	requireT.Equal(4, b.Count())

	b.Free([]int{1, 2})
	requireT.Equal(2, b.Count())

	out2 := make([]int, 2)
	requireT.True(b.Allocate(2, out2))
	requireT.Equal([]int{1, 2}, out2)
}

func TestDoubleFreePanicsInDebugBuild(t *testing.T) {
	if !debugChecks {
		t.Skip("double-free assertion only runs with chunkmgr_debug build tag")
	}
	requireT := require.New(t)
	b := New(4)
	requireT.Panics(func() { b.Free([]int{0}) })
}

func TestSoftPopcountMatchesHardware(t *testing.T) {
	requireT := require.New(t)

	cases := []uint64{0, 1, 0xFFFFFFFFFFFFFFFF, 0x8000000000000001, 0x123456789ABCDEF0}
	for _, c := range cases {
		b := New(64)
		b.words[0] = c
		requireT.Equal(softPopcount64(c), b.Count())
	}
}

func TestAllocateAcrossWordBoundary(t *testing.T) {
	requireT := require.New(t)

	b := New(128)
	b.words[0] = ^uint64(0) // first word fully allocated
	out := make([]int, 64)
	requireT.True(b.Allocate(64, out))
	requireT.Equal(64, out[0])
	requireT.Equal(127, out[63])
}
