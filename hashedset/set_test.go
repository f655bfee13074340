package hashedset_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst-ap/chunkmgr/hashedset"
)

func TestInsertFindErase(t *testing.T) {
	requireT := require.New(t)

	s := hashedset.New[int](8)
	requireT.Nil(s.Find(1))

	v := s.Insert(1)
	requireT.NotNil(v)
	*v = 42
	requireT.Equal(42, *s.Find(1))

	requireT.Nil(s.Insert(1), "inserting an existing id must return nil")

	requireT.True(s.Erase(1))
	requireT.Nil(s.Find(1))
	requireT.False(s.Erase(1))
}

func TestFindOrInsert(t *testing.T) {
	requireT := require.New(t)

	s := hashedset.New[int](4)
	v, inserted := s.FindOrInsert(5)
	requireT.True(inserted)
	requireT.NotNil(v)
	*v = 7

	v2, inserted2 := s.FindOrInsert(5)
	requireT.False(inserted2)
	requireT.Equal(7, *v2)
}

func TestCapacityExhaustion(t *testing.T) {
	requireT := require.New(t)

	s := hashedset.New[int](2)
	requireT.NotNil(s.Insert(1))
	requireT.NotNil(s.Insert(2))

	v, inserted := s.FindOrInsert(3)
	requireT.True(inserted)
	requireT.Nil(v, "insertion needed but set is full")
}

func TestFreeListLengthInvariant(t *testing.T) {
	requireT := require.New(t)

	s := hashedset.New[int](8)
	requireT.Equal(8, s.FreeListLen())

	s.Insert(1)
	s.Insert(2)
	s.Insert(3)
	requireT.Equal(5, s.FreeListLen())
	requireT.Equal(8-s.Len(), s.FreeListLen())

	s.Erase(2)
	requireT.Equal(8-s.Len(), s.FreeListLen())
}

func TestEraseFromMiddleOfChainPreservesOthers(t *testing.T) {
	requireT := require.New(t)

	// Force collisions deliberately: small capacity makes the 2N
	// bucket table likely to chain several ids together.
	s := hashedset.New[int](4)
	ids := []int64{10, 20, 30, 40}
	for i, id := range ids {
		v := s.Insert(id)
		requireT.NotNil(v)
		*v = i
	}

	requireT.True(s.Erase(20))
	for i, id := range ids {
		if id == 20 {
			requireT.Nil(s.Find(id))
			continue
		}
		requireT.Equal(i, *s.Find(id))
	}
}

func TestEachVisitsAllOccupiedEntries(t *testing.T) {
	requireT := require.New(t)

	s := hashedset.New[int](8)
	want := map[int64]int{1: 10, 2: 20, 3: 30}
	for id, val := range want {
		v := s.Insert(id)
		*v = val
	}

	got := map[int64]int{}
	s.Each(func(id int64, value *int) {
		got[id] = *value
	})
	requireT.Equal(want, got)
}

func TestNewPanicsOnNonPowerOfTwoCapacity(t *testing.T) {
	requireT := require.New(t)
	requireT.Panics(func() { hashedset.New[int](3) })
}
