package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lsst-ap/chunkmgr/clock"
)

func TestDeadlineExpiry(t *testing.T) {
	requireT := require.New(t)

	d := clock.After(10 * time.Millisecond)
	requireT.False(d.Expired())
	time.Sleep(20 * time.Millisecond)
	requireT.True(d.Expired())
}

func TestDeadlineNever(t *testing.T) {
	requireT := require.New(t)

	d := clock.Never()
	requireT.False(d.Expired())
	requireT.True(d.Forever())
	requireT.Greater(d.Remaining(), time.Hour)
}

func TestDeadlineRemaining(t *testing.T) {
	requireT := require.New(t)

	d := clock.After(50 * time.Millisecond)
	requireT.Greater(d.Remaining(), time.Duration(0))
	requireT.LessOrEqual(d.Remaining(), 50*time.Millisecond)
}
