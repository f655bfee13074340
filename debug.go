package chunkmgr

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/lsst-ap/chunkmgr/chunkset"
	"github.com/lsst-ap/chunkmgr/types"
)

// DebugString returns a human-readable dump of every in-flight visit
// and every tracked chunk, merging consecutive chunks that share the
// same owner/usability/interest for compact output — the Go
// equivalent of the original SubManager::print / mergePrint, with the
// source's tautological self-comparison bug (comparing a descriptor to
// itself instead of to its neighbor) fixed: two runs now merge only
// when they actually match each other.
func (m *ChunkManager) DebugString() string {
	m.cond.Lock()
	defer m.cond.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "visits in flight (%d/%d): %v\n", m.tracker.Len(), m.tracker.Cap(), m.tracker.IDs())
	b.WriteString(m.debugChunksLocked())
	return b.String()
}

// DebugVisit returns a one-line description of a single visit's
// tracked status, or "unknown" if visitID is not registered.
func (m *ChunkManager) DebugVisit(visitID types.VisitID) string {
	m.cond.Lock()
	defer m.cond.Unlock()

	if !m.tracker.Exists(visitID) {
		return fmt.Sprintf("visit %d: unknown", visitID)
	}
	status := "in-flight"
	if m.tracker.IsFailed(visitID) {
		status = "failed"
	}
	return fmt.Sprintf("visit %d: %s", visitID, status)
}

// DebugChunk returns a one-line description of a single chunk's
// descriptor, or "free" if no descriptor is tracked for chunkID.
func (m *ChunkManager) DebugChunk(chunkID types.ChunkID) string {
	m.cond.Lock()
	defer m.cond.Unlock()

	d := m.chunks.Find(chunkID)
	if d == nil {
		return fmt.Sprintf("chunk %d: free", chunkID)
	}
	return describeChunk(d)
}

func describeChunk(d *chunkset.Descriptor) string {
	return fmt.Sprintf("chunk %d: owner=%d usable=%t blocks=%d waiting=%v",
		d.ID(), d.OwnerVisit(), d.Usable(), len(d.Blocks()), d.InterestedParties())
}

// chunkRun is one merged run of consecutive same-shaped descriptors, in
// the id order Each happens to yield them.
type chunkRun struct {
	first, last types.ChunkID
	owner       types.VisitID
	usable      bool
	hasWaiters  bool
}

func (r chunkRun) sameShapeAs(d *chunkset.Descriptor) bool {
	return r.owner == d.OwnerVisit() &&
		r.usable == d.Usable() &&
		r.hasWaiters == (len(d.InterestedParties()) > 0)
}

func (m *ChunkManager) debugChunksLocked() string {
	var runs []chunkRun
	m.chunks.Each(func(id types.ChunkID, d *chunkset.Descriptor) {
		if len(runs) > 0 && runs[len(runs)-1].sameShapeAs(d) && runs[len(runs)-1].last+1 == id {
			runs[len(runs)-1].last = id
			return
		}
		runs = append(runs, chunkRun{
			first:      id,
			last:       id,
			owner:      d.OwnerVisit(),
			usable:     d.Usable(),
			hasWaiters: len(d.InterestedParties()) > 0,
		})
	})

	lines := lo.Map(runs, func(r chunkRun, _ int) string {
		if r.first == r.last {
			return fmt.Sprintf("chunk %d: owner=%d usable=%t waiters=%t", r.first, r.owner, r.usable, r.hasWaiters)
		}
		return fmt.Sprintf("chunks %d-%d: owner=%d usable=%t waiters=%t", r.first, r.last, r.owner, r.usable, r.hasWaiters)
	})
	return strings.Join(lines, "\n")
}
