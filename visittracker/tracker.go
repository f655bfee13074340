// Package visittracker specializes hashedset.Set to hold per-visit
// in-flight/failed status (component G).
package visittracker

import (
	"github.com/samber/lo"

	"github.com/lsst-ap/chunkmgr/hashedset"
	"github.com/lsst-ap/chunkmgr/types"
)

// visit holds the mutable state kept per registered visit.
type visit struct {
	failed bool
}

// Tracker is a fixed-capacity set of in-flight visits.
type Tracker struct {
	set *hashedset.Set[visit]
}

// New creates a Tracker able to hold up to maxVisitsInFlight visits,
// which must be a power of two.
func New(maxVisitsInFlight int) *Tracker {
	return &Tracker{set: hashedset.New[visit](maxVisitsInFlight)}
}

// Register adds id as a new, non-failed, in-flight visit. Returns false
// if id is already registered or the tracker is full, without saying
// which; the façade checks Exists and Len itself before calling, to
// return AlreadyInFlight or CapacityExceeded.
func (t *Tracker) Register(id types.VisitID) bool {
	v, inserted := t.set.FindOrInsert(int64(id))
	if !inserted {
		return false
	}
	if v == nil {
		return false
	}
	*v = visit{}
	return true
}

// Exists reports whether id is currently registered, regardless of
// failed status.
func (t *Tracker) Exists(id types.VisitID) bool {
	return t.set.Find(int64(id)) != nil
}

// IsValid reports whether id is registered and not failed.
func (t *Tracker) IsValid(id types.VisitID) bool {
	v := t.set.Find(int64(id))
	return v != nil && !v.failed
}

// MarkFailed marks id as failed. A no-op if id is unknown.
func (t *Tracker) MarkFailed(id types.VisitID) {
	if v := t.set.Find(int64(id)); v != nil {
		v.failed = true
	}
}

// IsFailed reports whether id is registered and marked failed.
func (t *Tracker) IsFailed(id types.VisitID) bool {
	v := t.set.Find(int64(id))
	return v != nil && v.failed
}

// Erase removes id from the tracker. Reports whether it was present.
func (t *Tracker) Erase(id types.VisitID) bool {
	return t.set.Erase(int64(id))
}

// Len returns the number of currently registered visits.
func (t *Tracker) Len() int {
	return t.set.Len()
}

// Cap returns MAX_VISITS_IN_FLIGHT.
func (t *Tracker) Cap() int {
	return t.set.Cap()
}

// IDs returns every currently registered visit id, sorted ascending,
// for the debug-string supplement.
func (t *Tracker) IDs() []types.VisitID {
	var ids []int64
	t.set.Each(func(id int64, _ *visit) {
		ids = append(ids, id)
	})
	return lo.Map(sortedInt64(ids), func(id int64, _ int) types.VisitID {
		return types.VisitID(id)
	})
}

func sortedInt64(ids []int64) []int64 {
	// insertion sort: visit counts are small (bounded by
	// MAX_VISITS_IN_FLIGHT), so this is cheaper than pulling in sort
	// for a debug-only helper.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
