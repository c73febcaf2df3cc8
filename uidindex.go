package graphgrove

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// uidIndex tracks the set of UIDs registered in the tree, for diagnostics
// (Stats). It does not enforce UID uniqueness: add reports a repeated UID,
// but registerNode ignores that result.
//
// fast is a roaring.Bitmap covering the 32-bit fast path — the common case
// where callers hand out sequential or otherwise small UIDs — used for O(1)
// cardinality diagnostics without walking the tree. seen is the
// authoritative map over the full 64-bit UID domain, and contains reads it;
// fast is a diagnostic accelerator layered on top of it, not a source of
// truth.
type uidIndex struct {
	mu   sync.RWMutex
	seen map[UID]struct{}
	fast *roaring.Bitmap
}

func newUIDIndex() *uidIndex {
	return &uidIndex{
		seen: make(map[UID]struct{}),
		fast: roaring.New(),
	}
}

// add registers uid as present. Returns false if uid was already present.
func (u *uidIndex) add(uid UID) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.seen[uid]; ok {
		return false
	}
	u.seen[uid] = struct{}{}
	if uid <= math32Max {
		u.fast.Add(uint32(uid))
	}
	return true
}

// contains reports whether uid has been registered.
func (u *uidIndex) contains(uid UID) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.seen[uid]
	return ok
}

// cardinality returns the number of distinct UIDs registered.
func (u *uidIndex) cardinality() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.seen)
}

// fastCardinality returns the roaring bitmap's cardinality — equal to
// cardinality() unless a UID above the 32-bit fast path was ever added, in
// which case it undercounts (diagnostic only, see doc comment above).
func (u *uidIndex) fastCardinality() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.fast.GetCardinality()
}

const math32Max = 1<<32 - 1
