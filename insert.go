package graphgrove

import (
	"time"

	"github.com/leoliu49/graphgrove/vector"
)

// Insert inserts p under uid, attaching extProp as an opaque byte string.
// It returns true if the point was inserted, false if a duplicate
// (distance-zero) point was detected during descent — in either case a
// nil error. A non-nil error indicates a precondition violation (e.g.
// dimension mismatch).
func (t *Tree) Insert(p vector.Point, uid UID, extProp []byte) (bool, error) {
	start := time.Now()
	ok, level, err := t.insert(p, uid, extProp)
	t.metrics.RecordInsert(time.Since(start), err)
	t.logger.LogInsert(uid, level, ok, err)
	return ok, err
}

func (t *Tree) insert(p vector.Point, uid UID, extProp []byte) (inserted bool, level int, err error) {
	if len(p) != t.dim {
		return false, 0, &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
	}

	// Case 1: empty tree — seed the root under the global write lock.
	t.globalLock.Lock()
	if t.closed {
		t.globalLock.Unlock()
		return false, 0, ErrClosed
	}
	if t.root == nil {
		root := &Node{
			point: vector.Clone(p),
			level: 0,
			uid:   uid,
			id:    t.nextID.Add(1),
		}
		root.extProp = extProp
		t.root = root
		t.minScale.Store(0)
		t.maxScale.Store(0)
		t.n.Store(1)
		t.globalLock.Unlock()
		t.registerNode(root)
		return true, 0, nil
	}
	t.globalLock.Unlock()

	// Case 2: root promotion. Loop under a read lock, re-verifying under a
	// write lock each time the point still lies outside the root's
	// covering radius.
	t.globalLock.RLock()
	root := t.root
	d0 := root.Dist(p)
	t.globalLock.RUnlock()

	for d0 > t.covdist(root.level) {
		t.globalLock.Lock()
		root = t.root
		d0 = root.Dist(p)
		if d0 > t.covdist(root.level) {
			newRoot := &Node{
				point: vector.Clone(root.point),
				level: root.level + 1,
				uid:   root.uid,
				id:    root.id,
			}
			newRoot.children = []*Node{root}
			t.root = newRoot
			t.bumpMaxScale(int64(newRoot.level))
			t.logger.LogRootPromotion(root.level, newRoot.level)
			root = newRoot
			d0 = root.Dist(p)
		}
		t.globalLock.Unlock()
	}

	t.globalLock.RLock()
	root = t.root
	defer t.globalLock.RUnlock()

	inserted, level, err = t.insertAt(root, p, uid, extProp, root.Dist(p))
	if inserted {
		t.n.Add(1)
	}
	return inserted, level, err
}

// insertAt descends from current looking for a candidate child to recurse
// into, or attaches p as a new child of current. curr_dist is the already
// known distance from current to p.
func (t *Tree) insertAt(current *Node, p vector.Point, uid UID, extProp []byte, currDist float64) (bool, int, error) {
	if currDist == 0 {
		return false, current.level, nil // duplicate point
	}

	current.mu.RLock()
	level := current.level
	candIdx := -1
	var candDist float64
	for i, c := range current.children {
		d := c.Dist(p)
		if d == 0 {
			current.mu.RUnlock()
			return false, level, nil
		}
		if d <= t.covdist(level-1) {
			candIdx = i
			candDist = d
			break
		}
	}
	var candidate *Node
	if candIdx >= 0 {
		candidate = current.children[candIdx]
	}
	current.mu.RUnlock()

	if candidate != nil {
		return t.insertAt(candidate, p, uid, extProp, candDist)
	}

	// No candidate: upgrade to a write lock and re-verify, since another
	// writer may have added a qualifying child concurrently.
	current.mu.Lock()
	for _, c := range current.children {
		d := c.Dist(p)
		if d == 0 {
			current.mu.Unlock()
			return false, level, nil
		}
		if d <= t.covdist(level-1) {
			c2 := c
			current.mu.Unlock()
			return t.insertAt(c2, p, uid, extProp, d)
		}
	}

	childLevel := level - 1
	if t.hasTruncateLevel {
		t.globalLock.RLock()
		rootLevel := t.root.level
		t.globalLock.RUnlock()
		if rootLevel-childLevel > t.truncateLevel {
			// Truncation floor reached: the reference implementation
			// tolerates this overshoot rather than refusing the insert
			// (§9 Open Question) — attach at current's level anyway
			// instead of allocating a new, deeper level.
			childLevel = level
		}
	}

	id := t.nextID.Add(1)
	child := current.addChild(p, uid, id, extProp)
	child.level = childLevel
	t.bumpMinScale(int64(childLevel))
	current.mu.Unlock()

	t.registerNode(child)

	return true, childLevel, nil
}
