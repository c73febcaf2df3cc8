package graphgrove

import (
	"time"
)

// CalcMaxDist recomputes every node's maxdistUB — the cached upper bound
// on the distance from that node to any of its descendants — by a
// post-order sweep. It must be rerun after bulk insertion before Furthest,
// KNN or Range rely on maxdistUB-based pruning, since Insert does not
// maintain it incrementally.
func (t *Tree) CalcMaxDist() error {
	start := time.Now()
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	visited := 0
	if t.root != nil {
		visited = calcMaxDist(t.root)
	}
	t.logger.LogMaintenance("calc_maxdist", visited, nil)
	t.metrics.RecordQuery("calc_maxdist", time.Since(start), visited, nil)
	return nil
}

func calcMaxDist(n *Node) int {
	n.mu.Lock()
	children := append([]*Node(nil), n.children...)
	n.mu.Unlock()

	visited := 1
	var ub float64
	for _, c := range children {
		visited += calcMaxDist(c)
		d := n.DistNode(c) + c.MaxDistUB()
		if d > ub {
			ub = d
		}
	}

	n.mu.Lock()
	n.maxdistUB = ub
	n.mu.Unlock()

	return visited
}

// CheckCovering verifies the covering and separation invariants hold at
// every node: every child lies within base^(level+1) of its parent, and
// every pair of siblings is farther apart than base^level. It is a
// maintenance/debugging tool, not exercised on the insert hot path.
func (t *Tree) CheckCovering() bool {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil {
		return true
	}
	return checkCovering(t.root, t)
}

func checkCovering(n *Node, t *Tree) bool {
	children := n.snapshotChildren()
	cov := t.covdist(n.level)
	sep := t.sepdist(n.level)

	for i, c := range children {
		if n.DistNode(c) > cov {
			return false
		}
		for j := i + 1; j < len(children); j++ {
			if c.DistNode(children[j]) <= sep {
				return false
			}
		}
		if !checkCovering(c, t) {
			return false
		}
	}
	return true
}

// GetBestInitialPoints returns up to k UIDs drawn by breadth-first scan
// from the root downward, for seeding an external coarse index (e.g. the
// entry points of a graph-based index built on top of this tree).
func (t *Tree) GetBestInitialPoints(k int) []UID {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil || k <= 0 {
		return nil
	}

	out := make([]UID, 0, k)
	queue := []*Node{t.root}
	for len(queue) > 0 && len(out) < k {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n.uid)
		queue = append(queue, n.snapshotChildren()...)
	}
	return out
}
