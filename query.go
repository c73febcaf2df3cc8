package graphgrove

import (
	"container/heap"
	"time"

	"github.com/leoliu49/graphgrove/queue"
	"github.com/leoliu49/graphgrove/vector"
)

// TraceEntry records one step of a Nearest descent: the level being
// examined and the index, among the candidates considered at that level,
// of the child that was followed (or -1 if the search stopped at the
// current node).
type TraceEntry struct {
	Level      int
	ChildIndex int
}

// Nearest returns the UID of the point closest to p, by branch-and-bound
// descent pruning any subtree whose maxdistUB upper bound cannot improve
// on the best distance found so far.
func (t *Tree) Nearest(p vector.Point) (UID, float64, error) {
	uid, dist, _, err := t.nearest(p)
	return uid, dist, err
}

// NearestTrace behaves like Nearest but also returns the sequence of
// descent decisions made, for diagnostics and the worked examples in §8.
func (t *Tree) NearestTrace(p vector.Point) (UID, float64, []TraceEntry, error) {
	return t.nearest(p)
}

func (t *Tree) nearest(p vector.Point) (uid UID, dist float64, trace []TraceEntry, err error) {
	start := time.Now()
	defer func() {
		t.metrics.RecordQuery("nearest", time.Since(start), 1, err)
		t.logger.LogQuery("nearest", 1, 1, err)
	}()

	if len(p) != t.dim {
		return 0, 0, nil, &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
	}

	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil {
		return 0, 0, nil, ErrEmptyTree
	}

	best := t.root
	bestDist := best.Dist(p)

	cur := t.root
	for {
		children := cur.snapshotChildren()
		bestChildIdx := -1
		var bestChild *Node
		bestChildDist := bestDist
		for i, c := range children {
			d := c.Dist(p)
			if d < bestDist {
				bestDist = d
				best = c
			}
			if d-c.MaxDistUB() < bestChildDist {
				bestChildDist = d
				bestChild = c
				bestChildIdx = i
			}
		}
		if bestChild == nil {
			trace = append(trace, TraceEntry{Level: cur.level, ChildIndex: -1})
			break
		}
		trace = append(trace, TraceEntry{Level: cur.level, ChildIndex: bestChildIdx})
		cur = bestChild
	}

	return best.uid, bestDist, trace, nil
}

// Furthest returns the UID of the point farthest from p. Unlike Nearest,
// pruning uses the d + maxdistUB upper bound to discard subtrees that cannot
// possibly beat the largest distance found so far, so the search
// still needs a full frontier rather than a single greedy descent.
func (t *Tree) Furthest(p vector.Point) (UID, float64, error) {
	var err error
	start := time.Now()
	defer func() {
		t.metrics.RecordQuery("furthest", time.Since(start), 1, err)
		t.logger.LogQuery("furthest", 1, 1, err)
	}()

	if len(p) != t.dim {
		return 0, 0, &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
	}

	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil {
		err = ErrEmptyTree
		return 0, 0, err
	}

	bestUID := t.root.uid
	bestDist := t.root.Dist(p)

	pq := &queue.PriorityQueue{Order: true} // max-heap on d + maxdistUB upper bound
	heap.Init(pq)
	heap.Push(pq, &queue.Item{Value: t.root, Priority: t.root.Dist(p) + t.root.MaxDistUB()})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queue.Item)
		if item.Priority < bestDist {
			break // no remaining frontier node can beat the current best
		}
		n := item.Value.(*Node)
		d := n.Dist(p)
		if d > bestDist {
			bestDist = d
			bestUID = n.uid
		}
		for _, c := range n.snapshotChildren() {
			cd := c.Dist(p)
			heap.Push(pq, &queue.Item{Value: c, Priority: cd + c.MaxDistUB()})
		}
	}

	return bestUID, bestDist, nil
}

// KNN returns the k nearest neighbours to p, nearest first, using a
// branch-and-bound frontier ordered by lower-bound distance and a
// bounded max-heap of the best k candidates found so far.
func (t *Tree) KNN(p vector.Point, k int) ([]UID, []float64, error) {
	return t.knn(p, k, 0)
}

// KNNBeam behaves like KNN but, before each expansion, trims the frontier
// to the beamSize entries with the lowest lower bounds, trading result
// quality for a bounded memory/time budget —
// the beam-search relaxation of the exact branch-and-bound search.
func (t *Tree) KNNBeam(p vector.Point, k, beamSize int) ([]UID, []float64, error) {
	return t.knn(p, k, beamSize)
}

func (t *Tree) knn(p vector.Point, k, beamSize int) (uids []UID, dists []float64, err error) {
	op := "knn"
	if beamSize > 0 {
		op = "knn_beam"
	}
	start := time.Now()
	defer func() {
		t.metrics.RecordQuery(op, time.Since(start), len(uids), err)
		t.logger.LogQuery(op, k, len(uids), err)
	}()

	if len(p) != t.dim {
		err = &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
		return nil, nil, err
	}
	if k <= 0 {
		err = ErrInvalidK
		return nil, nil, err
	}

	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil {
		err = ErrEmptyTree
		return nil, nil, err
	}

	results := &queue.PriorityQueue{Order: true} // max-heap: worst of the current top-k sits on top
	heap.Init(results)
	seen := make(map[UID]bool) // root promotion duplicates a UID's point at higher levels; dedupe results by it

	frontier := &queue.PriorityQueue{Order: false} // min-heap on lower-bound distance
	heap.Init(frontier)
	heap.Push(frontier, &queue.Item{Value: t.root, Priority: t.root.Dist(p) - t.root.MaxDistUB()})

	worstKept := func() float64 {
		if results.Len() < k {
			return -1 // not yet full: nothing is prunable
		}
		return results.Top().Priority
	}

	for frontier.Len() > 0 {
		if beamSize > 0 && frontier.Len() > beamSize {
			// Beam search: drop the worst-ranked frontier entries beyond
			// the beam width instead of exploring them.
			kept := make([]*queue.Item, 0, beamSize)
			for i := 0; i < beamSize && frontier.Len() > 0; i++ {
				kept = append(kept, heap.Pop(frontier).(*queue.Item))
			}
			frontier.Items = nil
			heap.Init(frontier)
			for _, it := range kept {
				heap.Push(frontier, it)
			}
		}

		item := heap.Pop(frontier).(*queue.Item)
		lb := item.Priority
		if w := worstKept(); w >= 0 && lb > w {
			continue
		}
		n := item.Value.(*Node)
		d := n.Dist(p)

		if !seen[n.uid] {
			if results.Len() < k {
				heap.Push(results, &queue.Item{Value: n, Priority: d})
				seen[n.uid] = true
			} else if d < results.Top().Priority {
				evicted := heap.Pop(results).(*queue.Item)
				delete(seen, evicted.Value.(*Node).uid)
				heap.Push(results, &queue.Item{Value: n, Priority: d})
				seen[n.uid] = true
			}
		}

		w := worstKept()
		for _, c := range n.snapshotChildren() {
			cd := c.Dist(p)
			if w >= 0 && cd-c.MaxDistUB() > w {
				continue
			}
			heap.Push(frontier, &queue.Item{Value: c, Priority: cd - c.MaxDistUB()})
		}
	}

	out := make([]*queue.Item, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(*queue.Item)
	}

	uids = make([]UID, len(out))
	dists = make([]float64, len(out))
	for i, it := range out {
		uids[i] = it.Value.(*Node).uid
		dists[i] = it.Priority
	}
	return uids, dists, nil
}

// Range returns every UID within radius r of p, in no particular order.
// Per §8's invariant, Range(p, r) for r at least the k-th KNN distance is
// a superset of KNN(p, k).
func (t *Tree) Range(p vector.Point, r float64) (uids []UID, dists []float64, err error) {
	start := time.Now()
	defer func() {
		t.metrics.RecordQuery("range", time.Since(start), len(uids), err)
		t.logger.LogQuery("range", -1, len(uids), err)
	}()

	if len(p) != t.dim {
		err = &ErrDimensionMismatch{Expected: t.dim, Actual: len(p)}
		return nil, nil, err
	}

	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	if t.root == nil {
		return nil, nil, nil
	}

	seen := make(map[UID]bool) // root promotion duplicates a UID's point at higher levels
	var visit func(n *Node)
	visit = func(n *Node) {
		d := n.Dist(p)
		if d <= r && !seen[n.uid] {
			seen[n.uid] = true
			uids = append(uids, n.uid)
			dists = append(dists, d)
		}
		if d-n.MaxDistUB() > r {
			return
		}
		for _, c := range n.snapshotChildren() {
			visit(c)
		}
	}
	visit(t.root)

	return uids, dists, nil
}
