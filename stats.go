package graphgrove

import (
	"fmt"
	"io"
)

// Stats is a snapshot of tree-wide diagnostics, as returned by GetStats().
type Stats struct {
	Size         int
	MinScale     int64
	MaxScale     int64
	UIDCount     int
	FastUIDCount uint64
	LevelsSeen   []int
}

// GetStats returns a snapshot of the tree's size and scale diagnostics.
func (t *Tree) GetStats() Stats {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	return Stats{
		Size:         int(t.n.Load()),
		MinScale:     t.minScale.Load(),
		MaxScale:     t.maxScale.Load(),
		UIDCount:     t.uids.cardinality(),
		FastUIDCount: t.uids.fastCardinality(),
		LevelsSeen:   t.pow.levelsSeen(),
	}
}

// PrintStats writes a human-readable summary of GetStats to w.
func (t *Tree) PrintStats(w io.Writer) {
	s := t.GetStats()
	fmt.Fprintf(w, "size=%d min_scale=%d max_scale=%d uids=%d (fast=%d) levels_seen=%v\n",
		s.Size, s.MinScale, s.MaxScale, s.UIDCount, s.FastUIDCount, s.LevelsSeen)
}

// PrintLevels writes, per level from max_scale down to min_scale, the
// number of nodes found at that level.
func (t *Tree) PrintLevels(w io.Writer) {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	counts := make(map[int]int)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		counts[n.level]++
		for _, c := range n.snapshotChildren() {
			walk(c)
		}
	}
	walk(t.root)

	for l := int(t.maxScale.Load()); l >= int(t.minScale.Load()); l-- {
		fmt.Fprintf(w, "level %d: %d nodes\n", l, counts[l])
	}
}

// PrintDegrees writes the distribution of child counts across all nodes:
// for each observed degree, how many nodes have exactly that many
// children.
func (t *Tree) PrintDegrees(w io.Writer) {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	degrees := make(map[int]int)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		children := n.snapshotChildren()
		degrees[len(children)]++
		for _, c := range children {
			walk(c)
		}
	}
	walk(t.root)

	for d := 0; d <= maxKey(degrees); d++ {
		if count, ok := degrees[d]; ok {
			fmt.Fprintf(w, "degree %d: %d nodes\n", d, count)
		}
	}
}

func maxKey(m map[int]int) int {
	max := 0
	for k := range m {
		if k > max {
			max = k
		}
	}
	return max
}

// DumpTree writes a pre-order, indented text rendering of the tree for
// debugging small instances.
func (t *Tree) DumpTree(w io.Writer) {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()

	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		for i := 0; i < depth; i++ {
			fmt.Fprint(w, "  ")
		}
		fmt.Fprintf(w, "uid=%d level=%d point=%v maxdistUB=%.4f\n", n.uid, n.level, n.point, n.MaxDistUB())
		for _, c := range n.snapshotChildren() {
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
}
