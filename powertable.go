package graphgrove

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// powTableBias biases level indices so that powdict can be looked up as a
// plain array index: level L maps to index L+powTableBias. 1024 covers any
// level a tree of practical size can reach without falling back to
// math.Pow (see at()).
const powTableBias = 1024

// powerTable precomputes base^L for a wide symmetric range of integer
// levels so covdist/sepdist lookups are array indexing rather than a
// math.Pow call on the hot path.
type powerTable struct {
	base float64
	pow  []float64

	// materialized tracks which biased level indices have actually been
	// looked up, for the levels_seen diagnostic of GetStats/PrintStats — not
	// used for correctness.
	materialized *bitset.BitSet
}

// newPowerTable builds a table covering levels [-powTableBias, powTableBias].
func newPowerTable(base float64) *powerTable {
	pt := &powerTable{
		base:         base,
		pow:          make([]float64, 2*powTableBias+1),
		materialized: bitset.New(uint(2*powTableBias + 1)),
	}
	for i := range pt.pow {
		level := i - powTableBias
		pt.pow[i] = math.Pow(base, float64(level))
	}
	return pt
}

// at returns base^level, extending beyond the precomputed range via
// math.Pow if a tree grows unusually tall or deep.
func (pt *powerTable) at(level int) float64 {
	idx := level + powTableBias
	if idx < 0 || idx >= len(pt.pow) {
		return math.Pow(pt.base, float64(level))
	}
	pt.materialized.Set(uint(idx))
	return pt.pow[idx]
}

// covdist returns the covering distance for a node at level L: base^(L+1),
// the radius within which every direct child of that node must sit.
func (pt *powerTable) covdist(level int) float64 {
	return pt.at(level + 1)
}

// sepdist returns the separation distance for a node at level L: base^L,
// the minimum required distance between any two of that node's children.
func (pt *powerTable) sepdist(level int) float64 {
	return pt.at(level)
}

// levelsSeen returns the levels (bias removed) materialized so far, for
// diagnostics (GetStats/PrintStats).
func (pt *powerTable) levelsSeen() []int {
	var out []int
	for i, ok := pt.materialized.NextSet(0); ok; i, ok = pt.materialized.NextSet(i + 1) {
		out = append(out, int(i)-powTableBias)
	}
	return out
}
