package graphgrove

import (
	"sync"
	"sync/atomic"

	"github.com/leoliu49/graphgrove/vector"
)

// Tree is a scapegoat-style cover tree over points in a D-dimensional
// real vector space under the Euclidean metric.
//
// The zero value is not usable; construct with NewEmpty, NewSingle, or
// NewFromMatrix.
type Tree struct {
	dim  int
	base float64
	pow  *powerTable

	globalLock sync.RWMutex // guards root identity, min/max scale, closed
	root       *Node

	truncateLevel    int
	hasTruncateLevel bool

	minScale atomic.Int64
	maxScale atomic.Int64
	n        atomic.Int64
	nextID   atomic.Uint64

	uids     *uidIndex
	byUIDMu  sync.RWMutex
	byUID    map[UID]*Node // guarded by byUIDMu, not globalLock — see registerNode

	closed bool

	opts    options
	logger  *Logger
	metrics MetricsCollector
}

func newTree(dim int, opts options) *Tree {
	t := &Tree{
		dim:              dim,
		base:             opts.base,
		pow:              newPowerTable(opts.base),
		truncateLevel:    opts.truncateLevel,
		hasTruncateLevel: opts.hasTruncateLevel,
		uids:             newUIDIndex(),
		byUID:            make(map[UID]*Node),
		opts:             opts,
		logger:           opts.logger,
		metrics:          opts.metricsCollector,
	}
	t.minScale.Store(0)
	t.maxScale.Store(0)
	return t
}

// NewEmpty constructs a tree with no points. The first Insert seeds the
// root.
func NewEmpty(dim int, optFns ...Option) (*Tree, error) {
	if dim <= 0 {
		return nil, &ErrDimensionMismatch{Expected: 1, Actual: dim}
	}
	opts := applyOptions(optFns)
	if opts.base <= 1 {
		opts.base = 1.3
	}
	return newTree(dim, opts), nil
}

// NewSingle constructs a tree containing a single point as the root, at
// level 0.
func NewSingle(p vector.Point, uid UID, optFns ...Option) (*Tree, error) {
	t, err := NewEmpty(len(p), optFns...)
	if err != nil {
		return nil, err
	}
	if _, err := t.Insert(p, uid, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// Dimension returns the fixed dimension of points in this tree.
func (t *Tree) Dimension() int { return t.dim }

// Base returns the cover tree's base.
func (t *Tree) Base() float64 { return t.base }

// GetTreeSize returns the number of points currently in the tree.
func (t *Tree) GetTreeSize() int { return int(t.n.Load()) }

// GetRoot returns the current root Node, or nil if the tree is empty.
func (t *Tree) GetRoot() *Node {
	t.globalLock.RLock()
	defer t.globalLock.RUnlock()
	return t.root
}

// Lookup returns the node registered under uid, and whether it was found.
// This is the ID→node side-table the original GraphGrove implementation
// keeps for O(1) resolution without a tree walk (see SPEC_FULL.md).
func (t *Tree) Lookup(uid UID) (*Node, bool) {
	t.byUIDMu.RLock()
	defer t.byUIDMu.RUnlock()
	n, ok := t.byUID[uid]
	return n, ok
}

// Remove is a documented no-op: deletion is out of scope for this
// revision (§9). It always returns false.
func (t *Tree) Remove(UID) bool {
	return false
}

func (t *Tree) covdist(level int) float64 { return t.pow.covdist(level) }
func (t *Tree) sepdist(level int) float64 { return t.pow.sepdist(level) }

func (t *Tree) bumpMinScale(level int64) {
	for {
		cur := t.minScale.Load()
		if level >= cur {
			return
		}
		if t.minScale.CompareAndSwap(cur, level) {
			return
		}
	}
}

func (t *Tree) bumpMaxScale(level int64) {
	for {
		cur := t.maxScale.Load()
		if level <= cur {
			return
		}
		if t.maxScale.CompareAndSwap(cur, level) {
			return
		}
	}
}

// registerNode adds a freshly created node to the UID index and the
// UID→node side-table. This does not take the global lock: byUIDMu and the
// uidIndex's own lock are independent of global_lock, so concurrent
// registrations from independent insertions never serialize on root
// identity or scale-extremum mutation.
func (t *Tree) registerNode(n *Node) {
	t.uids.add(n.uid)
	t.byUIDMu.Lock()
	t.byUID[n.uid] = n
	t.byUIDMu.Unlock()
}
