package graphgrove

import (
	"sync"

	"github.com/leoliu49/graphgrove/vector"
)

// UID is the externally supplied, immutable-after-insertion identifier of
// an inserted point.
type UID = uint64

// Node is a single vertex of the cover tree.
//
// point, level and uid are immutable after creation. children, id,
// maxdistUB and extProp are mutable and guarded by mu.
type Node struct {
	point vector.Point
	level int
	uid   UID

	mu        sync.RWMutex
	id        uint64
	children  []*Node
	maxdistUB float64
	extProp   []byte
}

// Point returns the point stored at this node.
func (n *Node) Point() vector.Point { return n.point }

// Level returns the node's level.
func (n *Node) Level() int { return n.level }

// UID returns the node's externally supplied identifier.
func (n *Node) UID() UID { return n.uid }

// ExtProp returns the caller-supplied opaque byte string attached to this
// node, if any.
func (n *Node) ExtProp() []byte {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.extProp
}

// MaxDistUB returns the cached upper bound on the distance from this node
// to any of its descendants. It is only tight after CalcMaxDist has run.
func (n *Node) MaxDistUB() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.maxdistUB
}

// Dist returns the Euclidean distance from this node's point to p.
func (n *Node) Dist(p vector.Point) float64 {
	return vector.Dist(n.point, p)
}

// DistNode returns the Euclidean distance from this node's point to
// other's point.
func (n *Node) DistNode(other *Node) float64 {
	return vector.Dist(n.point, other.point)
}

// addChild creates a new child of n at level n.level-1 and appends it to
// n.children. Callers must hold n.mu for writing.
func (n *Node) addChild(p vector.Point, uid UID, id uint64, extProp []byte) *Node {
	child := &Node{
		point:     vector.Clone(p),
		level:     n.level - 1,
		uid:       uid,
		id:        id,
		maxdistUB: 0,
		extProp:   extProp,
	}
	n.children = append(n.children, child)
	return child
}

// erase removes the child at position by swapping it with the last child.
// Not exercised by the insert-only path, but required by the node
// contract (§4.B).
func (n *Node) erase(position int) {
	last := len(n.children) - 1
	if position < 0 || position > last {
		return
	}
	n.children[position] = n.children[last]
	n.children[last] = nil
	n.children = n.children[:last]
}

// snapshotChildren returns a shallow copy of the children slice under a
// read lock, safe for a caller to range over after releasing n.mu.
func (n *Node) snapshotChildren() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}
