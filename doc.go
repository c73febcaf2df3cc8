// Package graphgrove provides an in-memory spatial index for points in a
// real-valued vector space under the Euclidean metric.
//
// The index is a scapegoat-style cover tree: a hierarchical, level-indexed
// partitioning whose geometric invariants (covering and separation) enable
// branch-and-bound pruning for nearest-neighbour style queries. It supports
// dynamic insertion and concurrent reader/writer access from many
// goroutines.
//
// # Quick start
//
//	t, err := graphgrove.NewEmpty(dim)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	t.Insert(vector.Point{0, 0}, 1, nil)
//	t.Insert(vector.Point{3, 0}, 2, nil)
//
//	uid, dist, err := t.Nearest(vector.Point{1, 0})
//
// # Queries
//
// All queries take a global read lock for their duration, so they never
// block each other; an insertion waits for running queries when it takes
// the global write lock (see Concurrency):
//
//	t.Nearest(p)               // single nearest neighbour
//	t.KNN(p, k)                // k nearest neighbours, sorted ascending
//	t.KNNBeam(p, k, beamSize)  // approximate, beam-limited k-NN
//	t.Range(p, r)              // all points within radius r
//	t.Furthest(p)              // single furthest neighbour
//
// # Concurrency
//
// Every insertion takes the global write lock briefly at its start, to check
// for an empty tree and seed the root, and again whenever the root must be
// promoted. The descent itself holds only the global read lock and uses
// per-node reader/writer locks, so many inserts can proceed in parallel
// across disjoint subtrees.
//
// # Bulk construction
//
// NewFromMatrix builds a tree from a dense row-major matrix, inserting all
// but the first row in parallel across a bounded worker pool, then running
// CalcMaxDist once to tighten descendant-distance bounds for pruning.
//
// # Serialization
//
// Serialize/Deserialize produce and consume a flat, little-endian buffer: a
// header followed by a single pre-order stream of node records, each
// carrying its own child count. Pass WithCompression to frame it with
// zstd.
package graphgrove
