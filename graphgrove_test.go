package graphgrove_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoliu49/graphgrove"
	"github.com/leoliu49/graphgrove/vector"
)

func mustEmpty(t *testing.T, dim int, opts ...graphgrove.Option) *graphgrove.Tree {
	t.Helper()
	tr, err := graphgrove.NewEmpty(dim, opts...)
	require.NoError(t, err)
	return tr
}

// TestScenarioBaseTwoQuad grounds scenarios 1-3 of spec.md §8: four 2-D
// points inserted under base=2, checked against Nearest/KNN/Range/Furthest.
func TestScenarioBaseTwoQuad(t *testing.T) {
	tr := mustEmpty(t, 2, graphgrove.WithBase(2))

	pts := map[graphgrove.UID]vector.Point{
		1: {0, 0},
		2: {3, 0},
		3: {0, 4},
		4: {6, 0},
	}
	for _, uid := range []graphgrove.UID{1, 2, 3, 4} {
		ok, err := tr.Insert(pts[uid], uid, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, tr.CalcMaxDist())

	assert.Equal(t, 4, tr.GetTreeSize())

	uid, dist, err := tr.Nearest(vector.Point{1, 0})
	require.NoError(t, err)
	assert.Equal(t, graphgrove.UID(1), uid)
	assert.InDelta(t, 1.0, dist, 1e-9)

	knnUIDs, knnDists, err := tr.KNN(vector.Point{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, knnUIDs, 2)
	assert.Equal(t, []graphgrove.UID{1, 2}, knnUIDs)
	assert.InDelta(t, 1.0, knnDists[0], 1e-9)
	assert.InDelta(t, 2.0, knnDists[1], 1e-9)

	rUIDs, _, err := tr.Range(vector.Point{0, 0}, 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []graphgrove.UID{1, 2, 3}, rUIDs)

	fUID, fDist, err := tr.Furthest(vector.Point{0, 0})
	require.NoError(t, err)
	assert.Equal(t, graphgrove.UID(4), fUID)
	assert.InDelta(t, 6.0, fDist, 1e-9)
}

// TestSelfNN grounds the Self-NN functional law: every inserted point is
// its own nearest neighbour at distance 0.
func TestSelfNN(t *testing.T) {
	tr := mustEmpty(t, 10)

	rng := rand.New(rand.NewSource(1))
	const n = 300
	pts := make([]vector.Point, n)
	for i := range pts {
		p := make(vector.Point, 10)
		for j := range p {
			p[j] = rng.Float64()
		}
		pts[i] = p
		ok, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i, p := range pts {
		_, dist, err := tr.Nearest(p)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, dist, 1e-9, "point %d", i)
	}
}

// TestKNNMonotonicity grounds the kNN monotonicity functional law: the
// k1-result is a prefix of the k2-result for k1 < k2.
func TestKNNMonotonicity(t *testing.T) {
	tr := mustEmpty(t, 3)

	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		p := vector.Point{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		_, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
	}
	require.NoError(t, tr.CalcMaxDist())

	q := vector.Point{5, 5, 5}
	small, _, err := tr.KNN(q, 5)
	require.NoError(t, err)
	large, _, err := tr.KNN(q, 15)
	require.NoError(t, err)

	require.Len(t, small, 5)
	require.Len(t, large, 15)
	assert.Equal(t, small, large[:5])
}

// TestRangeSupersetOfKNN grounds the Range ⊇ kNN functional law.
func TestRangeSupersetOfKNN(t *testing.T) {
	tr := mustEmpty(t, 3)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 150; i++ {
		p := vector.Point{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		_, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
	}
	require.NoError(t, tr.CalcMaxDist())

	q := vector.Point{5, 5, 5}
	const k = 8
	knnUIDs, knnDists, err := tr.KNN(q, k)
	require.NoError(t, err)

	dk := knnDists[len(knnDists)-1]
	rangeUIDs, _, err := tr.Range(q, dk)
	require.NoError(t, err)

	rangeSet := make(map[graphgrove.UID]bool, len(rangeUIDs))
	for _, u := range rangeUIDs {
		rangeSet[u] = true
	}
	for _, u := range knnUIDs {
		assert.True(t, rangeSet[u], "uid %d missing from range result", u)
	}
}

// TestEmptyTreeBoundary grounds the empty-tree boundary behavior.
func TestEmptyTreeBoundary(t *testing.T) {
	tr := mustEmpty(t, 2)

	assert.Equal(t, 0, tr.GetTreeSize())

	_, _, err := tr.Nearest(vector.Point{0, 0})
	assert.ErrorIs(t, err, graphgrove.ErrEmptyTree)

	_, _, err = tr.KNN(vector.Point{0, 0}, 3)
	assert.ErrorIs(t, err, graphgrove.ErrEmptyTree)

	_, _, err = tr.Furthest(vector.Point{0, 0})
	assert.ErrorIs(t, err, graphgrove.ErrEmptyTree)

	uids, dists, err := tr.Range(vector.Point{0, 0}, 1)
	assert.NoError(t, err)
	assert.Empty(t, uids)
	assert.Empty(t, dists)
}

// TestSinglePointBoundary grounds the one-point boundary behavior:
// Nearest and Furthest both return the sole point.
func TestSinglePointBoundary(t *testing.T) {
	tr, err := graphgrove.NewSingle(vector.Point{2, 2}, 42)
	require.NoError(t, err)

	nUID, nDist, err := tr.Nearest(vector.Point{5, 5})
	require.NoError(t, err)
	fUID, fDist, err := tr.Furthest(vector.Point{5, 5})
	require.NoError(t, err)

	assert.Equal(t, graphgrove.UID(42), nUID)
	assert.Equal(t, graphgrove.UID(42), fUID)
	assert.InDelta(t, nDist, fDist, 1e-9)
}

// TestInvalidK grounds error handling for a non-positive k.
func TestInvalidK(t *testing.T) {
	tr, err := graphgrove.NewSingle(vector.Point{0, 0}, 1)
	require.NoError(t, err)

	_, _, err = tr.KNN(vector.Point{0, 0}, 0)
	assert.ErrorIs(t, err, graphgrove.ErrInvalidK)
}

// TestDimensionMismatch grounds error handling for a dimension mismatch
// between the tree and a query/insert point.
func TestDimensionMismatch(t *testing.T) {
	tr := mustEmpty(t, 3)
	_, err := tr.Insert(vector.Point{1, 2}, 1, nil)
	var dimErr *graphgrove.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

// TestCheckCoveringHoldsAfterInserts grounds invariants 1-2 of spec.md §8.
func TestCheckCoveringHoldsAfterInserts(t *testing.T) {
	tr := mustEmpty(t, 4)

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 500; i++ {
		p := vector.Point{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		_, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
	}

	assert.True(t, tr.CheckCovering())
}

// TestSerializeRoundTrip grounds the serialization round-trip functional
// law and scenario 5 of spec.md §8.
func TestSerializeRoundTrip(t *testing.T) {
	tr := mustEmpty(t, 5)

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		p := make(vector.Point, 5)
		for j := range p {
			p[j] = rng.Float64()
		}
		_, err := tr.Insert(p, graphgrove.UID(i+1), []byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, tr.CalcMaxDist())

	buf, err := tr.Serialize()
	require.NoError(t, err)

	tr2, err := graphgrove.Deserialize(buf)
	require.NoError(t, err)

	assert.True(t, tr2.CheckCovering())
	assert.Equal(t, tr.GetTreeSize(), tr2.GetTreeSize())

	for i := 0; i < 50; i++ {
		q := make(vector.Point, 5)
		for j := range q {
			q[j] = rng.Float64()
		}
		u1, d1, err := tr.KNN(q, 5)
		require.NoError(t, err)
		u2, d2, err := tr2.KNN(q, 5)
		require.NoError(t, err)
		assert.Equal(t, u1, u2)
		require.Equal(t, len(d1), len(d2))
		for j := range d1 {
			assert.InDelta(t, d1[j], d2[j], 1e-9)
		}
	}
}

// TestSerializeRoundTripCompressed exercises the WithCompression path.
func TestSerializeRoundTripCompressed(t *testing.T) {
	tr := mustEmpty(t, 3, graphgrove.WithCompression(true))

	for i := 0; i < 20; i++ {
		p := vector.Point{float64(i), float64(i * 2), float64(i * 3)}
		_, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
	}

	buf, err := tr.Serialize()
	require.NoError(t, err)

	tr2, err := graphgrove.Deserialize(buf, graphgrove.WithCompression(true))
	require.NoError(t, err)
	assert.Equal(t, tr.GetTreeSize(), tr2.GetTreeSize())
}

// TestConcurrentInsert grounds scenario 6 of spec.md §8: many goroutines
// insert distinct points concurrently; the final tree size and UID set
// must match the input exactly, and the covering/separation invariants
// must hold.
func TestConcurrentInsert(t *testing.T) {
	tr := mustEmpty(t, 6)

	const workers = 8
	const perWorker = 1250 // 10,000 total

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker) + 100))
			for i := 0; i < perWorker; i++ {
				p := make(vector.Point, 6)
				for j := range p {
					p[j] = rng.Float64()
				}
				uid := graphgrove.UID(worker*perWorker + i + 1)
				_, err := tr.Insert(p, uid, nil)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, tr.GetTreeSize())
	assert.True(t, tr.CheckCovering())

	for uid := 1; uid <= workers*perWorker; uid++ {
		_, ok := tr.Lookup(graphgrove.UID(uid))
		assert.True(t, ok, "uid %d not registered", uid)
	}
}

// TestDuplicateInsertRejected grounds duplicate detection: inserting the
// same point twice under a different UID leaves the tree size unchanged
// for the second insert.
func TestDuplicateInsertRejected(t *testing.T) {
	tr := mustEmpty(t, 2)

	ok, err := tr.Insert(vector.Point{1, 1}, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tr.Insert(vector.Point{1, 1}, 2, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, tr.GetTreeSize())
}

// TestTruncateLevelZero grounds the truncation boundary behavior: with
// truncate_level=0, Insert attaches each new point at its parent's own
// level instead of one level below it, and the covering/separation
// invariants still hold.
func TestTruncateLevelZero(t *testing.T) {
	tr := mustEmpty(t, 2, graphgrove.WithBase(2), graphgrove.WithTruncateLevel(0))

	for i := 0; i < 20; i++ {
		p := vector.Point{float64(i), float64(i)}
		_, err := tr.Insert(p, graphgrove.UID(i+1), nil)
		require.NoError(t, err)
	}

	root := tr.GetRoot()
	require.NotNil(t, root)
	assert.True(t, tr.CheckCovering())
}

// TestCloseIsIdempotentAndBlocksFurtherUse grounds the Lifecycle section:
// Close is safe to call more than once, and post-Close operations report
// ErrClosed.
func TestCloseIsIdempotentAndBlocksFurtherUse(t *testing.T) {
	tr := mustEmpty(t, 2)
	_, err := tr.Insert(vector.Point{0, 0}, 1, nil)
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = tr.Insert(vector.Point{1, 1}, 2, nil)
	assert.ErrorIs(t, err, graphgrove.ErrClosed)
}

// TestBulkConstruction exercises NewFromMatrix and confirms the resulting
// tree is covering-consistent and fully sized.
func TestBulkConstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	const n = 500
	data := make([][]float64, n)
	uids := make([]graphgrove.UID, n)
	for i := range data {
		row := make([]float64, 4)
		for j := range row {
			row[j] = rng.Float64()
		}
		data[i] = row
		uids[i] = graphgrove.UID(i + 1)
	}

	tr, err := graphgrove.NewFromMatrix(data, uids, graphgrove.WithCores(4))
	require.NoError(t, err)

	assert.Equal(t, n, tr.GetTreeSize())
	assert.True(t, tr.CheckCovering())
}
