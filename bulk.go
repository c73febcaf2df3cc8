package graphgrove

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/leoliu49/graphgrove/vector"
)

// NewFromMatrix builds a tree from data, one row per point, inserting row
// 0 as the root and the rest concurrently, bounded by opts.cores
// simultaneous insertions via a weighted semaphore. A single CalcMaxDist
// sweep runs afterward, since concurrent Insert does not maintain
// maxdistUB incrementally.
func NewFromMatrix(data [][]float64, uids []UID, optFns ...Option) (*Tree, error) {
	if len(data) == 0 {
		return nil, ErrEmptyTree
	}
	if len(uids) != len(data) {
		return nil, fmt.Errorf("graphgrove: len(uids)=%d does not match len(data)=%d", len(uids), len(data))
	}

	dim := len(data[0])
	opts := applyOptions(optFns)
	if opts.base <= 1 {
		opts.base = 1.3
	}
	t := newTree(dim, opts)

	root := vector.Point(data[0])
	if _, err := t.Insert(root, uids[0], nil); err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(int64(opts.cores))
	ctx := context.Background()

	errCh := make(chan error, len(data)-1)
	for i := 1; i < len(data); i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		go func(p vector.Point, uid UID) {
			defer sem.Release(1)
			if len(p) != dim {
				errCh <- &ErrDimensionMismatch{Expected: dim, Actual: len(p)}
				return
			}
			if _, err := t.Insert(p, uid, nil); err != nil {
				errCh <- err
				return
			}
			errCh <- nil
		}(vector.Point(data[i]), uids[i])
	}

	// Drain completions. Acquiring the full weight blocks until every
	// goroutine has released, so the channel is guaranteed full by then.
	if err := sem.Acquire(ctx, int64(opts.cores)); err != nil {
		return nil, err
	}
	sem.Release(int64(opts.cores))

	close(errCh)
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	if err := t.CalcMaxDist(); err != nil {
		return nil, err
	}

	return t, nil
}
