package parallel

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item with at most limit calls in flight and returns
// the results in input order. The first error cancels the context passed to
// the remaining calls; Map waits for in-flight calls and returns that error.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	var cursor atomic.Int64

	for w, n := 0, min(limit, len(items)); w < n; w++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return nil
				}
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
