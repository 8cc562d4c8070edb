// Package batch processes slices in fixed-size concurrent groups.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Process applies fn to every item, running at most width invocations
// concurrently. Items are handled in fixed-size groups and each group is
// awaited in full before the next starts, so a long tail in one group never
// overlaps the next. Results are returned in input order. The first error
// aborts the current group and is returned.
func Process[T, R any](ctx context.Context, items []T, width int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if width < 1 {
		width = 1
	}
	results := make([]R, len(items))

	for start := 0; start < len(items); start += width {
		end := min(start+width, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
