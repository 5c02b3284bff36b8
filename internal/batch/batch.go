// Package batch runs work over a slice in bounded concurrent chunks.
//
// Registry rate limits make unbounded fan-out counterproductive: chunks run
// one after another, items inside a chunk run concurrently, and results come
// back in input order. Workers are expected to convert their own failures
// into result values so that one bad item never aborts a run.
package batch

import (
	"context"
	"sync"
)

// Run applies worker to every item, at most size items at a time. The result
// slice is aligned with items. A cancelled context stops scheduling further
// chunks; the chunk in flight is allowed to finish and the results produced
// so far are returned with the context error.
func Run[T, R any](ctx context.Context, items []T, size int, worker func(context.Context, T) R) ([]R, error) {
	if size <= 0 {
		size = 1
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return results[:start], err
		}

		end := min(start+size, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = worker(ctx, items[i])
			}()
		}
		wg.Wait()
	}

	return results, nil
}
