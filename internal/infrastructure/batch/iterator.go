// Package batch runs per-item work over a list with a bounded start rate.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Iterator spaces item starts by Delay and runs at most Concurrency items at once.
// A zero value runs items sequentially with no delay.
type Iterator struct {
	Concurrency int
	Delay       time.Duration
}

// NewIterator creates an iterator. concurrency below 1 is treated as 1.
func NewIterator(concurrency int, delay time.Duration) *Iterator {
	if concurrency < 1 {
		concurrency = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &Iterator{Concurrency: concurrency, Delay: delay}
}

// Each calls fn for every item and returns one error slot per item, nil on success.
// An item's failure never stops the others. Once ctx is done, items not yet
// started are marked with ctx.Err().
func Each[T any](ctx context.Context, it *Iterator, items []T, fn func(ctx context.Context, item T) error) []error {
	if it == nil {
		it = &Iterator{}
	}
	errs := make([]error, len(items))

	var g errgroup.Group
	if it.Concurrency > 1 {
		g.SetLimit(it.Concurrency)
	}

	for i := range items {
		if i > 0 && it.Delay > 0 {
			if err := wait(ctx, it.Delay); err != nil {
				markRemaining(errs, i, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			markRemaining(errs, i, err)
			break
		}

		if it.Concurrency <= 1 {
			errs[i] = fn(ctx, items[i])
			continue
		}
		g.Go(func() error {
			errs[i] = fn(ctx, items[i])
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

func markRemaining(errs []error, from int, err error) {
	for j := from; j < len(errs); j++ {
		errs[j] = err
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
