package tracker

import (
	"context"
	"sync"

	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

// FetchFunc loads the page that follows pc. It should return promptly once
// ctx is cancelled; results returned after cancellation are discarded.
type FetchFunc[T any, C any] func(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error)

// CallbackFunc is the callback-style variant of FetchFunc: it starts loading
// and reports the result through done, possibly from another goroutine.
type CallbackFunc[T any, C any] func(pc pagination.Context[T, C], done func(pagination.Page[T], error))

// FromCallback adapts a CallbackFunc to a FetchFunc. The callback itself
// cannot be cancelled: on ctx cancellation the FetchFunc returns ctx.Err()
// and a later completion is ignored. Only the first done call counts.
func FromCallback[T any, C any](cb CallbackFunc[T, C]) FetchFunc[T, C] {
	type result struct {
		page pagination.Page[T]
		err  error
	}

	return func(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error) {
		results := make(chan result, 1)
		var once sync.Once

		cb(pc, func(page pagination.Page[T], err error) {
			once.Do(func() {
				results <- result{page: page, err: err}
			})
		})

		select {
		case res := <-results:
			return res.page, res.err
		case <-ctx.Done():
			return pagination.Page[T]{}, ctx.Err()
		}
	}
}
