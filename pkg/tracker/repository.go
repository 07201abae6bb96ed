package tracker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

// Repository supplies both the fetch function and the context object of a
// paginated list, typically backed by a local store.
type Repository[T any, C any] interface {
	LoadNextPage(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error)
	PaginationContextObject() C
}

// CallbackRepository is the callback-style variant of Repository.
type CallbackRepository[T any, C any] interface {
	LoadNextPageAsync(pc pagination.Context[T, C], done func(pagination.Page[T], error))
	PaginationContextObject() C
}

// Pruner is implemented by repositories that can drop items left over from
// a previous load once a forced refresh has fetched a fresh first page.
type Pruner interface {
	Prune(ctx context.Context) error
}

// NewFromRepository creates a tracker bound to repo.
func NewFromRepository[T any, C any](repo Repository[T, C], presenter Presenter, cfg Config) *Tracker[T, C] {
	return New(RepositoryFetch(repo, cfg), repo.PaginationContextObject(), presenter, cfg)
}

// NewCallbackFromRepository creates a callback-style tracker bound to repo.
func NewCallbackFromRepository[T any, C any](repo CallbackRepository[T, C], presenter Presenter, cfg Config) *CallbackTracker[T, C] {
	fetch := withPruning[T, C](FromCallback[T, C](repo.LoadNextPageAsync), repo, cfg.logger())
	return NewCallbackWithFetch(fetch, repo.PaginationContextObject(), presenter, cfg)
}

// RepositoryFetch returns repo's fetch function, pruning stale items after
// the first page of a forced refresh when repo implements Pruner. Prune
// failures are logged to cfg.Logger.
func RepositoryFetch[T any, C any](repo Repository[T, C], cfg Config) FetchFunc[T, C] {
	return withPruning[T, C](repo.LoadNextPage, repo, cfg.logger())
}

func withPruning[T any, C any](fetch FetchFunc[T, C], repo any, logger zerolog.Logger) FetchFunc[T, C] {
	pruner, ok := repo.(Pruner)
	if !ok {
		return fetch
	}

	return func(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error) {
		page, err := fetch(ctx, pc)
		if err != nil || !pc.ForceRefresh() || !pc.IsFirst() {
			return page, err
		}

		if pruneErr := pruner.Prune(ctx); pruneErr != nil {
			logger.Warn().Err(pruneErr).Msg("Failed to prune stale items after refresh")
		}
		return page, nil
	}
}
