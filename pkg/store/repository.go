package store

import (
	"context"

	"github.com/Sternrassler/pagetracker/pkg/pagination"
	"github.com/Sternrassler/pagetracker/pkg/tracker"
)

// Repository binds a cached list to a tracker. It implements
// tracker.Repository and tracker.Pruner.
type Repository[T any, C any] struct {
	store  *Store
	list   string
	fetch  tracker.FetchFunc[T, C]
	object C
}

// NewRepository creates a repository that serves list from s and loads
// missing pages with fetch.
func NewRepository[T any, C any](s *Store, list string, fetch tracker.FetchFunc[T, C], object C) *Repository[T, C] {
	return &Repository[T, C]{
		store:  s,
		list:   list,
		fetch:  Cached(s, list, fetch),
		object: object,
	}
}

// LoadNextPage implements tracker.Repository.
func (r *Repository[T, C]) LoadNextPage(ctx context.Context, pc pagination.Context[T, C]) (pagination.Page[T], error) {
	return r.fetch(ctx, pc)
}

// PaginationContextObject implements tracker.Repository.
func (r *Repository[T, C]) PaginationContextObject() C {
	return r.object
}

// Prune drops every cached page of the list except the first.
func (r *Repository[T, C]) Prune(ctx context.Context) error {
	_, err := r.store.Prune(ctx, r.list)
	return err
}

var (
	_ tracker.Repository[struct{}, struct{}] = (*Repository[struct{}, struct{}])(nil)
	_ tracker.Pruner                         = (*Repository[struct{}, struct{}])(nil)
)
