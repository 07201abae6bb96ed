package tracker

import (
	"context"

	"github.com/Sternrassler/pagetracker/pkg/grid"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

// Tracker is the context-aware facade over a Manager. It forwards loading
// events to a Presenter.
type Tracker[T any, C any] struct {
	manager   *Manager[T, C]
	presenter *presenterSlot
}

// New creates a tracker that loads pages with fetch. object is handed to
// every fetch through the pagination context. presenter may be nil.
//
// The tracker holds presenter strongly until it is replaced with
// SetPresenter. Pass Weak(p) when the presenter's lifetime belongs to a view
// that may go away while a fetch is still running.
func New[T any, C any](fetch FetchFunc[T, C], object C, presenter Presenter, cfg Config) *Tracker[T, C] {
	cfg = cfg.withDefaults()

	t := &Tracker[T, C]{
		manager:   NewManager(fetch, object, cfg),
		presenter: newPresenterSlot(presenter, cfg.Dispatcher),
	}
	t.manager.SetObserver(t.presenter)

	return t
}

// NewSimple creates a tracker without a context object.
func NewSimple[T any](fetch FetchFunc[T, struct{}], presenter Presenter, cfg Config) *Tracker[T, struct{}] {
	return New(fetch, struct{}{}, presenter, cfg)
}

// StartPaging is Reset(ctx, false).
func (t *Tracker[T, C]) StartPaging(ctx context.Context) (pagination.Page[T], error) {
	return t.Reset(ctx, false)
}

// Reset drops all pages and loads the first one again, for example on
// pull-to-refresh. forceRefresh is passed to the fetch function.
func (t *Tracker[T, C]) Reset(ctx context.Context, forceRefresh bool) (pagination.Page[T], error) {
	return t.manager.Reset(ctx, forceRefresh)
}

// Track reports a position that is about to be displayed and, if needed,
// starts loading the next page in the background. It never blocks on I/O.
func (t *Tracker[T, C]) Track(pos grid.Position, view grid.Counter) {
	t.manager.Track(pos, view)
}

// LoadNextPage loads the next page explicitly, for example to retry after a
// failed load.
func (t *Tracker[T, C]) LoadNextPage(ctx context.Context) (pagination.Page[T], error) {
	return t.manager.LoadNextPage(ctx, false)
}

// IsLoadingNextPage reports whether a fetch is in flight.
func (t *Tracker[T, C]) IsLoadingNextPage() bool {
	return t.manager.IsLoadingNextPage()
}

// Pages returns the pages loaded since the last reset.
func (t *Tracker[T, C]) Pages() []pagination.Page[T] {
	return t.manager.Pages()
}

// Items returns all loaded items in order.
func (t *Tracker[T, C]) Items() []T {
	pages := t.manager.Pages()
	items := make([]T, 0, pagination.TotalItems(pages))
	for _, p := range pages {
		items = append(items, p.Items()...)
	}
	return items
}

// TotalItemCount returns the number of loaded items.
func (t *Tracker[T, C]) TotalItemCount() int {
	return t.manager.TotalItemCount()
}

// HasMore reports whether another page may exist.
func (t *Tracker[T, C]) HasMore() bool {
	pages := t.manager.Pages()
	return len(pages) == 0 || pages[len(pages)-1].HasNext()
}

// SetPresenter replaces the presenter. Nil detaches it.
func (t *Tracker[T, C]) SetPresenter(p Presenter) {
	t.presenter.set(p)
}

// DetachPresenter stops all further presenter calls.
func (t *Tracker[T, C]) DetachPresenter() {
	t.presenter.set(nil)
}

// Wait blocks until no fetch is running.
func (t *Tracker[T, C]) Wait(ctx context.Context) error {
	return t.manager.Wait(ctx)
}

// Close cancels any fetch in flight and rejects further loads.
func (t *Tracker[T, C]) Close() {
	t.manager.Close()
}

// Manager exposes the underlying state machine.
func (t *Tracker[T, C]) Manager() *Manager[T, C] {
	return t.manager
}
