package tracker

import (
	"github.com/Sternrassler/pagetracker/pkg/grid"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

// Handler receives the outcome of a callback-style operation.
type Handler[T any] func(page pagination.Page[T], err error)

// CallbackTracker is the callback-style facade over a Manager. Operations
// return immediately; handlers run on the configured Dispatcher.
type CallbackTracker[T any, C any] struct {
	manager   *Manager[T, C]
	presenter *presenterSlot
	dispatch  Dispatcher
}

// NewCallback creates a callback-style tracker over a callback fetch function.
func NewCallback[T any, C any](call CallbackFunc[T, C], object C, presenter Presenter, cfg Config) *CallbackTracker[T, C] {
	return NewCallbackWithFetch(FromCallback(call), object, presenter, cfg)
}

// NewCallbackWithFetch creates a callback-style tracker over a context-aware
// fetch function. presenter is held strongly, as in New; wrap it with Weak
// to let it be collected while the tracker lives on.
func NewCallbackWithFetch[T any, C any](fetch FetchFunc[T, C], object C, presenter Presenter, cfg Config) *CallbackTracker[T, C] {
	cfg = cfg.withDefaults()

	t := &CallbackTracker[T, C]{
		manager:   NewManager(fetch, object, cfg),
		presenter: newPresenterSlot(presenter, cfg.Dispatcher),
		dispatch:  cfg.Dispatcher,
	}
	t.manager.SetObserver(t.presenter)

	return t
}

// StartPaging is Reset(false, then).
func (t *CallbackTracker[T, C]) StartPaging(then Handler[T]) {
	t.Reset(false, then)
}

// Reset drops all pages and loads the first one again.
func (t *CallbackTracker[T, C]) Reset(forceRefresh bool, then Handler[T]) {
	go func() {
		page, err := t.manager.Reset(t.manager.baseContext(), forceRefresh)
		t.deliver(then, page, err)
	}()
}

// Track reports a position that is about to be displayed.
func (t *CallbackTracker[T, C]) Track(pos grid.Position, view grid.Counter) {
	t.manager.Track(pos, view)
}

// LoadNextPage loads the next page explicitly. If a load is already running,
// then receives that load's result.
func (t *CallbackTracker[T, C]) LoadNextPage(then Handler[T]) {
	go func() {
		page, err := t.manager.LoadNextPage(t.manager.baseContext(), false)
		t.deliver(then, page, err)
	}()
}

// IsLoadingNextPage reports whether a fetch is in flight.
func (t *CallbackTracker[T, C]) IsLoadingNextPage() bool {
	return t.manager.IsLoadingNextPage()
}

// SetPresenter replaces the presenter. Nil detaches it.
func (t *CallbackTracker[T, C]) SetPresenter(p Presenter) {
	t.presenter.set(p)
}

// Close cancels any fetch in flight and rejects further loads.
func (t *CallbackTracker[T, C]) Close() {
	t.manager.Close()
}

// Manager exposes the underlying state machine.
func (t *CallbackTracker[T, C]) Manager() *Manager[T, C] {
	return t.manager
}

func (t *CallbackTracker[T, C]) deliver(then Handler[T], page pagination.Page[T], err error) {
	if then == nil {
		return
	}
	t.dispatch(func() { then(page, err) })
}
