// Package tracker implements a pagination tracker for sectioned list views.
//
// A Manager owns the pages loaded so far and decides, from scroll positions
// reported by the UI, when the next page must be fetched. At most one fetch
// is in flight per manager; concurrent LoadNextPage callers join the running
// request and receive its result. Reset cancels the running request,
// discards whatever it eventually returns, and starts over from the first page.
//
// Two facades sit on top of the same manager:
//
//   - Tracker: context-aware blocking calls (StartPaging, Reset, LoadNextPage)
//     plus a non-blocking Track.
//   - CallbackTracker: every operation takes a completion handler and returns
//     immediately.
//
// Both bridge loading state to a Presenter (StartLoading / EndLoading) through a
// Dispatcher, so presenter calls can be moved onto whatever goroutine owns the
// UI. A presenter passed to New is held until SetPresenter replaces it;
// Weak(p) wraps one in a weak pointer so the tracker does not keep it alive.
//
// Basic usage:
//
//	t := tracker.New(fetchOrders, filter, tracker.Weak(view), tracker.DefaultConfig())
//	if _, err := t.StartPaging(ctx); err != nil {
//		return err
//	}
//
//	// from the scroll handler
//	t.Track(grid.At(section, row), view)
//
// Trigger rule: a position is considered only when it is strictly after every
// position seen since the last reset. Scrolling back up and down again over
// already-seen rows never triggers, even after a failed load; use LoadNextPage
// to retry explicitly.
//
// Metrics (Prometheus):
//
//   - pagetracker_fetches_total{result} - fetch outcomes: success, error, superseded
//   - pagetracker_fetch_duration_seconds - fetch duration
//   - pagetracker_requests_in_flight - fetches currently running
//   - pagetracker_track_decisions_total{decision} - ignored, within_loaded, end_of_data, triggered
//   - pagetracker_resets_total - resets started
//   - pagetracker_singleflight_joins_total - LoadNextPage calls that joined a running fetch
package tracker
