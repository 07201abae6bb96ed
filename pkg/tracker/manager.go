package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/grid"
	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

// request is one fetch. It is current while Manager.active points to it.
type request[T any, C any] struct {
	generation uint64
	session    uint64
	id         string
	pc         pagination.Context[T, C]

	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu orders StartLoading against EndLoading for this request.
	notifyMu sync.Mutex
	started  bool
	ended    bool

	done chan struct{}
	page pagination.Page[T]
	err  error
}

func (r *request[T, C]) wait(ctx context.Context) (pagination.Page[T], error) {
	select {
	case <-r.done:
		return r.page, r.err
	case <-ctx.Done():
		return pagination.Page[T]{}, ctx.Err()
	}
}

// Manager is the pagination state machine.
//
// All state is guarded by mu. The fetch function, the grid counter and
// observer callbacks are always invoked without holding mu.
//
// Thread-safety: all methods are safe for concurrent use.
type Manager[T any, C any] struct {
	fetch    FetchFunc[T, C]
	object   C
	pageSize int
	logger   zerolog.Logger

	// ctx bounds fetches started by Track and callback facades; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	observer Observer
	pages    []pagination.Page[T]
	total    int
	limit    *grid.Position
	tracking bool
	// settling is set by Reset and cleared once a page of that session lands.
	settling   bool
	active     *request[T, C]
	generation uint64
	session    uint64
	closed     bool

	// running counts requests that have not finished, superseded ones
	// included; idle is closed whenever it drops to zero.
	running int
	idle    chan struct{}
}

// NewManager creates a manager that loads pages with fetch and hands object
// to every fetch through the pagination context.
func NewManager[T any, C any](fetch FetchFunc[T, C], object C, cfg Config) *Manager[T, C] {
	if fetch == nil {
		panic("fetch function cannot be nil")
	}
	cfg = cfg.withDefaults()

	logger := cfg.logger()

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager[T, C]{
		fetch:    fetch,
		object:   object,
		pageSize: cfg.PageSize,
		logger:   logger.With().Int("page_size", cfg.PageSize).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetObserver sets the receiver of loading events. Nil disables events.
func (m *Manager[T, C]) SetObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// Reset cancels any running fetch, clears all pages and the tracked limit,
// disables tracking and loads the first page. Tracking is enabled again once
// that page arrives. On failure tracking stays disabled until a later
// LoadNextPage or Reset succeeds.
func (m *Manager[T, C]) Reset(ctx context.Context, forceRefresh bool) (pagination.Page[T], error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return pagination.Page[T]{}, ErrClosed
	}

	old := m.active
	m.active = nil
	m.session++
	m.pages = nil
	m.total = 0
	m.limit = nil
	m.tracking = false
	m.settling = true

	r := m.begin(ctx, forceRefresh)
	m.mu.Unlock()

	resetsTotal.Inc()
	if old != nil {
		m.supersede(old)
	}

	m.logger.Debug().
		Uint64("session", r.session).
		Bool("force_refresh", forceRefresh).
		Msg("Resetting pagination")

	page, err := m.run(r)
	if err != nil {
		return page, err
	}

	m.logger.Info().
		Uint64("session", r.session).
		Int("items", page.Len()).
		Bool("has_next", page.HasNext()).
		Msg("Pagination reset complete")

	return page, nil
}

// LoadNextPage fetches the page after the last loaded one. If a fetch is
// already running, the caller waits for it and gets its result instead of
// starting another one.
func (m *Manager[T, C]) LoadNextPage(ctx context.Context, forceRefresh bool) (pagination.Page[T], error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return pagination.Page[T]{}, ErrClosed
	}

	if r := m.active; r != nil {
		m.mu.Unlock()

		singleflightJoins.Inc()
		m.logger.Debug().
			Uint64("generation", r.generation).
			Msg("Joining page request already in flight")

		return r.wait(ctx)
	}

	r := m.begin(ctx, forceRefresh)
	m.mu.Unlock()

	return m.run(r)
}

// Track records that pos is about to be displayed in a view laid out as
// counter and starts loading the next page when pos is close enough to the
// end of the loaded items. The fetch runs in the background; its error is
// only visible through the observer. Track reports whether it started one.
func (m *Manager[T, C]) Track(pos grid.Position, counter grid.Counter) bool {
	m.mu.Lock()
	if m.limit == nil {
		origin := grid.Origin
		m.limit = &origin
	}

	// avoid counting items unless pos moved past everything seen before
	if !m.tracking || m.active != nil || m.closed || !pos.After(*m.limit) {
		m.mu.Unlock()
		trackDecisions.WithLabelValues(decisionIgnored).Inc()
		return false
	}

	limit := pos
	m.limit = &limit
	session := m.session
	m.mu.Unlock()

	index := counter.CountItemsBefore(pos)

	m.mu.Lock()
	if m.session != session || !m.tracking || m.active != nil || m.closed {
		m.mu.Unlock()
		trackDecisions.WithLabelValues(decisionIgnored).Inc()
		return false
	}

	if index < m.total-m.pageSize {
		total := m.total
		m.mu.Unlock()

		trackDecisions.WithLabelValues(decisionWithinLoaded).Inc()
		m.logger.Debug().
			Stringer("position", pos).
			Int("index", index).
			Int("total_items", total).
			Msg("Position within loaded pages")
		return false
	}

	if n := len(m.pages); n > 0 && !m.pages[n-1].HasNext() {
		m.mu.Unlock()
		trackDecisions.WithLabelValues(decisionEndOfData).Inc()
		return false
	}

	r := m.begin(m.ctx, false)
	m.mu.Unlock()

	trackDecisions.WithLabelValues(decisionTriggered).Inc()
	m.logger.Debug().
		Stringer("position", pos).
		Int("index", index).
		Uint64("generation", r.generation).
		Msg("Track triggered next page")

	go func() {
		if _, err := m.run(r); err != nil && !errors.Is(err, ErrSuperseded) {
			m.logger.Warn().
				Err(err).
				Uint64("generation", r.generation).
				Str("request_id", r.id).
				Msg("Background page load failed")
		}
	}()

	return true
}

// IsLoadingNextPage reports whether a fetch is in flight.
func (m *Manager[T, C]) IsLoadingNextPage() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// IsTrackingEnabled reports whether Track may trigger fetches.
func (m *Manager[T, C]) IsTrackingEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracking
}

// Pages returns the pages loaded since the last reset, oldest first.
func (m *Manager[T, C]) Pages() []pagination.Page[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pagination.Page[T](nil), m.pages...)
}

// TotalItemCount returns the number of items across all loaded pages.
func (m *Manager[T, C]) TotalItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// LimitPosition returns the furthest tracked position, if any.
func (m *Manager[T, C]) LimitPosition() (grid.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit == nil {
		return grid.Position{}, false
	}
	return *m.limit, true
}

// PageSize returns the trigger threshold.
func (m *Manager[T, C]) PageSize() int {
	return m.pageSize
}

// Wait blocks until every started fetch has finished, including superseded
// ones, or ctx is done.
func (m *Manager[T, C]) Wait(ctx context.Context) error {
	m.mu.Lock()
	if m.running == 0 {
		m.mu.Unlock()
		return nil
	}
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the running fetch and rejects further operations.
func (m *Manager[T, C]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.tracking = false
	old := m.active
	m.active = nil
	m.mu.Unlock()

	m.cancel()
	if old != nil {
		m.supersede(old)
	}
}

// baseContext bounds fetches that have no caller context.
func (m *Manager[T, C]) baseContext() context.Context {
	return m.ctx
}

// begin registers a new active request. Callers must hold mu.
func (m *Manager[T, C]) begin(parent context.Context, forceRefresh bool) *request[T, C] {
	m.generation++
	if m.running == 0 {
		m.idle = make(chan struct{})
	}
	m.running++

	ctx, cancel := context.WithCancel(parent)
	r := &request[T, C]{
		generation: m.generation,
		session:    m.session,
		id:         uuid.NewString(),
		pc:         pagination.NewContext(m.pages, forceRefresh, m.object),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	m.active = r
	return r
}

// run performs the fetch for r and applies its result if r is still current.
func (m *Manager[T, C]) run(r *request[T, C]) (pagination.Page[T], error) {
	defer r.cancel()

	if !m.notifyStart(r) {
		// superseded before it started
		fetchesTotal.WithLabelValues(resultSuperseded).Inc()
		m.finish(r, pagination.Page[T]{}, ErrSuperseded, nil)
		return pagination.Page[T]{}, ErrSuperseded
	}

	loaded := len(r.pc.Pages())
	logger := m.logger.With().
		Uint64("generation", r.generation).
		Str("request_id", r.id).
		Int("pages", loaded).
		Logger()
	logger.Debug().Bool("force_refresh", r.pc.ForceRefresh()).Msg("Fetching page")

	requestsInFlight.Inc()
	start := time.Now()
	page, fetchErr := m.fetch(r.ctx, r.pc)
	duration := time.Since(start)
	requestsInFlight.Dec()
	fetchDuration.Observe(duration.Seconds())

	m.mu.Lock()
	current := m.active == r
	if current {
		m.active = nil
		if fetchErr == nil {
			m.pages = append(m.pages, page)
			m.total += page.Len()
			if m.settling && r.session == m.session {
				m.settling = false
				m.tracking = true
			}
		}
	}
	total := m.total
	m.mu.Unlock()

	switch {
	case !current:
		fetchesTotal.WithLabelValues(resultSuperseded).Inc()
		logger.Debug().Dur("duration", duration).Msg("Discarding result of superseded request")
		m.finish(r, pagination.Page[T]{}, ErrSuperseded, nil)
		return pagination.Page[T]{}, ErrSuperseded

	case fetchErr != nil:
		err := &FetchError{
			Generation:  r.generation,
			PagesLoaded: loaded,
			Err:         fetchErr,
		}
		fetchesTotal.WithLabelValues(resultError).Inc()
		logger.Debug().Err(fetchErr).Dur("duration", duration).Msg("Page fetch failed")
		m.finish(r, pagination.Page[T]{}, err, err)
		return pagination.Page[T]{}, err

	default:
		fetchesTotal.WithLabelValues(resultSuccess).Inc()
		logger.Debug().
			Int("items", page.Len()).
			Int("total_items", total).
			Bool("has_next", page.HasNext()).
			Dur("duration", duration).
			Msg("Page loaded")
		m.finish(r, page, nil, nil)
		return page, nil
	}
}

// supersede closes the loading cycle of a request cancelled by Reset or Close.
func (m *Manager[T, C]) supersede(r *request[T, C]) {
	r.cancel()
	m.notifyEnd(r, nil)
	m.logger.Debug().
		Uint64("generation", r.generation).
		Msg("Cancelled request in flight")
}

// finish reports the end of r to the observer, then releases waiters.
func (m *Manager[T, C]) finish(r *request[T, C], page pagination.Page[T], err, presented error) {
	m.notifyEnd(r, presented)
	r.page, r.err = page, err
	close(r.done)

	m.mu.Lock()
	m.running--
	if m.running == 0 {
		close(m.idle)
	}
	m.mu.Unlock()
}

// notifyStart emits StartLoading unless r already ended.
func (m *Manager[T, C]) notifyStart(r *request[T, C]) bool {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	if r.ended {
		return false
	}
	r.started = true
	if o := m.currentObserver(); o != nil {
		o.StartLoading()
	}
	return true
}

// notifyEnd emits EndLoading once, and only if StartLoading was emitted.
func (m *Manager[T, C]) notifyEnd(r *request[T, C], err error) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	if r.ended {
		return
	}
	r.ended = true
	if !r.started {
		return
	}
	if o := m.currentObserver(); o != nil {
		o.EndLoading(err)
	}
}

func (m *Manager[T, C]) currentObserver() Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observer
}
