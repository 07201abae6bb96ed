package tracker

import (
	"sync"
	"sync/atomic"
	"weak"
)

// Presenter displays loading and error state for a paginated list.
//
// Presenter methods run on the tracker's Dispatcher. With the Immediate
// dispatcher they run on the goroutine driving the fetch, so they must not
// call back into the tracker synchronously.
type Presenter interface {
	StartLoading()
	EndLoading(err error)
}

// Observer receives manager lifecycle events. Exactly one EndLoading follows
// every StartLoading, including for superseded requests (with a nil error).
type Observer interface {
	StartLoading()
	EndLoading(err error)
}

// Dispatcher runs fn on the execution context that owns UI state.
type Dispatcher func(fn func())

// Immediate runs fn on the calling goroutine.
func Immediate(fn func()) {
	fn()
}

// SerialQueue runs dispatched functions one at a time, in order, on a single
// goroutine.
type SerialQueue struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewSerialQueue starts a queue with the given buffer size.
func NewSerialQueue(buffer int) *SerialQueue {
	if buffer < 0 {
		buffer = 0
	}
	q := &SerialQueue{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *SerialQueue) loop() {
	for {
		select {
		case fn := <-q.tasks:
			fn()
		case <-q.done:
			return
		}
	}
}

// Dispatch enqueues fn. Functions dispatched after Close are dropped.
func (q *SerialQueue) Dispatch(fn func()) {
	select {
	case q.tasks <- fn:
	case <-q.done:
	}
}

// Close stops the queue. Pending functions may not run.
func (q *SerialQueue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Weak wraps p so the tracker holds it without keeping it reachable.
// Once p is garbage collected the returned presenter does nothing.
func Weak[P any, PP interface {
	*P
	Presenter
}](p PP) Presenter {
	return weakPresenter[P, PP]{ptr: weak.Make((*P)(p))}
}

type weakPresenter[P any, PP interface {
	*P
	Presenter
}] struct {
	ptr weak.Pointer[P]
}

func (w weakPresenter[P, PP]) StartLoading() {
	if p := w.ptr.Value(); p != nil {
		PP(p).StartLoading()
	}
}

func (w weakPresenter[P, PP]) EndLoading(err error) {
	if p := w.ptr.Value(); p != nil {
		PP(p).EndLoading(err)
	}
}

// presenterSlot is the facade's replaceable presenter reference. It
// implements Observer by forwarding to the current presenter on the dispatcher.
type presenterSlot struct {
	ref      atomic.Pointer[presenterBox]
	dispatch Dispatcher
}

type presenterBox struct {
	presenter Presenter
}

func newPresenterSlot(p Presenter, dispatch Dispatcher) *presenterSlot {
	s := &presenterSlot{dispatch: dispatch}
	s.set(p)
	return s
}

func (s *presenterSlot) set(p Presenter) {
	if p == nil {
		s.ref.Store(nil)
		return
	}
	s.ref.Store(&presenterBox{presenter: p})
}

func (s *presenterSlot) current() Presenter {
	if box := s.ref.Load(); box != nil {
		return box.presenter
	}
	return nil
}

func (s *presenterSlot) StartLoading() {
	if p := s.current(); p != nil {
		s.dispatch(p.StartLoading)
	}
}

func (s *presenterSlot) EndLoading(err error) {
	if p := s.current(); p != nil {
		s.dispatch(func() { p.EndLoading(err) })
	}
}
