package tracker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/pagetracker/pkg/pagination"
)

type item = int

// filter is the context object used throughout the tests.
type filter struct {
	Query string
}

// scriptedFetch serves pages from a script and records every call.
type scriptedFetch struct {
	mu       sync.Mutex
	script   []func(ctx context.Context, pc pagination.Context[item, filter]) (pagination.Page[item], error)
	contexts []pagination.Context[item, filter]
	entered  chan int
}

func newScriptedFetch(steps ...func(ctx context.Context, pc pagination.Context[item, filter]) (pagination.Page[item], error)) *scriptedFetch {
	return &scriptedFetch{
		script:  steps,
		entered: make(chan int, 64),
	}
}

func (s *scriptedFetch) fetch(ctx context.Context, pc pagination.Context[item, filter]) (pagination.Page[item], error) {
	s.mu.Lock()
	call := len(s.contexts)
	s.contexts = append(s.contexts, pc)
	var step func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error)
	if call < len(s.script) {
		step = s.script[call]
	}
	s.mu.Unlock()

	s.entered <- call + 1

	if step == nil {
		return pagination.Page[item]{}, fmt.Errorf("unexpected fetch #%d", call+1)
	}
	return step(ctx, pc)
}

func (s *scriptedFetch) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

func (s *scriptedFetch) context(call int) pagination.Context[item, filter] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts[call-1]
}

// waitEntered blocks until the fetch with the given call number started.
func (s *scriptedFetch) waitEntered(t *testing.T, call int) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-s.entered:
			if n >= call {
				return
			}
		case <-timeout:
			t.Fatalf("fetch #%d never started", call)
		}
	}
}

// respond returns a step that serves the given items and cursor.
func respond(cursor string, items ...item) func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
	return func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
		return pagination.NewPage(items, cursor), nil
	}
}

// fail returns a step that fails with err.
func fail(err error) func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
	return func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
		return pagination.Page[item]{}, err
	}
}

// blockUntil returns a step that ignores cancellation and serves its page
// only after release is closed.
func blockUntil(release <-chan struct{}, cursor string, items ...item) func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
	return func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
		<-release
		return pagination.NewPage(items, cursor), nil
	}
}

// blockUntilCancelled returns a step that waits for ctx cancellation.
func blockUntilCancelled() func(context.Context, pagination.Context[item, filter]) (pagination.Page[item], error) {
	return func(ctx context.Context, _ pagination.Context[item, filter]) (pagination.Page[item], error) {
		<-ctx.Done()
		return pagination.Page[item]{}, ctx.Err()
	}
}

func seq(from, to int) []item {
	items := make([]item, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, i)
	}
	return items
}

// recordingPresenter records presenter calls as "start", "end" or "end:<err>".
type recordingPresenter struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (p *recordingPresenter) StartLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "start")
}

func (p *recordingPresenter) EndLoading(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.events = append(p.events, "end:err")
		p.errs = append(p.errs, err)
		return
	}
	p.events = append(p.events, "end")
}

func (p *recordingPresenter) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPresenter) errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

func testConfig(pageSize int) Config {
	logger := zerolog.New(io.Discard)
	return Config{
		PageSize: pageSize,
		Logger:   &logger,
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func assertEvents(t *testing.T, p *recordingPresenter, want ...string) {
	t.Helper()
	got := p.snapshot()
	if len(got) != len(want) {
		t.Fatalf("Expected presenter events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected presenter events %v, got %v", want, got)
		}
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
