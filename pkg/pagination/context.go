package pagination

import "slices"

// Context is the snapshot passed to a fetch function.
// It is built fresh for every fetch and never modified afterwards.
type Context[T any, C any] struct {
	pages        []Page[T]
	forceRefresh bool
	object       C
}

// NewContext creates a snapshot over a copy of pages.
func NewContext[T any, C any](pages []Page[T], forceRefresh bool, object C) Context[T, C] {
	return Context[T, C]{
		pages:        slices.Clone(pages),
		forceRefresh: forceRefresh,
		object:       object,
	}
}

// Pages returns the pages loaded so far, oldest first.
func (c Context[T, C]) Pages() []Page[T] {
	return slices.Clone(c.pages)
}

// ForceRefresh reports whether the caller asked to bypass caches.
func (c Context[T, C]) ForceRefresh() bool {
	return c.forceRefresh
}

// Object returns the caller-supplied context object.
func (c Context[T, C]) Object() C {
	return c.object
}

// Current returns the most recently loaded page, if any.
func (c Context[T, C]) Current() (Page[T], bool) {
	if len(c.pages) == 0 {
		return Page[T]{}, false
	}
	return c.pages[len(c.pages)-1], true
}

// NextCursor returns the cursor of the current page.
// It is "" both before the first page and after the last one; use
// IsFirst to tell the two apart.
func (c Context[T, C]) NextCursor() string {
	current, ok := c.Current()
	if !ok {
		return ""
	}
	return current.Cursor()
}

// IsFirst reports whether no page has been loaded yet.
func (c Context[T, C]) IsFirst() bool {
	return len(c.pages) == 0
}

// Exhausted reports whether the last loaded page ended the list. A fetch
// for an exhausted context must not request the first page again.
func (c Context[T, C]) Exhausted() bool {
	return !c.IsFirst() && c.NextCursor() == ""
}
