package pagination

import "slices"

// Page is an immutable batch of items returned by a single fetch.
type Page[T any] struct {
	items  []T
	cursor string
}

// NewPage creates a page holding a copy of items.
// An empty cursor marks the page as the last one.
func NewPage[T any](items []T, cursor string) Page[T] {
	return Page[T]{
		items:  slices.Clone(items),
		cursor: cursor,
	}
}

// Items returns a copy of the page items in server order.
func (p Page[T]) Items() []T {
	return slices.Clone(p.items)
}

// Len returns the number of items on the page.
func (p Page[T]) Len() int {
	return len(p.items)
}

// Cursor returns the continuation token, or "" at end of data.
func (p Page[T]) Cursor() string {
	return p.cursor
}

// HasNext reports whether more data may follow this page.
func (p Page[T]) HasNext() bool {
	return p.cursor != ""
}

// TotalItems sums the item counts of pages.
func TotalItems[T any](pages []Page[T]) int {
	total := 0
	for _, p := range pages {
		total += p.Len()
	}
	return total
}
