package store

import "strings"

const keyPrefix = "pagetracker"

// firstPage stands in for the empty cursor of the first page.
const firstPage = "first"

// Key identifies one cached page.
type Key struct {
	// List names the paginated list, e.g. "orders:open".
	List string

	// Cursor is the cursor that requested the page, empty for the first page.
	Cursor string
}

// String returns the Redis key.
//
// Example:
//
//	pagetracker:orders:page:first
func (k Key) String() string {
	cursor := k.Cursor
	if cursor == "" {
		cursor = firstPage
	}
	return strings.Join([]string{keyPrefix, normalizeList(k.List), "page", cursor}, ":")
}

// IsFirst reports whether k addresses the first page of its list.
func (k Key) IsFirst() bool {
	return k.Cursor == ""
}

// IndexKey returns the key of the set that records every page key of list.
func IndexKey(list string) string {
	return strings.Join([]string{keyPrefix, normalizeList(list), "index"}, ":")
}

func normalizeList(list string) string {
	list = strings.TrimSpace(list)
	if list == "" {
		return "default"
	}
	return list
}
