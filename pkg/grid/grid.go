// Package grid describes sectioned list views (tables, collections) in the
// terms a pagination tracker needs: positions and item counts.
package grid

import "fmt"

// Position addresses a row inside a section. Positions order by section
// first, then by row.
type Position struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

// Origin is the first row of the first section.
var Origin = Position{}

// At is shorthand for Position{Section: section, Row: row}.
func At(section, row int) Position {
	return Position{Section: section, Row: row}
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to or
// after other.
func (p Position) Compare(other Position) int {
	switch {
	case p.Section < other.Section:
		return -1
	case p.Section > other.Section:
		return 1
	case p.Row < other.Row:
		return -1
	case p.Row > other.Row:
		return 1
	default:
		return 0
	}
}

// After reports whether p is strictly after other.
func (p Position) After(other Position) bool {
	return p.Compare(other) > 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d/%d", p.Section, p.Row)
}

// Sections is implemented by views that can enumerate their sections.
type Sections interface {
	NumberOfSections() int
	NumberOfItems(section int) int
}

// Counter reports how many items are laid out before a position.
type Counter interface {
	CountItemsBefore(p Position) int
}

// CounterFunc adapts a function to Counter.
type CounterFunc func(p Position) int

// CountItemsBefore calls f(p).
func (f CounterFunc) CountItemsBefore(p Position) int {
	return f(p)
}

// CountItemsBefore sums the items of every section before p.Section and adds
// p.Row. A view without sections counts as empty.
func CountItemsBefore(s Sections, p Position) int {
	if s.NumberOfSections() <= 0 {
		return 0
	}

	count := 0
	for section := 0; section < p.Section; section++ {
		count += s.NumberOfItems(section)
	}
	return count + p.Row
}

// TotalItems sums the items of all sections.
func TotalItems(s Sections) int {
	total := 0
	for section := 0; section < s.NumberOfSections(); section++ {
		total += s.NumberOfItems(section)
	}
	return total
}

// Adapt turns a Sections view into a Counter.
func Adapt(s Sections) Counter {
	return sectioned{s}
}

type sectioned struct {
	Sections
}

func (s sectioned) CountItemsBefore(p Position) int {
	return CountItemsBefore(s.Sections, p)
}

// Static is a fixed layout where element i is the item count of section i.
type Static []int

// NumberOfSections implements Sections.
func (s Static) NumberOfSections() int {
	return len(s)
}

// NumberOfItems implements Sections. Out-of-range sections are empty.
func (s Static) NumberOfItems(section int) int {
	if section < 0 || section >= len(s) {
		return 0
	}
	return s[section]
}

// CountItemsBefore implements Counter.
func (s Static) CountItemsBefore(p Position) int {
	return CountItemsBefore(s, p)
}
