// Package pagination holds page arithmetic for the run table.
//
// All functions are pure; the current page travels in an explicit State
// value instead of living in shared state.
package pagination

import "errors"

// DefaultItemsPerPage is the page size used when none is configured.
const DefaultItemsPerPage = 10

// ErrInvalidPageSize is returned when a page size below 1 is supplied.
var ErrInvalidPageSize = errors.New("items per page must be at least 1")

// State is the caller-owned pagination position.
type State struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
}

// New returns a State on page 1 with the given page size.
func New(itemsPerPage int) (State, error) {
	if itemsPerPage < 1 {
		return State{}, ErrInvalidPageSize
	}
	return State{CurrentPage: 1, ItemsPerPage: itemsPerPage}, nil
}

// TotalPages returns ceil(n / perPage). An empty sequence has zero pages;
// page 1 is still a valid position on it (see Clamp).
func TotalPages(n, perPage int) int {
	if n <= 0 || perPage <= 0 {
		return 0
	}
	pages := n / perPage
	if n%perPage != 0 {
		pages++
	}
	return pages
}

// Clamp maps page into [1, max(1, totalPages)].
func Clamp(page, totalPages int) int {
	upper := max(1, totalPages)
	switch {
	case page < 1:
		return 1
	case page > upper:
		return upper
	default:
		return page
	}
}

// Paginate returns the items of page (1-based) as a sub-slice of items.
// It returns an empty slice, never an error, when the page lies outside the
// sequence or the sequence is empty. The result never exceeds perPage items.
func Paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 || page < 1 || len(items) == 0 {
		return items[:0:0]
	}
	// Bound page before multiplying so huge pages cannot overflow start.
	if page > TotalPages(len(items), perPage) {
		return items[:0:0]
	}
	start := (page - 1) * perPage
	end := start + min(perPage, len(items)-start)
	return items[start:end:end]
}

// Previous moves one page back, stopping at page 1.
func (s State) Previous(totalPages int) State {
	s.CurrentPage = Clamp(s.CurrentPage-1, totalPages)
	return s
}

// Next moves one page forward, stopping at the last page.
func (s State) Next(totalPages int) State {
	s.CurrentPage = Clamp(s.CurrentPage+1, totalPages)
	return s
}

// Select jumps to page, clamped into range.
func (s State) Select(page, totalPages int) State {
	s.CurrentPage = Clamp(page, totalPages)
	return s
}

// Normalize re-clamps the current page against totalPages. It is applied
// whenever the underlying sequence may have shrunk.
func (s State) Normalize(totalPages int) State {
	if s.ItemsPerPage < 1 {
		s.ItemsPerPage = DefaultItemsPerPage
	}
	s.CurrentPage = Clamp(s.CurrentPage, totalPages)
	return s
}

// Pages lists the page numbers 1..totalPages for numbered controls.
func Pages(totalPages int) []int {
	if totalPages <= 0 {
		return []int{}
	}
	out := make([]int, totalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
