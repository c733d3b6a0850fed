// Package paging slices ordered lists into fixed-size navigable windows.
package paging

import "github.com/m3rciful/geopal/internal/failure"

// PageSize is the number of entries per window.
const PageSize = 5

// Page is one rendered window. Next and Prev hold the start index of the
// adjacent windows, or nil when there is none.
type Page[T any] struct {
	Entries []T
	Start   int
	Total   int
	Next    *int
	Prev    *int
}

// Render returns the window of list beginning at start. start must address an
// existing entry; out-of-range requests are rejected, not clamped.
func Render[T any](list []T, start int) (Page[T], error) {
	n := len(list)
	if start < 0 || start >= n {
		return Page[T]{}, failure.New(failure.PaginationIndexOutOfRange,
			"start %d outside list of %d entries", start, n)
	}

	last := min(n-1, start+PageSize-1)
	page := Page[T]{
		Entries: list[start : last+1],
		Start:   start,
		Total:   n,
	}
	if last < n-1 {
		next := min(n-1, last+1)
		page.Next = &next
	}
	if start >= PageSize {
		prev := max(0, start-PageSize)
		page.Prev = &prev
	}
	return page, nil
}
