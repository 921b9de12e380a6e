package chat

import (
	"fmt"
	"strings"
)

// SortDirection orders keyset pages by id.
type SortDirection string

const (
	// SortLatest pages newest-first (descending id).
	SortLatest SortDirection = "LATEST"
	// SortOldest pages oldest-first (ascending id).
	SortOldest SortDirection = "OLDEST"
)

// ParseSortDirection parses a query-string sort value. Empty means LATEST.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(SortLatest):
		return SortLatest, nil
	case string(SortOldest):
		return SortOldest, nil
	default:
		return "", fmt.Errorf("invalid sort direction: %q", s)
	}
}

// PageRequest is a keyset pagination request.
//
// Cursor is the id of the last row of the previous page; nil fetches the
// first page. The query predicate is id < cursor for LATEST and id > cursor
// for OLDEST.
type PageRequest struct {
	Cursor    *int64
	Size      int
	Direction SortDirection
}

// Normalize clamps Size into [1, maxSize] and defaults the direction.
func (r PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if r.Size <= 0 {
		r.Size = defaultSize
	}
	if r.Size > maxSize {
		r.Size = maxSize
	}
	if r.Direction != SortLatest && r.Direction != SortOldest {
		r.Direction = SortLatest
	}
	return r
}

// FetchLimit is the row count a store should fetch: one extra row flags the
// presence of a next page without a second query.
func (r PageRequest) FetchLimit() int {
	return r.Size + 1
}

// Page is one keyset page. NextCursor is nil on the final page.
type Page[T any] struct {
	Items      []T
	HasNext    bool
	NextCursor *int64
}

// BuildPage turns up-to-(size+1) ordered rows into a Page.
//
// This is the single pagination algorithm shared by the thread list and the
// per-thread message list; only the row source differs. The (size+1)th row is
// discarded from the result but its presence sets HasNext; the new cursor is
// the id of the last row actually returned.
func BuildPage[T any](rows []T, size int, id func(T) int64) Page[T] {
	if size <= 0 {
		return Page[T]{Items: []T{}}
	}

	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}

	p := Page[T]{Items: rows, HasNext: hasNext}
	if hasNext && len(rows) > 0 {
		last := id(rows[len(rows)-1])
		p.NextCursor = &last
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}
