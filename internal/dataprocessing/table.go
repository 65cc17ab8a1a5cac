package dataprocessing

import (
	"sort"
	"strings"
	"time"
)

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultPageSize is used when a query carries no page size
const DefaultPageSize = 10

// PageSizes are the page sizes offered to clients
var PageSizes = []int{10, 25, 50, 100}

// SortSpec is the single active sort
type SortSpec struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Toggle returns the sort after a click on column: the same column flips
// direction, a new column starts ascending.
func (s SortSpec) Toggle(column string) SortSpec {
	if s.Column == column {
		if s.Direction == SortAsc {
			return SortSpec{Column: column, Direction: SortDesc}
		}
		return SortSpec{Column: column, Direction: SortAsc}
	}
	return SortSpec{Column: column, Direction: SortAsc}
}

// Descending reports whether the sort runs high to low
func (s SortSpec) Descending() bool {
	return strings.EqualFold(s.Direction, SortDesc)
}

// TableQuery is the declarative table state sent by clients
type TableQuery struct {
	Filters   FilterSet `json:"filters,omitempty"`
	Search    string    `json:"search,omitempty"`
	Sort      *SortSpec `json:"sort,omitempty"`
	PageIndex int       `json:"page_index"`
	PageSize  int       `json:"page_size"`
}

// Page is one visible slice of the filtered and sorted rows
type Page struct {
	Rows               []Row `json:"rows"`
	TotalFilteredCount int   `json:"total_filtered_count"`
	PageCount          int   `json:"page_count"`
	PageIndex          int   `json:"page_index"`
	PageSize           int   `json:"page_size"`
}

// VisiblePage runs column filters, global search, sort and pagination in
// that order. The page index is clamped into range, so every query yields a
// page.
func VisiblePage(rows []Row, q TableQuery, c Classification) Page {
	filtered := ApplyQuery(rows, q, c)
	return Paginate(filtered, q.PageIndex, q.PageSize)
}

// ApplyQuery filters, searches and sorts rows without paginating. Exports use
// it to write every matching row.
func ApplyQuery(rows []Row, q TableQuery, c Classification) []Row {
	m := newMatcher(c)
	out := make([]Row, 0, len(rows))
	needle := ""
	if q.Search != "" {
		needle = m.folded(q.Search)
	}
	for _, row := range rows {
		if len(q.Filters) > 0 && !m.matchRow(row, q.Filters) {
			continue
		}
		if needle != "" && !m.matchSearch(row, needle) {
			continue
		}
		out = append(out, row)
	}
	if q.Sort != nil && q.Sort.Column != "" {
		sortRows(m, out, *q.Sort)
	}
	return out
}

// FilterRows applies column filters only
func FilterRows(rows []Row, fs FilterSet, c Classification) []Row {
	return ApplyQuery(rows, TableQuery{Filters: fs}, c)
}

// SortRows returns a stably sorted copy of rows
func SortRows(rows []Row, s SortSpec, c Classification) []Row {
	out := append([]Row(nil), rows...)
	if s.Column != "" {
		sortRows(newMatcher(c), out, s)
	}
	return out
}

func sortRows(m *matcher, rows []Row, s SortSpec) {
	desc := s.Descending()
	cmp := m.comparator(s.Column)
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return cmp(rows[j], rows[i]) < 0
		}
		return cmp(rows[i], rows[j]) < 0
	})
}

// comparator orders two rows on column using the column kind. Non-numeric
// cells sort as 0 and unparsable dates as the zero time.
func (m *matcher) comparator(column string) func(a, b Row) int {
	switch m.c.KindOf(column) {
	case ColumnNumeric:
		return func(a, b Row) int {
			x, _ := a.Get(column).Float()
			y, _ := b.Get(column).Float()
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case ColumnDate:
		return func(a, b Row) int {
			x, _ := a.Get(column).Time()
			y, _ := b.Get(column).Time()
			return compareTime(x, y)
		}
	default:
		return func(a, b Row) int {
			return strings.Compare(m.folded(a.Get(column).String()), m.folded(b.Get(column).String()))
		}
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// Paginate slices rows into a page. A page size below one uses
// DefaultPageSize and the index is clamped to the last page.
func Paginate(rows []Row, pageIndex, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(rows)
	pageCount := (total + pageSize - 1) / pageSize
	pageIndex = ClampPageIndex(pageIndex, pageCount)

	start := pageIndex * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	page := make([]Row, end-start)
	copy(page, rows[start:end])

	return Page{
		Rows:               page,
		TotalFilteredCount: total,
		PageCount:          pageCount,
		PageIndex:          pageIndex,
		PageSize:           pageSize,
	}
}

// ClampPageIndex forces index into [0, pageCount-1], or 0 when there are no
// pages
func ClampPageIndex(index, pageCount int) int {
	if pageCount <= 0 || index < 0 {
		return 0
	}
	if index > pageCount-1 {
		return pageCount - 1
	}
	return index
}
