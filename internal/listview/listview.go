// Package listview implements the filter -> sort -> paginate view model shared by every
// list screen. A View holds the full source collection plus the user's search, field
// filters, sort and page; the filtered and paginated slices are always recomputed from
// that state and never edited directly.
package listview

import (
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// DefaultPageSize is used when a Config leaves PageSize unset.
const DefaultPageSize = 10

// Config describes one entity's list: which fields search looks at, which fields can
// be filtered by exact value, and how each sortable column compares.
type Config[T any] struct {
	Search     []func(T) string
	Filters    map[string]func(T) string
	Columns    map[string]CompareFunc[T]
	SortColumn string
	SortDir    Direction
	PageSize   int
}

// State is the serializable user-chosen part of a View.
type State struct {
	Search   string            `json:"search,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
	Sort     string            `json:"sort,omitempty"`
	Dir      Direction         `json:"dir,omitempty"`
	PageSize int               `json:"page_size"`
	Page     int               `json:"page"`
}

// View is one list's view model.
type View[T any] struct {
	cfg       Config[T]
	source    []T
	search    string
	filters   map[string]string
	sortCol   string
	sortDir   Direction
	pageSize  int
	page      int
	filtered  []T
	paginated []T
}

// New creates an empty view using cfg's default sort and page size.
func New[T any](cfg Config[T]) *View[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.SortDir == "" {
		cfg.SortDir = Asc
	}
	return &View[T]{
		cfg:      cfg,
		filters:  make(map[string]string),
		sortCol:  cfg.SortColumn,
		sortDir:  cfg.SortDir,
		pageSize: cfg.PageSize,
		page:     1,
	}
}

// Load replaces the source collection and re-applies the current filters.
func (v *View[T]) Load(items []T) {
	v.source = items
	v.ApplyFilters()
}

// SetSearch changes the search term and re-applies filters.
func (v *View[T]) SetSearch(term string) {
	v.search = strings.TrimSpace(term)
	v.ApplyFilters()
}

// SetFilter sets an exact-match field filter; an empty value clears it. Unknown fields
// are ignored but still re-apply filters.
func (v *View[T]) SetFilter(field, value string) {
	if _, ok := v.cfg.Filters[field]; ok {
		if value == "" {
			delete(v.filters, field)
		} else {
			v.filters[field] = value
		}
	}
	v.ApplyFilters()
}

// ApplyFilters recomputes the filtered collection from the source, sorts it, resets to
// the first page and re-paginates.
func (v *View[T]) ApplyFilters() {
	v.filtered = v.filter()
	v.sortFiltered()
	v.page = 1
	v.paginate()
}

// Sort toggles the direction when column is already the sort column, otherwise it
// switches to column ascending. Filters are not re-applied and the page is kept.
func (v *View[T]) Sort(column string) {
	if _, ok := v.cfg.Columns[column]; !ok {
		return
	}
	if column == v.sortCol {
		v.sortDir = v.sortDir.flip()
	} else {
		v.sortCol = column
		v.sortDir = Asc
	}
	v.sortFiltered()
	v.paginate()
}

// SetPageSize changes the page size and returns to the first page. n < 1 is ignored.
func (v *View[T]) SetPageSize(n int) {
	if n < 1 {
		return
	}
	v.pageSize = n
	v.page = 1
	v.paginate()
}

// GoToPage moves to page p. It reports false and leaves the view unchanged when p is
// outside [1, TotalPages].
func (v *View[T]) GoToPage(p int) bool {
	if p < 1 || p > v.TotalPages() {
		return false
	}
	v.page = p
	v.paginate()
	return true
}

// TotalPages is never less than 1, so an empty list still shows one page.
func (v *View[T]) TotalPages() int {
	return totalPages(len(v.filtered), v.pageSize)
}

func totalPages(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Filtered returns the filtered, sorted collection.
func (v *View[T]) Filtered() []T { return v.filtered }

// Page returns the items on the current page.
func (v *View[T]) Page() []T { return v.paginated }

// CurrentPage returns the 1-based current page.
func (v *View[T]) CurrentPage() int { return v.page }

// PageSize returns the page size.
func (v *View[T]) PageSize() int { return v.pageSize }

// SortColumn returns the active sort column and direction.
func (v *View[T]) SortColumn() (string, Direction) { return v.sortCol, v.sortDir }

// State snapshots the user-chosen state.
func (v *View[T]) State() State {
	filters := make(map[string]string, len(v.filters))
	for k, val := range v.filters {
		filters[k] = val
	}
	return State{
		Search:   v.search,
		Filters:  filters,
		Sort:     v.sortCol,
		Dir:      v.sortDir,
		PageSize: v.pageSize,
		Page:     v.page,
	}
}

// Restore loads items and reinstates a previously saved state. Unlike ApplyFilters it
// keeps the saved page, clamped into [1, TotalPages].
func (v *View[T]) Restore(s State, items []T) {
	v.source = items
	v.search = s.Search
	v.filters = make(map[string]string)
	for k, val := range s.Filters {
		if _, ok := v.cfg.Filters[k]; ok && val != "" {
			v.filters[k] = val
		}
	}
	if _, ok := v.cfg.Columns[s.Sort]; ok {
		v.sortCol = s.Sort
		if s.Dir == Desc {
			v.sortDir = Desc
		} else {
			v.sortDir = Asc
		}
	}
	if s.PageSize > 0 {
		v.pageSize = s.PageSize
	}
	v.filtered = v.filter()
	v.sortFiltered()
	v.page = min(max(s.Page, 1), v.TotalPages())
	v.paginate()
}

func (v *View[T]) filter() []T {
	term := strings.ToLower(v.search)
	out := make([]T, 0, len(v.source))
	for _, item := range v.source {
		if term != "" && !v.matchesSearch(item, term) {
			continue
		}
		if !v.matchesFilters(item) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (v *View[T]) matchesSearch(item T, term string) bool {
	for _, field := range v.cfg.Search {
		if strings.Contains(strings.ToLower(field(item)), term) {
			return true
		}
	}
	return false
}

func (v *View[T]) matchesFilters(item T) bool {
	for field, want := range v.filters {
		if v.cfg.Filters[field](item) != want {
			return false
		}
	}
	return true
}

func (v *View[T]) sortFiltered() {
	cmp, ok := v.cfg.Columns[v.sortCol]
	if !ok {
		return
	}
	dir := v.sortDir
	slices.SortStableFunc(v.filtered, func(a, b T) int { return cmp(a, b, dir) })
}

func (v *View[T]) paginate() {
	start := (v.page - 1) * v.pageSize
	if start >= len(v.filtered) {
		v.paginated = []T{}
		return
	}
	end := min(start+v.pageSize, len(v.filtered))
	v.paginated = slices.Clone(v.filtered[start:end])
}
