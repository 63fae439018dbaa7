package listview

import (
	"net/url"
	"strconv"
	"strings"
)

// Snapshot is the rendered state of a View: the current page plus everything a list
// screen shows around it.
type Snapshot[T any] struct {
	Items      []T               `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	TotalItems int               `json:"total_items"`
	Search     string            `json:"search,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Sort       string            `json:"sort,omitempty"`
	Dir        Direction         `json:"dir,omitempty"`
}

// Snapshot renders the view.
func (v *View[T]) Snapshot() Snapshot[T] {
	items := v.paginated
	if items == nil {
		items = []T{}
	}
	s := v.State()
	return Snapshot[T]{
		Items:      items,
		Page:       v.page,
		PageSize:   v.pageSize,
		TotalPages: v.TotalPages(),
		TotalItems: len(v.filtered),
		Search:     s.Search,
		Filters:    s.Filters,
		Sort:       s.Sort,
		Dir:        s.Dir,
	}
}

// ApplyQuery performs the list actions carried by q in the order a user would:
//
//	search=<term>            change the search term
//	filter[<field>]=<value>  set (or, when empty, clear) a field filter
//	sort=<column>[&dir=...]  toggle or switch the sort column; dir=asc|desc forces a direction
//	page_size=<n>            change the page size
//	page=<n>                 go to a page
//
// A search or filter that equals the current one is not a change and keeps the page.
// Callers handle a reset key by starting from a fresh view.
func (v *View[T]) ApplyQuery(q url.Values) {
	if q.Has("search") {
		if term := strings.TrimSpace(q.Get("search")); term != v.search {
			v.SetSearch(term)
		}
	}
	for key, values := range q {
		field, ok := filterField(key)
		if !ok || len(values) == 0 {
			continue
		}
		if _, known := v.cfg.Filters[field]; !known {
			continue
		}
		value := strings.TrimSpace(values[0])
		if v.filters[field] != value {
			v.SetFilter(field, value)
		}
	}
	if col := q.Get("sort"); col != "" {
		raw := q.Get("dir")
		dir := Direction(strings.ToLower(raw))
		switch {
		case dir == Asc || dir == Desc:
			if col != v.sortCol {
				v.Sort(col)
			}
			if v.sortCol == col && v.sortDir != dir {
				v.Sort(col)
			}
		case raw == "":
			v.Sort(col)
		default:
			// A malformed dir may switch columns but never toggles the current one.
			if col != v.sortCol {
				v.Sort(col)
			}
		}
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n != v.pageSize {
		v.SetPageSize(n)
	}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		v.GoToPage(p)
	}
}

func filterField(key string) (string, bool) {
	if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	field := key[len("filter[") : len(key)-1]
	return field, field != ""
}
