// Package auditlogs implements the server-paginated audit log view. Unlike the other
// lists, pages are fetched from the backend by limit/offset and the search/action/entity/
// actor filters only narrow the page that is currently loaded.
package auditlogs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/helpinghands/console/internal/models"
)

// DefaultPageSize is the limit used until the user picks another.
const DefaultPageSize = 25

// Fetcher loads one page of audit logs from the backend.
type Fetcher interface {
	AuditLogs(ctx context.Context, limit, offset int) (*models.AuditLogPage, error)
}

// Filters narrow the loaded page. Empty fields match everything.
type Filters struct {
	Search     string `json:"search,omitempty"`
	Action     string `json:"action,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
}

// State is the serializable part of a Pager.
type State struct {
	Filters  Filters `json:"filters"`
	PageSize int     `json:"page_size"`
	Page     int     `json:"page"`
}

// Pager is one user's audit log view.
type Pager struct {
	fetcher  Fetcher
	filters  Filters
	pageSize int
	page     int
	total    *int
	hasMore  bool
	loaded   []models.AuditLog
	filtered []models.AuditLog
}

// NewPager creates a pager positioned on page 1. Nothing is fetched until Load.
func NewPager(f Fetcher) *Pager {
	return &Pager{fetcher: f, pageSize: DefaultPageSize, page: 1}
}

// Restore reinstates saved state without fetching.
func (p *Pager) Restore(s State) {
	p.filters = s.Filters
	if s.PageSize > 0 {
		p.pageSize = s.PageSize
	}
	if s.Page > 0 {
		p.page = s.Page
	}
}

// State snapshots the pager.
func (p *Pager) State() State {
	return State{Filters: p.filters, PageSize: p.pageSize, Page: p.page}
}

// Load fetches the current page from the backend and re-applies the filters to it.
func (p *Pager) Load(ctx context.Context) error {
	page, err := p.fetcher.AuditLogs(ctx, p.pageSize, (p.page-1)*p.pageSize)
	if err != nil {
		return fmt.Errorf("fetch audit logs: %w", err)
	}
	p.loaded = page.Logs
	p.total = page.Pagination.Total
	p.hasMore = page.Pagination.HasMore
	p.applyFilters()
	return nil
}

// SetFilters replaces the filters. The page returns to 1, refetching when it was elsewhere;
// otherwise the filters are applied to the already-loaded page.
func (p *Pager) SetFilters(ctx context.Context, f Filters) error {
	p.filters = f
	if p.page != 1 {
		p.page = 1
		return p.Load(ctx)
	}
	p.applyFilters()
	return nil
}

// SetPageSize changes the limit, returns to page 1 and refetches. n < 1 is ignored.
func (p *Pager) SetPageSize(ctx context.Context, n int) error {
	if n < 1 {
		return nil
	}
	p.pageSize = n
	p.page = 1
	return p.Load(ctx)
}

// GoToPage fetches page n. Out-of-range pages are a no-op; when the server has not
// reported a total, moving one page past the last known page is allowed while the
// server says there are more.
func (p *Pager) GoToPage(ctx context.Context, n int) (bool, error) {
	last := p.TotalPages()
	if p.total == nil && p.hasMore {
		last = p.page + 1
	}
	if n < 1 || n > last {
		return false, nil
	}
	p.page = n
	return true, p.Load(ctx)
}

// TotalPages uses the server total when reported, else the filtered count of the
// loaded page. Never less than 1.
func (p *Pager) TotalPages() int {
	n := len(p.filtered)
	if p.total != nil {
		n = *p.total
	}
	pages := (n + p.pageSize - 1) / p.pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Beyond reports whether the loaded page lies past the last page the server knows of.
func (p *Pager) Beyond() bool {
	return p.page > 1 && len(p.loaded) == 0 && p.page > p.TotalPages()
}

// Total is the server-reported total, if any.
func (p *Pager) Total() *int { return p.total }

// HasMore reports the server's has-more flag for the loaded page.
func (p *Pager) HasMore() bool { return p.hasMore }

// CurrentPage returns the 1-based page.
func (p *Pager) CurrentPage() int { return p.page }

// PageSize returns the limit.
func (p *Pager) PageSize() int { return p.pageSize }

// Logs returns the loaded page narrowed by the filters.
func (p *Pager) Logs() []models.AuditLog { return p.filtered }

func (p *Pager) applyFilters() {
	term := strings.ToLower(strings.TrimSpace(p.filters.Search))
	out := make([]models.AuditLog, 0, len(p.loaded))
	for _, l := range p.loaded {
		if p.filters.Action != "" && !strings.EqualFold(l.Action, p.filters.Action) {
			continue
		}
		if p.filters.EntityType != "" && !strings.EqualFold(l.EntityType, p.filters.EntityType) {
			continue
		}
		if p.filters.ActorID != "" && actor(l) != p.filters.ActorID {
			continue
		}
		if term != "" && !matches(l, term) {
			continue
		}
		out = append(out, l)
	}
	p.filtered = out
}

func actor(l models.AuditLog) string {
	if l.ActorUserID == nil {
		return ""
	}
	return strconv.FormatInt(*l.ActorUserID, 10)
}

func matches(l models.AuditLog, term string) bool {
	fields := []string{l.Action, l.EntityType, actor(l), string(l.Details)}
	if l.EntityID != nil {
		fields = append(fields, *l.EntityID)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
