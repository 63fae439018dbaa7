package dashboard

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/auditlogs"
	"github.com/helpinghands/console/internal/export"
	"github.com/helpinghands/console/internal/metrics"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/notifications"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/response"
)

const auditList = "audit_logs"

// Metrics handles GET /admin/metrics. Monthly series always cover the last
// export.SeriesMonths months, zero-filled.
func (h *Handler) Metrics(c *gin.Context) {
	m, err := h.api.AdminMetrics(middleware.Backend(c))
	if err != nil {
		backendError(c, err)
		return
	}
	now := h.now()
	m.MonthlySignups = metrics.Bucket(m.MonthlySignups, now, export.SeriesMonths)
	m.MonthlyNewUsers = metrics.Bucket(m.MonthlyNewUsers, now, export.SeriesMonths)
	response.OK(c, m)
}

// AuditPage is the response of GET /admin/audit-logs.
type AuditPage struct {
	Items      []models.AuditLog `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Total      *int              `json:"total,omitempty"`
	HasMore    bool              `json:"has_more"`
	Filters    auditlogs.Filters `json:"filters"`
}

// AuditLogs handles GET /admin/audit-logs?search=&action=&entity_type=&actor_id=&page_size=&page=.
// The current page is fetched from the backend; the filters narrow that page only.
func (h *Handler) AuditLogs(c *gin.Context) {
	ctx := middleware.Backend(c)
	userID := h.userID(c)

	saved := auditlogs.State{PageSize: h.auditPageSize, Page: 1}
	if _, err := h.views.Load(ctx, userID, auditList, &saved); err != nil {
		h.logger.Warn("load audit view failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	next := foldAuditQuery(saved, c.Request.URL.Query())

	p := auditlogs.NewPager(h.api)
	p.Restore(next)
	if err := p.Load(ctx); err != nil {
		backendError(c, err)
		return
	}
	if next.Page != saved.Page && p.Beyond() {
		// Out-of-range page requests leave the saved page in place, or page 1 when
		// the filters or page size changed alongside.
		next.Page = saved.Page
		if next.Filters != saved.Filters || next.PageSize != saved.PageSize {
			next.Page = 1
		}
		p.Restore(next)
		if err := p.Load(ctx); err != nil {
			backendError(c, err)
			return
		}
	}

	if err := h.views.Save(ctx, userID, auditList, p.State()); err != nil {
		h.logger.Warn("save audit view failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	logs := p.Logs()
	if logs == nil {
		logs = []models.AuditLog{}
	}
	response.OK(c, AuditPage{
		Items:      logs,
		Page:       p.CurrentPage(),
		PageSize:   p.PageSize(),
		TotalPages: p.TotalPages(),
		Total:      p.Total(),
		HasMore:    p.HasMore(),
		Filters:    p.State().Filters,
	})
}

// foldAuditQuery applies the request's filters, page_size and page to the saved state.
// A changed filter or page size returns to page 1 unless a page is also requested.
func foldAuditQuery(s auditlogs.State, q url.Values) auditlogs.State {
	filters := s.Filters
	for key, dst := range map[string]*string{
		"search":      &filters.Search,
		"action":      &filters.Action,
		"entity_type": &filters.EntityType,
		"actor_id":    &filters.ActorID,
	} {
		if q.Has(key) {
			*dst = q.Get(key)
		}
	}
	if filters != s.Filters {
		s.Filters = filters
		s.Page = 1
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 && n != s.PageSize {
		s.PageSize = n
		s.Page = 1
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		s.Page = n
	}
	return s
}

// ExportRequest is the body for POST /admin/exports.
type ExportRequest struct {
	Kind           string `json:"kind" binding:"omitempty,oneof=admin organizer volunteer"`
	Format         string `json:"format" binding:"omitempty,oneof=pdf xlsx"`
	OrganizationID int64  `json:"organization_id"`
	UserID         int64  `json:"user_id"`
	Async          bool   `json:"async"`
}

// Export handles POST /admin/exports. Synchronous exports answer with the file;
// asynchronous ones answer 202 with the pending export record and the worker
// announces completion over the websocket.
func (h *Handler) Export(c *gin.Context) {
	var body ExportRequest
	if !response.BindJSON(c, &body) {
		return
	}
	if body.Kind == "" {
		body.Kind = export.KindAdmin
	}
	if body.Format == "" {
		body.Format = models.FormatPDF
	}
	ctx := middleware.Backend(c)
	req := reports.Request{
		Kind:   body.Kind,
		Format: body.Format,
		UserID: h.userID(c),
		Email:  c.GetString(middleware.ContextUserEmail),
		Role:   middleware.Role(c),
	}
	switch body.Kind {
	case export.KindOrganizer:
		req.SubjectID = body.OrganizationID
		if orgs, _, err := h.orgs.items(ctx); err == nil {
			for _, o := range orgs {
				if o.ID == body.OrganizationID {
					req.SubjectName = o.Name
				}
			}
		}
	case export.KindVolunteer:
		if body.UserID == 0 {
			response.BadRequest(c, "user_id is required for a volunteer report")
			return
		}
		req.SubjectID = body.UserID
		if users, _, err := h.users.items(ctx); err == nil {
			for _, u := range users {
				if u.ID == body.UserID {
					req.SubjectName = u.Name
				}
			}
		}
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if body.Async {
		rec, err := h.reports.Enqueue(ctx, req)
		if errors.Is(err, reports.ErrUnavailable) {
			response.ServiceUnavailable(c, "background exports are not available")
			return
		}
		if err != nil {
			h.logger.Error("enqueue export failed", zap.Error(err))
			response.Internal(c, "failed to schedule export")
			return
		}
		response.Accepted(c, rec)
		return
	}

	file, err := h.reports.Export(ctx, req)
	if err != nil {
		exportError(c, h.logger, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Data)
}

func exportError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, export.ErrGeneration) {
		logger.Error("export generation failed", zap.Error(err))
		response.Internal(c, export.ErrGeneration.Error())
		return
	}
	backendError(c, err)
}

// GenerateReminders handles POST /admin/notifications/reminders.
func (h *Handler) GenerateReminders(c *gin.Context) {
	res, err := h.notify.Reminders(middleware.Backend(c))
	if errors.Is(err, notifications.ErrBusy) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		backendError(c, err)
		return
	}
	response.OK(c, res)
}

// ProcessEmails handles POST /admin/notifications/process.
func (h *Handler) ProcessEmails(c *gin.Context) {
	res, err := h.notify.ProcessEmails(middleware.Backend(c))
	if errors.Is(err, notifications.ErrBusy) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		backendError(c, err)
		return
	}
	response.OK(c, res)
}

// NotificationRuns handles GET /admin/notifications/runs?limit=.
func (h *Handler) NotificationRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.notify.Runs(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list notification runs failed", zap.Error(err))
		response.Internal(c, "failed to load notification history")
		return
	}
	response.OK(c, runs)
}
