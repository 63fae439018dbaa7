package profile

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/export"
	"github.com/helpinghands/console/internal/listview"
	"github.com/helpinghands/console/internal/metrics"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/response"
)

const eventsList = "my_events"

// SignupsConfig lists a user's signups: upcoming events first, search over the event.
func SignupsConfig(pageSize int, now time.Time) listview.Config[models.Signup] {
	when := func(s models.Signup) string {
		if s.Event.IsUpcoming(now) {
			return "upcoming"
		}
		return "past"
	}
	return listview.Config[models.Signup]{
		Search: []func(models.Signup) string{
			func(s models.Signup) string { return s.Event.Title },
			func(s models.Signup) string { return s.Event.Location },
		},
		Filters: map[string]func(models.Signup) string{
			"status": func(s models.Signup) string { return s.Status },
			"when":   when,
		},
		Columns: map[string]listview.CompareFunc[models.Signup]{
			"title":       listview.Text(func(s models.Signup) string { return s.Event.Title }),
			"status":      listview.Text(func(s models.Signup) string { return s.Status }),
			"hours":       listview.Number(func(s models.Signup) float64 { return s.Hours }),
			"signup_date": listview.Time(func(s models.Signup) time.Time { return s.SignupDate }),
			"event_date":  listview.UpcomingFirst(func(s models.Signup) time.Time { return s.Event.StartsAt }, func() time.Time { return now }),
		},
		SortColumn: "event_date",
		PageSize:   pageSize,
	}
}

// Events handles GET /profile/events with the same query actions as the admin lists.
func (h *Handler) Events(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.loginRequired(c)
		return
	}
	ctx := middleware.Backend(c)
	signups, err := h.api.ListUserSignups(ctx, userID)
	if err != nil {
		backendError(c, err)
		return
	}

	v := listview.New(SignupsConfig(h.opts.PageSize, h.now()))
	var state listview.State
	var found bool
	if c.Request.URL.Query().Has("reset") {
		err = h.views.Reset(ctx, userID, eventsList)
	} else {
		found, err = h.views.Load(ctx, userID, eventsList, &state)
	}
	if err != nil {
		h.logger.Warn("load view state failed", zap.Int64("user_id", userID), zap.String("list", eventsList), zap.Error(err))
	}
	if found {
		v.Restore(state, signups)
	} else {
		v.Load(signups)
	}
	v.ApplyQuery(c.Request.URL.Query())
	if err := h.views.Save(ctx, userID, eventsList, v.State()); err != nil {
		h.logger.Warn("save view state failed", zap.Int64("user_id", userID), zap.String("list", eventsList), zap.Error(err))
	}
	response.OK(c, v.Snapshot())
}

// volunteerMetrics fetches userID's metrics. When the backend has no monthly series
// they are computed from the user's signups instead. The series is always
// export.SeriesMonths long.
func (h *Handler) volunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error) {
	now := h.now()
	m, err := h.api.VolunteerMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(m.MonthlyHours) == 0 {
		signups, err := h.api.ListUserSignups(ctx, userID)
		if err != nil {
			return nil, err
		}
		names := map[int64]string{}
		if orgs, err := h.api.ListOrganizations(ctx); err == nil {
			for _, o := range orgs {
				names[o.ID] = o.Name
			}
		} else {
			h.logger.Warn("list organizations failed", zap.Error(err))
		}
		computed := metrics.FromSignups(userID, signups, names, now, export.SeriesMonths)
		m = &computed
	}
	m.MonthlyHours = metrics.Bucket(m.MonthlyHours, now, export.SeriesMonths)
	return m, nil
}

// Metrics handles GET /profile/metrics.
func (h *Handler) Metrics(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.loginRequired(c)
		return
	}
	m, err := h.volunteerMetrics(middleware.Backend(c), userID)
	if err != nil {
		backendError(c, err)
		return
	}
	response.OK(c, m)
}

// ExportRequest is the body for POST /profile/exports.
type ExportRequest struct {
	Format string `json:"format" binding:"omitempty,oneof=pdf xlsx"`
	Async  bool   `json:"async"`
}

// Export handles POST /profile/exports: the user's own volunteer report.
func (h *Handler) Export(c *gin.Context) {
	var body ExportRequest
	if !response.BindJSON(c, &body) {
		return
	}
	if body.Format == "" {
		body.Format = models.FormatPDF
	}
	u := h.current(c)
	if u == nil {
		return
	}
	req := reports.Request{
		Kind:        export.KindVolunteer,
		Format:      body.Format,
		UserID:      u.ID,
		Email:       u.Email,
		Role:        middleware.Role(c),
		SubjectName: u.Name,
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := middleware.Backend(c)
	if body.Async {
		rec, err := h.reports.Enqueue(ctx, req)
		if err != nil {
			h.reportError(c, err)
			return
		}
		response.Accepted(c, rec)
		return
	}
	file, err := h.reports.Export(ctx, req)
	if err != nil {
		h.reportError(c, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Data)
}

// Certificate handles GET /profile/certificate. Only users with attended events get one.
func (h *Handler) Certificate(c *gin.Context) {
	u := h.current(c)
	if u == nil {
		return
	}
	ctx := middleware.Backend(c)
	m, err := h.volunteerMetrics(ctx, u.ID)
	if err != nil {
		backendError(c, err)
		return
	}
	if m.EventsAttended == 0 {
		response.Conflict(c, "a certificate is available after your first attended event")
		return
	}
	cert := export.Certificate{
		UserID:         u.ID,
		Name:           u.Name,
		Hours:          m.TotalHours,
		EventsAttended: m.EventsAttended,
		IssuedAt:       h.now(),
	}
	file, err := h.reports.Certificate(ctx, cert)
	if err != nil {
		h.reportError(c, err)
		return
	}
	c.Header("X-Certificate-Code", cert.Code())
	response.File(c, file.Name, file.ContentType, file.Data)
}

func (h *Handler) reportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reports.ErrUnavailable):
		response.ServiceUnavailable(c, "background exports are not available")
	case errors.Is(err, export.ErrGeneration):
		h.logger.Error("profile export failed", zap.Error(err))
		response.Internal(c, export.ErrGeneration.Error())
	default:
		h.logger.Warn("profile export failed", zap.Error(err))
		backendError(c, err)
	}
}
