// Package dashboard serves the admin dashboard: cached entity lists with per-user view
// state, the admin actions on them, audit logs, metrics, exports and notification triggers.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/cache"
	"github.com/helpinghands/console/internal/listview"
	"github.com/helpinghands/console/internal/loader"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/notifications"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/redis"
	"github.com/helpinghands/console/pkg/response"
)

// Backend is the part of the API client the dashboard uses.
type Backend interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, userID int64, role models.Role) error
	DeleteUser(ctx context.Context, userID int64) error
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	SetOrganizationStatus(ctx context.Context, orgID int64, change models.StatusChange) error
	ListEvents(ctx context.Context) ([]models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, name string) (*models.Tag, error)
	UpdateTag(ctx context.Context, tagID int64, name string) error
	DeleteTag(ctx context.Context, tagID int64) error
	ListSupportMessages(ctx context.Context) ([]models.SupportMessage, error)
	RespondToSupportMessage(ctx context.Context, messageID int64, response string) error
	AdminMetrics(ctx context.Context) (*models.AdminMetrics, error)
	AuditLogs(ctx context.Context, limit, offset int) (*models.AuditLogPage, error)
}

// ChangeNotifier tells connected dashboards that a collection changed.
type ChangeNotifier interface {
	CollectionChanged(change realtime.CollectionChange)
}

// Options holds dashboard settings.
type Options struct {
	PageSize        int
	AuditPageSize   int
	LoadConcurrency int
	CollectionTTL   time.Duration
	ViewStateTTL    time.Duration
}

// Handler handles admin dashboard endpoints.
type Handler struct {
	api     Backend
	barrier *loader.Barrier
	views   *cache.ViewStates

	users   *screen[models.User]
	orgs    *screen[models.Organization]
	events  *screen[models.Event]
	tags    *screen[models.Tag]
	support *screen[models.SupportMessage]

	auditPageSize int
	reports       *reports.Service
	notify        *notifications.Service
	hub           ChangeNotifier
	now           func() time.Time
	logger        *zap.Logger
}

// NewHandler creates an admin dashboard handler. hub may be nil.
func NewHandler(api Backend, store redis.JSONStore, reportSvc *reports.Service, notifySvc *notifications.Service, hub ChangeNotifier, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	views := cache.NewViewStates(store, opts.ViewStateTTL)
	h := &Handler{
		api:           api,
		barrier:       loader.NewBarrier(opts.LoadConcurrency, logger),
		views:         views,
		auditPageSize: opts.AuditPageSize,
		reports:       reportSvc,
		notify:        notifySvc,
		hub:           hub,
		now:           time.Now,
		logger:        logger,
	}
	h.users = &screen[models.User]{
		cache:  cache.NewCollection[models.User](store, cache.Users, opts.CollectionTTL),
		id:     func(u models.User) int64 { return u.ID },
		fetch:  api.ListUsers,
		config: func(time.Time) listview.Config[models.User] { return UsersConfig(opts.PageSize) },
		views:  views,
		logger: logger,
	}
	h.orgs = &screen[models.Organization]{
		cache:  cache.NewCollection[models.Organization](store, cache.Organizations, opts.CollectionTTL),
		id:     func(o models.Organization) int64 { return o.ID },
		fetch:  api.ListOrganizations,
		config: func(time.Time) listview.Config[models.Organization] { return OrganizationsConfig(opts.PageSize) },
		views:  views,
		logger: logger,
	}
	h.events = &screen[models.Event]{
		cache:  cache.NewCollection[models.Event](store, cache.Events, opts.CollectionTTL),
		id:     func(e models.Event) int64 { return e.ID },
		fetch:  api.ListEvents,
		config: func(now time.Time) listview.Config[models.Event] { return EventsConfig(opts.PageSize, now) },
		views:  views,
		logger: logger,
	}
	h.tags = &screen[models.Tag]{
		cache:  cache.NewCollection[models.Tag](store, cache.Tags, opts.CollectionTTL),
		id:     func(t models.Tag) int64 { return t.ID },
		fetch:  api.ListTags,
		config: func(time.Time) listview.Config[models.Tag] { return TagsConfig(opts.PageSize) },
		views:  views,
		logger: logger,
	}
	h.support = &screen[models.SupportMessage]{
		cache:  cache.NewCollection[models.SupportMessage](store, cache.SupportMessages, opts.CollectionTTL),
		id:     func(m models.SupportMessage) int64 { return m.ID },
		fetch:  api.ListSupportMessages,
		config: func(time.Time) listview.Config[models.SupportMessage] { return SupportConfig(opts.PageSize) },
		views:  views,
		logger: logger,
	}
	return h
}

// Register mounts the dashboard routes on g, which must already require the admin role.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/load", h.Load)
	g.GET("/load", h.LoadStatus)
	g.GET("/metrics", h.Metrics)

	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id/role", h.UpdateUserRole)
	g.DELETE("/users/:id", h.DeleteUser)

	g.GET("/organizations", h.ListOrganizations)
	g.PATCH("/organizations/:id/status", h.SetOrganizationStatus)

	g.GET("/events", h.ListEvents)
	g.DELETE("/events/:id", h.DeleteEvent)

	g.GET("/tags", h.ListTags)
	g.POST("/tags", h.CreateTag)
	g.PUT("/tags/:id", h.UpdateTag)
	g.DELETE("/tags/:id", h.DeleteTag)

	g.GET("/support-messages", h.ListSupportMessages)
	g.POST("/support-messages/:id/respond", h.RespondToSupportMessage)

	g.GET("/audit-logs", h.AuditLogs)

	g.POST("/exports", h.Export)
	g.POST("/notifications/reminders", h.GenerateReminders)
	g.POST("/notifications/process", h.ProcessEmails)
	g.GET("/notifications/runs", h.NotificationRuns)
}

// backendError answers with the status and message matching a failed backend call.
func backendError(c *gin.Context, err error) {
	response.Error(c, apiclient.HTTPStatus(err), apiclient.UserMessage(err))
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// Load handles POST /admin/load. Every collection is reloaded concurrently; a failed
// collection does not stop the others.
func (h *Handler) Load(c *gin.Context) {
	ctx := middleware.Backend(c)
	tasks := map[string]loader.Task{
		cache.Users:           h.users.reload,
		cache.Organizations:   h.orgs.reload,
		cache.Events:          h.events.reload,
		cache.Tags:            h.tags.reload,
		cache.SupportMessages: h.support.reload,
	}
	err := h.barrier.Run(ctx, tasks)
	if errors.Is(err, loader.ErrInProgress) {
		response.Conflict(c, "dashboard is already loading")
		return
	}
	failed := map[string]string{}
	var errs loader.Errors
	if errors.As(err, &errs) {
		for name, e := range errs {
			failed[name] = apiclient.UserMessage(e)
		}
		if len(errs) == len(tasks) {
			response.Error(c, http.StatusBadGateway, "Failed to load dashboard data.")
			return
		}
	}
	response.OK(c, gin.H{"loaded": len(tasks) - len(failed), "errors": failed})
}

// LoadStatus handles GET /admin/load and reports whether a load is running.
func (h *Handler) LoadStatus(c *gin.Context) {
	response.OK(c, gin.H{"loading": h.barrier.Loading()})
}

func (h *Handler) userID(c *gin.Context) int64 {
	id, _ := middleware.UserID(c)
	return id
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) { serveList(c, h, h.users) }

// ListOrganizations handles GET /admin/organizations.
func (h *Handler) ListOrganizations(c *gin.Context) { serveList(c, h, h.orgs) }

// ListEvents handles GET /admin/events.
func (h *Handler) ListEvents(c *gin.Context) { serveList(c, h, h.events) }

// ListTags handles GET /admin/tags.
func (h *Handler) ListTags(c *gin.Context) { serveList(c, h, h.tags) }

// ListSupportMessages handles GET /admin/support-messages.
func (h *Handler) ListSupportMessages(c *gin.Context) { serveList(c, h, h.support) }

func serveList[T any](c *gin.Context, h *Handler, s *screen[T]) {
	listing, err := s.list(middleware.Backend(c), h.userID(c), c.Request.URL.Query(), h.now())
	if err != nil {
		backendError(c, err)
		return
	}
	response.OK(c, listing)
}

// changed reloads the mutated collection and tells connected dashboards about it.
// When the reload fails a deleted item is dropped from the cached copy; any other
// change drops the cached copy so the next read refetches.
func changed[T any](c *gin.Context, h *Handler, s *screen[T], action string, id int64) {
	ctx := middleware.Backend(c)
	if err := s.reload(ctx); err != nil {
		h.logger.Warn("reload after change failed", zap.String("collection", s.cache.Name()), zap.Error(err))
		if action == "delete" {
			if err := s.drop(ctx, id); err != nil {
				h.logger.Warn("update cached collection failed", zap.String("collection", s.cache.Name()), zap.Error(err))
			}
		} else if err := s.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("invalidate collection failed", zap.String("collection", s.cache.Name()), zap.Error(err))
		}
	}
	if h.hub != nil {
		h.hub.CollectionChanged(realtime.CollectionChange{
			Collection: s.cache.Name(),
			Action:     action,
			ID:         id,
			ActorID:    h.userID(c),
		})
	}
}
