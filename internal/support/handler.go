// Package support serves the public contact form.
package support

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/cache"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/pkg/redis"
	"github.com/helpinghands/console/pkg/response"
	"github.com/helpinghands/console/pkg/validation"
)

// Backend submits support messages.
type Backend interface {
	CreateSupportMessage(ctx context.Context, m models.NewSupportMessage) (*models.SupportMessage, error)
}

// ChangeNotifier tells connected dashboards that a collection changed.
type ChangeNotifier interface {
	CollectionChanged(change realtime.CollectionChange)
}

// Handler handles support form submissions.
type Handler struct {
	api    Backend
	inbox  *cache.Collection[models.SupportMessage]
	hub    ChangeNotifier
	logger *zap.Logger
}

// NewHandler creates a support handler. hub may be nil.
func NewHandler(api Backend, store redis.JSONStore, hub ChangeNotifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		api:    api,
		inbox:  cache.NewCollection[models.SupportMessage](store, cache.SupportMessages, 0),
		hub:    hub,
		logger: logger,
	}
}

// Register mounts the form route on g. A token is optional.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("", h.Submit)
}

// Submit handles POST /support. Signed-in users have the message linked to their account.
func (h *Handler) Submit(c *gin.Context) {
	var body models.NewSupportMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	errs := validation.Errors{}
	msg := models.NewSupportMessage{
		Name:    errs.Check("name", validation.Text("name", body.Name, validation.MaxNameLength, true)),
		Email:   errs.Check("email", validation.Email(body.Email)),
		Subject: errs.Check("subject", validation.Text("subject", body.Subject, validation.MaxSubjectLength, true)),
		Message: errs.Check("message", validation.Text("message", body.Message, validation.MaxMessageLength, true)),
	}
	if !errs.Empty() {
		response.Invalid(c, errs)
		return
	}
	if id, ok := middleware.UserID(c); ok {
		msg.UserID = &id
	}

	ctx := middleware.Backend(c)
	created, err := h.api.CreateSupportMessage(ctx, msg)
	if err != nil {
		response.Error(c, apiclient.HTTPStatus(err), apiclient.UserMessage(err))
		return
	}
	if err := h.inbox.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate support inbox failed", zap.Error(err))
	}
	if h.hub != nil {
		h.hub.CollectionChanged(realtime.CollectionChange{
			Collection: cache.SupportMessages,
			Action:     "create",
			ID:         created.ID,
		})
	}
	h.logger.Info("support message received", zap.Int64("message_id", created.ID))
	response.Created(c, created)
}
