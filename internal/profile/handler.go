// Package profile serves the signed-in user's own pages: profile details, password
// change, their event signups, participation metrics, report export and certificate.
package profile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/cache"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/redis"
	"github.com/helpinghands/console/pkg/response"
	"github.com/helpinghands/console/pkg/validation"
)

// Backend is the part of the API client the profile pages use.
type Backend interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, p models.ProfileUpdate) (*models.User, error)
	VerifyPassword(ctx context.Context, userID int64, password string) (bool, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
	ListUserSignups(ctx context.Context, userID int64) ([]models.Signup, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
	VolunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error)
}

// Options holds profile settings.
type Options struct {
	PageSize         int
	LoginURL         string
	LoginRedirectSec int
	SessionTTL       time.Duration
	ViewStateTTL     time.Duration
}

// Handler handles the profile endpoints.
type Handler struct {
	api      Backend
	sessions *cache.Sessions
	views    *cache.ViewStates
	reports  *reports.Service
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

// NewHandler creates a profile handler.
func NewHandler(api Backend, store redis.JSONStore, reportSvc *reports.Service, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoginURL == "" {
		opts.LoginURL = "/login"
	}
	if opts.LoginRedirectSec <= 0 {
		opts.LoginRedirectSec = 3
	}
	return &Handler{
		api:      api,
		sessions: cache.NewSessions(store, opts.SessionTTL),
		views:    cache.NewViewStates(store, opts.ViewStateTTL),
		reports:  reportSvc,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// Register mounts the profile routes on g, which must already require a token.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("", h.Get)
	g.PUT("", h.Update)
	g.PUT("/password", h.ChangePassword)
	g.GET("/events", h.Events)
	g.GET("/metrics", h.Metrics)
	g.POST("/exports", h.Export)
	g.GET("/certificate", h.Certificate)
}

// loginRequired answers 401 and tells the browser to go to the login page after a
// short delay.
func (h *Handler) loginRequired(c *gin.Context) {
	c.Header("Refresh", fmt.Sprintf("%d; url=%s", h.opts.LoginRedirectSec, h.opts.LoginURL))
	response.Unauthorized(c, "please log in to view your profile")
}

// current resolves the signed-in user. The backend copy wins and is remembered; when the
// backend cannot be reached the remembered copy is used. It writes the response and
// returns nil when there is no usable user.
func (h *Handler) current(c *gin.Context) *models.User {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.loginRequired(c)
		return nil
	}
	ctx := middleware.Backend(c)
	u, err := h.api.GetUser(ctx, userID)
	if err == nil {
		if err := h.sessions.Save(ctx, u); err != nil {
			h.logger.Warn("save session user failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return u
	}
	switch apiclient.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusNotFound:
		if err := h.sessions.Delete(ctx, userID); err != nil {
			h.logger.Warn("drop session user failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		h.loginRequired(c)
		return nil
	}
	h.logger.Warn("fetch current user failed, using stored copy", zap.Int64("user_id", userID), zap.Error(err))
	stored, serr := h.sessions.Get(ctx, userID)
	if serr != nil {
		h.logger.Warn("read session user failed", zap.Int64("user_id", userID), zap.Error(serr))
	}
	if stored == nil {
		backendError(c, err)
		return nil
	}
	return stored
}

func backendError(c *gin.Context, err error) {
	response.Error(c, apiclient.HTTPStatus(err), apiclient.UserMessage(err))
}

// Get handles GET /profile.
func (h *Handler) Get(c *gin.Context) {
	u := h.current(c)
	if u == nil {
		return
	}
	response.OK(c, u)
}

// Update handles PUT /profile. The stored copy is updated before the backend call and
// rolled back when the call fails.
func (h *Handler) Update(c *gin.Context) {
	var body models.ProfileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	errs := validation.Errors{}
	update := models.ProfileUpdate{
		Name:  errs.Check("name", validation.Text("name", body.Name, validation.MaxNameLength, true)),
		Email: errs.Check("email", validation.Email(body.Email)),
		Phone: errs.Check("phone", validation.Phone(body.Phone, false)),
	}
	if !errs.Empty() {
		response.Invalid(c, errs)
		return
	}
	prev := h.current(c)
	if prev == nil {
		return
	}
	ctx := middleware.Backend(c)

	optimistic := *prev
	optimistic.Name, optimistic.Email, optimistic.Phone = update.Name, update.Email, update.Phone
	if err := h.sessions.Save(ctx, &optimistic); err != nil {
		h.logger.Warn("save session user failed", zap.Int64("user_id", prev.ID), zap.Error(err))
	}

	saved, err := h.api.UpdateProfile(ctx, prev.ID, update)
	if err != nil {
		if err := h.sessions.Save(ctx, prev); err != nil {
			h.logger.Warn("restore session user failed", zap.Int64("user_id", prev.ID), zap.Error(err))
		}
		backendError(c, err)
		return
	}
	if saved == nil {
		saved = &optimistic
	}
	if err := h.sessions.Save(ctx, saved); err != nil {
		h.logger.Warn("save session user failed", zap.Int64("user_id", saved.ID), zap.Error(err))
	}
	response.OK(c, saved)
}

// PasswordRequest is the body for PUT /profile/password.
type PasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword handles PUT /profile/password. The current password is verified with
// the backend before the change is sent.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.loginRequired(c)
		return
	}
	var body PasswordRequest
	if !response.BindJSON(c, &body) {
		return
	}
	errs := validation.Errors{}
	next := errs.Check("new_password", validation.Password(body.NewPassword))
	if _, bad := errs["new_password"]; !bad && body.NewPassword == body.CurrentPassword {
		errs["new_password"] = "new password must differ from the current one"
	}
	if !errs.Empty() {
		response.Invalid(c, errs)
		return
	}

	ctx := middleware.Backend(c)
	valid, err := h.api.VerifyPassword(ctx, userID, body.CurrentPassword)
	if err != nil {
		backendError(c, err)
		return
	}
	if !valid {
		response.Invalid(c, map[string]string{"current_password": "current password is incorrect"})
		return
	}
	if err := h.api.ChangePassword(ctx, userID, body.CurrentPassword, next); err != nil {
		backendError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}
