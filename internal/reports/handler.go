package reports

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/pkg/response"
)

// Handler handles export history and certificate verification endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a reports handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /reports?limit=. Returns the caller's exports, newest first.
func (h *Handler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, err := h.svc.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to load export history")
		return
	}
	response.OK(c, list)
}

// Download handles GET /reports/:id/download. Returns a presigned URL for a completed export.
func (h *Handler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	userID, _ := middleware.UserID(c)
	admin := middleware.Role(c) == string(models.RoleAdmin)

	url, rec, err := h.svc.DownloadURL(c.Request.Context(), id, userID, admin)
	switch {
	case errors.Is(err, ErrUnavailable):
		response.ServiceUnavailable(c, "report archive is not configured")
		return
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "export not found")
		return
	case err != nil:
		response.Internal(c, "failed to create download link")
		return
	}
	if url == "" {
		response.Conflict(c, "export is "+rec.Status)
		return
	}
	response.OK(c, gin.H{
		"url":        url,
		"filename":   rec.Filename,
		"expires_in": int(h.svc.presignExpire().Seconds()),
	})
}

// VerifyCertificate handles GET /certificates/:code. Public.
func (h *Handler) VerifyCertificate(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" || len(code) > 32 {
		response.BadRequest(c, "invalid certificate code")
		return
	}
	cert, err := h.svc.Verify(c.Request.Context(), code)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "certificate not found")
		return
	}
	if err != nil {
		response.Internal(c, "failed to verify certificate")
		return
	}
	response.OK(c, gin.H{
		"valid":           true,
		"code":            cert.Code,
		"recipient_name":  cert.RecipientName,
		"hours":           cert.Hours,
		"events_attended": cert.EventsAttended,
		"issued_on":       cert.IssuedOn.Format("2006-01-02"),
	})
}
