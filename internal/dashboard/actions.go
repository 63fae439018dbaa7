package dashboard

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/pkg/response"
	"github.com/helpinghands/console/pkg/validation"
)

// MaxReasonLength bounds a rejection reason.
const MaxReasonLength = 500

// StatusRequest is the body for PATCH /admin/organizations/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved pending rejected"`
	Reason string `json:"reason"`
}

// SetOrganizationStatus handles PATCH /admin/organizations/:id/status. The reason is
// only sent with a rejection.
func (h *Handler) SetOrganizationStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body StatusRequest
	if !response.BindJSON(c, &body) {
		return
	}
	errs := validation.Errors{}
	reason := errs.Check("reason", validation.Text("reason", body.Reason, MaxReasonLength, false))
	if !errs.Empty() {
		response.Invalid(c, errs)
		return
	}
	change := models.StatusChange{Status: models.ApprovalStatus(body.Status)}
	if change.Status == models.ApprovalRejected {
		change.Reason = reason
	}
	if err := h.api.SetOrganizationStatus(middleware.Backend(c), id, change); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.orgs, "status", id)
	response.OK(c, gin.H{"id": id, "status": change.Status})
}

// RoleRequest is the body for PATCH /admin/users/:id/role.
type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=volunteer organizer admin"`
}

// UpdateUserRole handles PATCH /admin/users/:id/role.
func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body RoleRequest
	if !response.BindJSON(c, &body) {
		return
	}
	role := models.Role(body.Role)
	if err := h.api.UpdateUserRole(middleware.Backend(c), id, role); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.users, "role", id)
	response.OK(c, gin.H{"id": id, "role": role})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteUser(middleware.Backend(c), id); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.users, "delete", id)
	response.NoContent(c)
}

// DeleteEvent handles DELETE /admin/events/:id.
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteEvent(middleware.Backend(c), id); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.events, "delete", id)
	response.NoContent(c)
}

// TagRequest is the body for tag create and update.
type TagRequest struct {
	Name string `json:"name" binding:"required"`
}

// tagName validates the body's name and rejects a name already used by another tag.
func (h *Handler) tagName(c *gin.Context, exceptID int64) (string, bool) {
	var body TagRequest
	if !response.BindJSON(c, &body) {
		return "", false
	}
	r := validation.Text("tag name", body.Name, validation.MaxTagLength, true)
	if !r.IsValid {
		response.BadRequest(c, r.Error)
		return "", false
	}
	tags, _, err := h.tags.items(middleware.Backend(c))
	if err != nil {
		backendError(c, err)
		return "", false
	}
	for _, t := range tags {
		if t.ID != exceptID && strings.EqualFold(t.Name, r.Sanitized) {
			response.Conflict(c, "a tag with this name already exists")
			return "", false
		}
	}
	return r.Sanitized, true
}

// CreateTag handles POST /admin/tags.
func (h *Handler) CreateTag(c *gin.Context) {
	name, ok := h.tagName(c, 0)
	if !ok {
		return
	}
	ctx := middleware.Backend(c)
	tag, err := h.api.CreateTag(ctx, name)
	if err != nil {
		backendError(c, err)
		return
	}
	if tag == nil {
		// The backend did not echo the tag; find it in the reloaded collection.
		changed(c, h, h.tags, "create", 0)
		tag = &models.Tag{Name: name}
		if tags, _, err := h.tags.items(ctx); err == nil {
			for _, t := range tags {
				if strings.EqualFold(t.Name, name) {
					tag = &t
					break
				}
			}
		}
		response.Created(c, tag)
		return
	}
	changed(c, h, h.tags, "create", tag.ID)
	response.Created(c, tag)
}

// UpdateTag handles PUT /admin/tags/:id.
func (h *Handler) UpdateTag(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	name, ok := h.tagName(c, id)
	if !ok {
		return
	}
	if err := h.api.UpdateTag(middleware.Backend(c), id, name); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.tags, "update", id)
	response.OK(c, models.Tag{ID: id, Name: name})
}

// DeleteTag handles DELETE /admin/tags/:id.
func (h *Handler) DeleteTag(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.api.DeleteTag(middleware.Backend(c), id); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.tags, "delete", id)
	response.NoContent(c)
}

// RespondRequest is the body for POST /admin/support-messages/:id/respond.
type RespondRequest struct {
	Response string `json:"response" binding:"required"`
}

// RespondToSupportMessage handles POST /admin/support-messages/:id/respond. The backend
// marks the message resolved.
func (h *Handler) RespondToSupportMessage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var body RespondRequest
	if !response.BindJSON(c, &body) {
		return
	}
	r := validation.Text("response", body.Response, validation.MaxMessageLength, true)
	if !r.IsValid {
		response.BadRequest(c, r.Error)
		return
	}
	if err := h.api.RespondToSupportMessage(middleware.Backend(c), id, r.Sanitized); err != nil {
		backendError(c, err)
		return
	}
	changed(c, h, h.support, "respond", id)
	response.OK(c, gin.H{"id": id, "is_resolved": true})
}
