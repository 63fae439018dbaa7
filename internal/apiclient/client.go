// Package apiclient talks to the volunteer backend REST API. It is the only place that
// knows the backend's wire shapes; callers only see internal/models types.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpinghands/console/internal/models"
)

// Config configures the backend client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string // used when the context carries no caller token (worker jobs)
	Location     *time.Location
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	baseURL      string
	http         *http.Client
	serviceToken string
	loc          *time.Location
	logger       *zap.Logger
}

// New creates a backend client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		http:         &http.Client{Timeout: cfg.Timeout},
		serviceToken: cfg.ServiceToken,
		loc:          cfg.Location,
		logger:       logger,
	}
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token; requests made with ctx forward it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) token(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok && t != "" {
		return t
	}
	return c.serviceToken
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.token(ctx); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}"), nil
	}
	return raw, nil
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

// ListUsers returns every user.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/users", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, normUser, "users")
}

// GetUser returns one user.
func (c *Client) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/users/"+id(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	u, err := decodeOne(raw, normUser, "user")
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile saves a user's editable profile fields and returns the stored user.
// The user is nil when the backend only acknowledges the update.
func (c *Client) UpdateProfile(ctx context.Context, userID int64, p models.ProfileUpdate) (*models.User, error) {
	raw, err := c.do(ctx, http.MethodPut, "/api/users/"+id(userID), nil, p)
	if err != nil {
		return nil, err
	}
	u, err := decodeOne(raw, normUser, "user")
	if err != nil || u.ID == 0 {
		return nil, err
	}
	return &u, nil
}

// UpdateUserRole changes a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, userID int64, role models.Role) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/users/"+id(userID)+"/role", nil, map[string]string{"role": string(role)})
	return err
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/users/"+id(userID), nil, nil)
	return err
}

// VerifyPassword checks a user's current password.
func (c *Client) VerifyPassword(ctx context.Context, userID int64, password string) (bool, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/users/"+id(userID)+"/verify-password", nil, map[string]string{"password": password})
	if err != nil {
		return false, err
	}
	f, err := decodeFields(unwrap(raw))
	if err != nil {
		return false, err
	}
	return f.boolean("valid", "isValid", "is_valid", "verified"), nil
}

// ChangePassword replaces a user's password.
func (c *Client) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/users/"+id(userID)+"/password", nil, map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	})
	return err
}

// ListOrganizations returns every organization.
func (c *Client) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/organizations", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, normOrganization, "organizations")
}

// SetOrganizationStatus sets the approval status and optional rejection reason.
func (c *Client) SetOrganizationStatus(ctx context.Context, orgID int64, change models.StatusChange) error {
	body := map[string]string{"approvalStatus": string(change.Status)}
	if change.Status == models.ApprovalRejected && change.Reason != "" {
		body["rejectionReason"] = change.Reason
	}
	_, err := c.do(ctx, http.MethodPatch, "/api/organizations/"+id(orgID)+"/status", nil, body)
	return err
}

// ListEvents returns every event.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/events", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, c.normEvent, "events")
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/events/"+id(eventID), nil, nil)
	return err
}

// ListUserSignups returns a user's signups with their events.
func (c *Client) ListUserSignups(ctx context.Context, userID int64) ([]models.Signup, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/users/"+id(userID)+"/signups", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, c.normSignup, "signups")
}

// ListTags returns every tag.
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/tags", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, normTag, "tags")
}

// CreateTag creates a tag. The tag is nil when the backend does not echo it back.
func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/tags", nil, map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	t, err := decodeOne(raw, normTag, "tag")
	if err != nil || t.ID == 0 {
		return nil, err
	}
	return &t, nil
}

// UpdateTag renames a tag.
func (c *Client) UpdateTag(ctx context.Context, tagID int64, name string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/tags/"+id(tagID), nil, map[string]string{"name": name})
	return err
}

// DeleteTag removes a tag.
func (c *Client) DeleteTag(ctx context.Context, tagID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/tags/"+id(tagID), nil, nil)
	return err
}

// ListSupportMessages returns every support message.
func (c *Client) ListSupportMessages(ctx context.Context) ([]models.SupportMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/support-messages", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList(raw, normSupportMessage, "messages", "supportMessages", "support_messages")
}

// CreateSupportMessage submits the support form.
func (c *Client) CreateSupportMessage(ctx context.Context, m models.NewSupportMessage) (*models.SupportMessage, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/support-messages", nil, m)
	if err != nil {
		return nil, err
	}
	out, err := decodeOne(raw, normSupportMessage, "message", "supportMessage")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RespondToSupportMessage stores an admin response and marks the message resolved.
func (c *Client) RespondToSupportMessage(ctx context.Context, messageID int64, response string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/support-messages/"+id(messageID)+"/respond", nil, map[string]any{
		"responseMessage": response,
		"isResolved":      true,
	})
	return err
}

// AdminMetrics returns the platform-wide metrics.
func (c *Client) AdminMetrics(ctx context.Context) (*models.AdminMetrics, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/metrics/admin", nil, nil)
	if err != nil {
		return nil, err
	}
	m, err := decodeOne(raw, normAdminMetrics, "metrics")
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// OrganizerMetrics returns one organization's metrics.
func (c *Client) OrganizerMetrics(ctx context.Context, orgID int64) (*models.OrganizerMetrics, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/metrics/organizer/"+id(orgID), nil, nil)
	if err != nil {
		return nil, err
	}
	m, err := decodeOne(raw, normOrganizerMetrics, "metrics")
	if err != nil {
		return nil, err
	}
	if m.OrganizationID == 0 {
		m.OrganizationID = orgID
	}
	return &m, nil
}

// VolunteerMetrics returns one volunteer's metrics.
func (c *Client) VolunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/metrics/volunteer/"+id(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	m, err := decodeOne(raw, normVolunteerMetrics, "metrics")
	if err != nil {
		return nil, err
	}
	if m.UserID == 0 {
		m.UserID = userID
	}
	return &m, nil
}

// AuditLogs returns one server page of audit logs.
func (c *Client) AuditLogs(ctx context.Context, limit, offset int) (*models.AuditLogPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	raw, err := c.do(ctx, http.MethodGet, "/api/audit-logs", q, nil)
	if err != nil {
		return nil, err
	}
	f, err := decodeFields(unwrap(raw))
	if err != nil {
		return nil, err
	}
	page := normAuditPage(f)
	if v, ok := f.lookup(auditLogKeys...); ok {
		logs, skipped, err := decodeEach(v, normAuditLog)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			c.logger.Warn("skipped malformed audit log entries",
				zap.Int("skipped", skipped), zap.Int("offset", offset), zap.Int("limit", limit))
		}
		page.Logs = logs
	}
	if page.Pagination.Limit == 0 {
		page.Pagination.Limit = limit
		page.Pagination.Offset = offset
	}
	return &page, nil
}

// GenerateReminders asks the backend to create reminder notifications for upcoming events.
func (c *Client) GenerateReminders(ctx context.Context) (*models.NotificationResult, error) {
	return c.notify(ctx, "/api/notifications/reminders")
}

// ProcessPendingEmails asks the backend to send queued email notifications.
func (c *Client) ProcessPendingEmails(ctx context.Context) (*models.NotificationResult, error) {
	return c.notify(ctx, "/api/notifications/process")
}

func (c *Client) notify(ctx context.Context, path string) (*models.NotificationResult, error) {
	raw, err := c.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}
	r, err := decodeOne(raw, normNotificationResult, "result")
	if err != nil {
		return nil, err
	}
	return &r, nil
}
