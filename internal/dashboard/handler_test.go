package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/notifications"
	"github.com/helpinghands/console/internal/realtime"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/redis"
)

type fakeBackend struct {
	mu          sync.Mutex
	users       []models.User
	orgs        []models.Organization
	tags        []models.Tag
	usersErr    error
	statusCalls []models.StatusChange
	userFetches int
	auditCalls  [][2]int
	nextTagID   int64
	silentTags  bool
}

func (f *fakeBackend) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userFetches++
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return append([]models.User(nil), f.users...), nil
}

func (f *fakeBackend) UpdateUserRole(ctx context.Context, userID int64, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == userID {
			f.users[i].Role = role
			return nil
		}
	}
	return &apiclient.APIError{Status: http.StatusNotFound, Message: "User not found"}
}

func (f *fakeBackend) DeleteUser(ctx context.Context, userID int64) error { return nil }

func (f *fakeBackend) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return f.orgs, nil
}

func (f *fakeBackend) SetOrganizationStatus(ctx context.Context, orgID int64, change models.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, change)
	return nil
}

func (f *fakeBackend) ListEvents(ctx context.Context) ([]models.Event, error) { return nil, nil }

func (f *fakeBackend) DeleteEvent(ctx context.Context, eventID int64) error { return nil }

func (f *fakeBackend) ListTags(ctx context.Context) ([]models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Tag(nil), f.tags...), nil
}

func (f *fakeBackend) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTagID++
	t := models.Tag{ID: f.nextTagID, Name: name}
	f.tags = append(f.tags, t)
	if f.silentTags {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeBackend) UpdateTag(ctx context.Context, tagID int64, name string) error { return nil }

func (f *fakeBackend) DeleteTag(ctx context.Context, tagID int64) error { return nil }

func (f *fakeBackend) ListSupportMessages(ctx context.Context) ([]models.SupportMessage, error) {
	return nil, nil
}

func (f *fakeBackend) RespondToSupportMessage(ctx context.Context, messageID int64, response string) error {
	return nil
}

func (f *fakeBackend) AdminMetrics(ctx context.Context) (*models.AdminMetrics, error) {
	return &models.AdminMetrics{
		TotalUsers:     3,
		MonthlySignups: []models.MonthlyPoint{{Month: "2024-06", Value: 4}},
	}, nil
}

func (f *fakeBackend) OrganizerMetrics(ctx context.Context, orgID int64) (*models.OrganizerMetrics, error) {
	return &models.OrganizerMetrics{OrganizationID: orgID}, nil
}

func (f *fakeBackend) VolunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error) {
	return &models.VolunteerMetrics{UserID: userID}, nil
}

func (f *fakeBackend) AuditLogs(ctx context.Context, limit, offset int) (*models.AuditLogPage, error) {
	f.mu.Lock()
	f.auditCalls = append(f.auditCalls, [2]int{limit, offset})
	f.mu.Unlock()
	total := 60
	logs := make([]models.AuditLog, 0, limit)
	for i := 0; i < limit && offset+i < total; i++ {
		action := "update"
		if (offset+i)%2 == 0 {
			action = "create"
		}
		logs = append(logs, models.AuditLog{LogID: int64(offset + i + 1), Action: action, EntityType: "event"})
	}
	return &models.AuditLogPage{
		Logs:       logs,
		Pagination: models.Pagination{Total: &total, Limit: limit, Offset: offset, HasMore: offset+limit < total},
	}, nil
}

func (f *fakeBackend) GenerateReminders(ctx context.Context) (*models.NotificationResult, error) {
	return &models.NotificationResult{Sent: 1, Total: 1}, nil
}

func (f *fakeBackend) ProcessPendingEmails(ctx context.Context) (*models.NotificationResult, error) {
	return &models.NotificationResult{Sent: 2, Total: 2}, nil
}

type recordingHub struct {
	mu      sync.Mutex
	changes []realtime.CollectionChange
}

func (r *recordingHub) CollectionChanged(change realtime.CollectionChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func newTestHandler(api *fakeBackend) (*Handler, *recordingHub) {
	hub := &recordingHub{}
	h := NewHandler(api, redis.NewMemory(),
		reports.NewService(api, nil, nil, nil, nil),
		notifications.NewService(api, nil),
		hub,
		Options{PageSize: 2, AuditPageSize: 10, LoadConcurrency: 2, CollectionTTL: time.Minute, ViewStateTTL: time.Hour},
		nil)
	h.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return h, hub
}

func newRouter(h *Handler, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/admin", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Set(middleware.ContextUserRole, string(models.RoleAdmin))
		c.Next()
	})
	h.Register(g)
	return r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope[T any] struct {
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func sampleUsers() []models.User {
	return []models.User{
		{ID: 1, Name: "Ada", Email: "ada@example.org", Role: models.RoleAdmin},
		{ID: 2, Name: "Bob", Email: "bob@example.org", Role: models.RoleVolunteer},
		{ID: 3, Name: "Cleo", Email: "cleo@example.org", Role: models.RoleVolunteer},
	}
}

func TestHandler_ListUsersKeepsViewPerUser(t *testing.T) {
	api := &fakeBackend{users: sampleUsers()}
	h, _ := newTestHandler(api)
	r := newRouter(h, 7)

	w := do(r, http.MethodGet, "/admin/users?filter[role]=volunteer", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[Listing[models.User]](t, w)
	assert.Equal(t, 2, env.Data.TotalItems)
	assert.Equal(t, "volunteer", env.Data.Filters["role"])

	// The filter is remembered without repeating it.
	w = do(r, http.MethodGet, "/admin/users", "")
	env = decode[Listing[models.User]](t, w)
	assert.Equal(t, 2, env.Data.TotalItems)
	assert.Equal(t, 1, api.userFetches, "second read served from cache")

	// Another admin has their own view.
	w = do(newRouter(h, 8), http.MethodGet, "/admin/users", "")
	env = decode[Listing[models.User]](t, w)
	assert.Equal(t, 3, env.Data.TotalItems)
	assert.Equal(t, 2, env.Data.TotalPages)
}

func TestHandler_ListResetForgetsView(t *testing.T) {
	api := &fakeBackend{users: sampleUsers()}
	h, _ := newTestHandler(api)
	r := newRouter(h, 7)

	do(r, http.MethodGet, "/admin/users?search=bob", "")
	w := do(r, http.MethodGet, "/admin/users?reset=1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[Listing[models.User]](t, w)
	assert.Equal(t, 3, env.Data.TotalItems)
	assert.Empty(t, env.Data.Search)

	w = do(r, http.MethodGet, "/admin/users", "")
	assert.Equal(t, 3, decode[Listing[models.User]](t, w).Data.TotalItems)
}

func TestHandler_DeleteDropsCachedItemWhenReloadFails(t *testing.T) {
	api := &fakeBackend{users: sampleUsers()}
	h, hub := newTestHandler(api)
	r := newRouter(h, 1)

	do(r, http.MethodGet, "/admin/users", "")
	api.usersErr = &apiclient.NetworkError{Err: errors.New("connection reset")}

	w := do(r, http.MethodDelete, "/admin/users/2", "")
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/admin/users?page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ids []int64
	for _, u := range decode[Listing[models.User]](t, w).Data.Items {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
	require.Len(t, hub.changes, 1)
	assert.Equal(t, "delete", hub.changes[0].Action)
}

func TestHandler_LoadReportsPartialFailure(t *testing.T) {
	api := &fakeBackend{usersErr: &apiclient.APIError{Status: http.StatusInternalServerError}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodPost, "/admin/load", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[struct {
		Loaded int               `json:"loaded"`
		Errors map[string]string `json:"errors"`
	}](t, w)
	assert.Equal(t, 4, env.Data.Loaded)
	assert.Contains(t, env.Data.Errors, "users")

	w = do(r, http.MethodGet, "/admin/users", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_UpdateUserRoleReloadsAndNotifies(t *testing.T) {
	api := &fakeBackend{users: sampleUsers()}
	h, hub := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodPatch, "/admin/users/2/role", `{"role":"organizer"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, hub.changes, 1)
	assert.Equal(t, realtime.CollectionChange{Collection: "users", Action: "role", ID: 2, ActorID: 1}, hub.changes[0])

	w = do(r, http.MethodGet, "/admin/users?filter[role]=organizer", "")
	env := decode[Listing[models.User]](t, w)
	require.Len(t, env.Data.Items, 1)
	assert.Equal(t, "Bob", env.Data.Items[0].Name)

	w = do(r, http.MethodPatch, "/admin/users/2/role", `{"role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "role must be one of: volunteer, organizer, admin", decode[any](t, w).Fields["role"])

	w = do(r, http.MethodPatch, "/admin/users/99/role", `{"role":"admin"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode[any](t, w).Error)
}

func TestHandler_OrganizationStatus(t *testing.T) {
	api := &fakeBackend{orgs: []models.Organization{{ID: 5, Name: "Food Bank", ApprovalStatus: models.ApprovalPending}}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodPatch, "/admin/organizations/5/status", `{"status":"archived"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Fields, "status")

	w = do(r, http.MethodPatch, "/admin/organizations/5/status", `{"status":"approved","reason":"ignored"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(r, http.MethodPatch, "/admin/organizations/5/status", `{"status":"rejected","reason":"  incomplete  "}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, api.statusCalls, 2)
	assert.Equal(t, models.StatusChange{Status: models.ApprovalApproved}, api.statusCalls[0])
	assert.Equal(t, models.StatusChange{Status: models.ApprovalRejected, Reason: "incomplete"}, api.statusCalls[1])

	w = do(r, http.MethodPatch, "/admin/organizations/abc/status", `{"status":"approved"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_TagsRejectDuplicateNames(t *testing.T) {
	api := &fakeBackend{tags: []models.Tag{{ID: 1, Name: "Outdoors"}}, nextTagID: 1}
	h, hub := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodPost, "/admin/tags", `{"name":"outdoors"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/admin/tags", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/tags", `{"name":"Animals"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.Tag{ID: 2, Name: "Animals"}, decode[models.Tag](t, w).Data)
	require.Len(t, hub.changes, 1)
	assert.Equal(t, "create", hub.changes[0].Action)

	// Renaming a tag to its own name is not a duplicate.
	w = do(r, http.MethodPut, "/admin/tags/1", `{"name":"OUTDOORS"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/admin/tags", "")
	assert.Equal(t, 2, decode[Listing[models.Tag]](t, w).Data.TotalItems)
}

func TestHandler_CreateTagWithoutEcho(t *testing.T) {
	api := &fakeBackend{tags: []models.Tag{{ID: 1, Name: "Outdoors"}}, nextTagID: 1, silentTags: true}
	h, hub := newTestHandler(api)

	w := do(newRouter(h, 1), http.MethodPost, "/admin/tags", `{"name":"Animals"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, models.Tag{ID: 2, Name: "Animals"}, decode[models.Tag](t, w).Data)
	require.Len(t, hub.changes, 1)
	assert.Equal(t, "create", hub.changes[0].Action)
}

func TestHandler_AuditLogsPagesAndFilters(t *testing.T) {
	api := &fakeBackend{}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodGet, "/admin/audit-logs?page=3", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[AuditPage](t, w)
	assert.Equal(t, 3, env.Data.Page)
	assert.Equal(t, 6, env.Data.TotalPages)
	require.Len(t, env.Data.Items, 10)
	assert.Equal(t, int64(21), env.Data.Items[0].LogID)

	// Changing a filter returns to the first page.
	w = do(r, http.MethodGet, "/admin/audit-logs?action=create", "")
	env = decode[AuditPage](t, w)
	assert.Equal(t, 1, env.Data.Page)
	assert.Equal(t, "create", env.Data.Filters.Action)
	assert.Len(t, env.Data.Items, 5)

	// Page and filters are restored on the next visit.
	w = do(r, http.MethodGet, "/admin/audit-logs?page_size=20", "")
	env = decode[AuditPage](t, w)
	assert.Equal(t, 20, env.Data.PageSize)
	assert.Equal(t, "create", env.Data.Filters.Action)
	assert.Len(t, env.Data.Items, 10)
	assert.Equal(t, [2]int{20, 0}, api.auditCalls[len(api.auditCalls)-1])
}

func TestHandler_AuditLogsFetchOncePerRequest(t *testing.T) {
	api := &fakeBackend{}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodGet, "/admin/audit-logs?page=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, api.auditCalls, 1)

	// Filter, size and page together still cost a single fetch.
	w = do(r, http.MethodGet, "/admin/audit-logs?action=update&page_size=20&page=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[AuditPage](t, w)
	assert.Equal(t, 2, env.Data.Page)
	assert.Equal(t, 20, env.Data.PageSize)
	assert.Equal(t, "update", env.Data.Filters.Action)
	require.Len(t, api.auditCalls, 2)
	assert.Equal(t, [2]int{20, 20}, api.auditCalls[1])

	// Revisiting without a query replays the saved state in one fetch.
	do(r, http.MethodGet, "/admin/audit-logs", "")
	require.Len(t, api.auditCalls, 3)
	assert.Equal(t, [2]int{20, 20}, api.auditCalls[2])
}

func TestHandler_AuditLogsOutOfRangePageKeepsSavedPage(t *testing.T) {
	api := &fakeBackend{}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	do(r, http.MethodGet, "/admin/audit-logs?page=2", "")
	w := do(r, http.MethodGet, "/admin/audit-logs?page=99", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[AuditPage](t, w)
	assert.Equal(t, 2, env.Data.Page)
	assert.Equal(t, int64(11), env.Data.Items[0].LogID)
}

func TestHandler_MetricsAreBucketed(t *testing.T) {
	h, _ := newTestHandler(&fakeBackend{})
	w := do(newRouter(h, 1), http.MethodGet, "/admin/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	m := decode[models.AdminMetrics](t, w).Data
	require.Len(t, m.MonthlySignups, 12)
	assert.Equal(t, "2023-07", m.MonthlySignups[0].Month)
	assert.Equal(t, models.MonthlyPoint{Month: "2024-06", Value: 4}, m.MonthlySignups[11])
	assert.Len(t, m.MonthlyNewUsers, 12)
}

func TestHandler_Export(t *testing.T) {
	api := &fakeBackend{orgs: []models.Organization{{ID: 5, Name: "Food Bank"}}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 1)

	w := do(r, http.MethodPost, "/admin/exports", `{"kind":"organizer","format":"xlsx","organization_id":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "food-bank")
	assert.NotEmpty(t, w.Body.Bytes())

	w = do(r, http.MethodPost, "/admin/exports", `{"kind":"organizer"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/exports", `{"format":"csv"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Fields, "format")

	w = do(r, http.MethodPost, "/admin/exports", `{"async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_NotificationTriggers(t *testing.T) {
	h, _ := newTestHandler(&fakeBackend{})
	r := newRouter(h, 1)

	w := do(r, http.MethodPost, "/admin/notifications/reminders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.NotificationResult](t, w).Data.Sent)

	w = do(r, http.MethodPost, "/admin/notifications/process", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[models.NotificationResult](t, w).Data.Total)
}

func TestHandler_NotificationRunsWithoutHistory(t *testing.T) {
	h, _ := newTestHandler(&fakeBackend{})
	w := do(newRouter(h, 1), http.MethodGet, "/admin/notifications/runs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.NotificationRun](t, w).Data)
}
