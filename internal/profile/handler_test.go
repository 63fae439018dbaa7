package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/listview"
	"github.com/helpinghands/console/internal/middleware"
	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/internal/reports"
	"github.com/helpinghands/console/pkg/redis"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeBackend struct {
	user        *models.User
	userErr     error
	updateErr   error
	updated     []models.ProfileUpdate
	ackOnly     bool
	passwordOK  bool
	changed     []string
	signups     []models.Signup
	metrics     *models.VolunteerMetrics
	signupCalls int
}

func (f *fakeBackend) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	u := *f.user
	return &u, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, userID int64, p models.ProfileUpdate) (*models.User, error) {
	f.updated = append(f.updated, p)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.ackOnly {
		return nil, nil
	}
	u := *f.user
	u.Name, u.Email, u.Phone = p.Name, p.Email, p.Phone
	return &u, nil
}

func (f *fakeBackend) VerifyPassword(ctx context.Context, userID int64, password string) (bool, error) {
	return f.passwordOK, nil
}

func (f *fakeBackend) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	f.changed = append(f.changed, next)
	return nil
}

func (f *fakeBackend) ListUserSignups(ctx context.Context, userID int64) ([]models.Signup, error) {
	f.signupCalls++
	return f.signups, nil
}

func (f *fakeBackend) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return []models.Organization{{ID: 9, Name: "Food Bank"}}, nil
}

func (f *fakeBackend) VolunteerMetrics(ctx context.Context, userID int64) (*models.VolunteerMetrics, error) {
	if f.metrics == nil {
		return &models.VolunteerMetrics{UserID: userID}, nil
	}
	m := *f.metrics
	return &m, nil
}

func sampleSignups() []models.Signup {
	event := func(id int64, title string, at time.Time) models.Event {
		return models.Event{ID: id, Title: title, OrganizationID: 9, StartsAt: at}
	}
	return []models.Signup{
		{ID: 1, Status: models.SignupStatusAttended, Hours: 3, Event: event(1, "Park cleanup", testNow.AddDate(0, -1, 0))},
		{ID: 2, Status: models.SignupStatusRegistered, Event: event(2, "Food drive", testNow.AddDate(0, 0, 7))},
		{ID: 3, Status: models.SignupStatusAttended, Hours: 2, Event: event(3, "Book sale", testNow.AddDate(0, -3, 0))},
		{ID: 4, Status: models.SignupStatusRegistered, Event: event(4, "Tree planting", testNow.AddDate(0, 0, 1))},
	}
}

func newTestHandler(api *fakeBackend) (*Handler, *redis.Memory) {
	store := redis.NewMemory()
	h := NewHandler(api, store, reports.NewService(api, nil, nil, nil, nil), Options{PageSize: 10, SessionTTL: time.Hour}, nil)
	h.now = func() time.Time { return testNow }
	return h, store
}

func newRouter(h *Handler, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/profile", func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextUserRole, string(models.RoleVolunteer))
		}
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

func TestGet_FallsBackToStoredUser(t *testing.T) {
	api := &fakeBackend{user: &models.User{ID: 4, Name: "Dana", Email: "dana@example.org"}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	w := do(r, http.MethodGet, "/profile", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	api.userErr = &apiclient.NetworkError{Err: errors.New("connection refused")}
	w = do(r, http.MethodGet, "/profile", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Dana", decode[models.User](t, w).Data.Name)

	// Nothing stored for another user: the backend failure is reported.
	w = do(newRouter(h, 5), http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGet_MissingUserRedirectsToLogin(t *testing.T) {
	api := &fakeBackend{userErr: &apiclient.APIError{Status: http.StatusNotFound}}
	h, _ := newTestHandler(api)

	w := do(newRouter(h, 4), http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "3; url=/login", w.Header().Get("Refresh"))

	w = do(newRouter(h, 0), http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("Refresh"))
}

func TestUpdate_ValidatesAndStoresResult(t *testing.T) {
	api := &fakeBackend{user: &models.User{ID: 4, Name: "Dana", Email: "dana@example.org"}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	w := do(r, http.MethodPut, "/profile", `{"name":"","email":"a@b","phone":"123"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[any](t, w).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.Empty(t, api.updated)

	w = do(r, http.MethodPut, "/profile", `{"name":"Dana Scully","email":"DANA@Example.org","phone":"(555) 123-4567"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, api.updated, 1)
	assert.Equal(t, "dana@example.org", api.updated[0].Email)

	stored, err := h.sessions.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Dana Scully", stored.Name)
}

func TestUpdate_AcknowledgedWithoutUserKeepsSubmittedValues(t *testing.T) {
	api := &fakeBackend{user: &models.User{ID: 4, Name: "Dana", Email: "dana@example.org", Role: models.RoleVolunteer}, ackOnly: true}
	h, _ := newTestHandler(api)

	w := do(newRouter(h, 4), http.MethodPut, "/profile", `{"name":"Dana Scully","email":"dana@fbi.gov"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.User](t, w).Data
	assert.Equal(t, int64(4), got.ID)
	assert.Equal(t, "Dana Scully", got.Name)
	assert.Equal(t, models.RoleVolunteer, got.Role)

	stored, err := h.sessions.Get(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "dana@fbi.gov", stored.Email)
}

func TestUpdate_RollsBackStoredUserOnFailure(t *testing.T) {
	api := &fakeBackend{user: &models.User{ID: 4, Name: "Dana", Email: "dana@example.org"}}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	api.updateErr = &apiclient.APIError{Status: http.StatusConflict, Message: "Email already in use"}
	w := do(r, http.MethodPut, "/profile", `{"name":"Dana","email":"taken@example.org"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already in use", decode[any](t, w).Error)

	stored, err := h.sessions.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.org", stored.Email)
}

func TestChangePassword(t *testing.T) {
	api := &fakeBackend{}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	w := do(r, http.MethodPut, "/profile/password", `{"new_password":"Newpass123","confirm_password":"Newpass123"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "current password is required", decode[any](t, w).Fields["current_password"])

	w = do(r, http.MethodPut, "/profile/password", `{"current_password":"Old12345","new_password":"short","confirm_password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Fields, "new_password")

	w = do(r, http.MethodPut, "/profile/password", `{"current_password":"Old12345","new_password":"Newpass123","confirm_password":"Newpass124"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Fields, "confirm_password")

	w = do(r, http.MethodPut, "/profile/password", `{"current_password":"Wrong1234","new_password":"Newpass123","confirm_password":"Newpass123"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Fields, "current_password")
	assert.Empty(t, api.changed)

	api.passwordOK = true
	w = do(r, http.MethodPut, "/profile/password", `{"current_password":"Old12345","new_password":"Newpass123","confirm_password":"Newpass123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Newpass123"}, api.changed)
}

func TestEvents_UpcomingFirstAndFilters(t *testing.T) {
	api := &fakeBackend{signups: sampleSignups()}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	w := do(r, http.MethodGet, "/profile/events", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[listview.Snapshot[models.Signup]](t, w).Data
	var order []int64
	for _, s := range snap.Items {
		order = append(order, s.ID)
	}
	assert.Equal(t, []int64{4, 2, 1, 3}, order)

	w = do(r, http.MethodGet, "/profile/events?filter[when]=past", "")
	snap = decode[listview.Snapshot[models.Signup]](t, w).Data
	assert.Equal(t, 2, snap.TotalItems)

	// The filter is remembered for this user.
	w = do(r, http.MethodGet, "/profile/events", "")
	assert.Equal(t, 2, decode[listview.Snapshot[models.Signup]](t, w).Data.TotalItems)

	w = do(r, http.MethodGet, "/profile/events?reset=1", "")
	assert.Equal(t, 4, decode[listview.Snapshot[models.Signup]](t, w).Data.TotalItems)
}

func TestMetrics_ComputedFromSignupsWhenSeriesMissing(t *testing.T) {
	api := &fakeBackend{signups: sampleSignups()}
	h, _ := newTestHandler(api)

	w := do(newRouter(h, 4), http.MethodGet, "/profile/metrics", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode[models.VolunteerMetrics](t, w).Data
	assert.Equal(t, 2, m.EventsAttended)
	assert.Equal(t, 5.0, m.TotalHours)
	assert.Equal(t, 2, m.UpcomingEvents)
	require.Len(t, m.MonthlyHours, 12)
	assert.Equal(t, models.MonthlyPoint{Month: "2024-05", Value: 3}, m.MonthlyHours[10])
	require.Len(t, m.OrganizationMix, 1)
	assert.Equal(t, "Food Bank", m.OrganizationMix[0].Label)
}

func TestMetrics_BackendSeriesIsBucketed(t *testing.T) {
	api := &fakeBackend{metrics: &models.VolunteerMetrics{
		EventsAttended: 1,
		MonthlyHours:   []models.MonthlyPoint{{Month: "2024-06", Value: 4}, {Month: "2019-01", Value: 9}},
	}}
	h, _ := newTestHandler(api)

	w := do(newRouter(h, 4), http.MethodGet, "/profile/metrics", "")
	m := decode[models.VolunteerMetrics](t, w).Data
	require.Len(t, m.MonthlyHours, 12)
	assert.Equal(t, 4.0, m.MonthlyHours[11].Value)
	assert.Zero(t, api.signupCalls)
}

func TestExportAndCertificate(t *testing.T) {
	api := &fakeBackend{
		user:    &models.User{ID: 4, Name: "Dana Scully", Email: "dana@example.org"},
		signups: sampleSignups(),
	}
	h, _ := newTestHandler(api)
	r := newRouter(h, 4)

	w := do(r, http.MethodPost, "/profile/exports", `{"format":"pdf"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "dana-scully-report-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = do(r, http.MethodPost, "/profile/exports", `{"format":"xlsx","async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodGet, "/profile/certificate", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	code := w.Header().Get("X-Certificate-Code")
	assert.Len(t, code, 12)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificate-"+code+".pdf")

	api.signups = nil
	w = do(r, http.MethodGet, "/profile/certificate", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
