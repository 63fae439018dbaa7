package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helpinghands/console/internal/models"
)

// Backend responses are not uniform: depending on the backend version the same value
// arrives as camelCase, snake_case or under an older name, wrapped in {"data": ...} or
// bare. Everything is reshaped here, once, into the canonical models types.

type fields map[string]json.RawMessage

func decodeFields(raw json.RawMessage) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return f, nil
}

func (f fields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && len(v) > 0 && !bytes.Equal(v, []byte("null")) {
			return v, true
		}
	}
	return nil, false
}

func (f fields) has(keys ...string) bool {
	_, ok := f.lookup(keys...)
	return ok
}

func (f fields) str(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	if v[0] == '{' || v[0] == '[' {
		return ""
	}
	return string(v)
}

func (f fields) float(keys ...string) float64 {
	v, ok := f.lookup(keys...)
	if !ok {
		return 0
	}
	var n float64
	if json.Unmarshal(v, &n) == nil {
		return n
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return n
		}
	}
	return 0
}

func (f fields) int(keys ...string) int { return int(f.float(keys...)) }

func (f fields) int64(keys ...string) int64 { return int64(f.float(keys...)) }

func (f fields) optInt64(keys ...string) *int64 {
	if !f.has(keys...) {
		return nil
	}
	n := f.int64(keys...)
	return &n
}

func (f fields) optString(keys ...string) *string {
	if !f.has(keys...) {
		return nil
	}
	s := f.str(keys...)
	return &s
}

// boolean accepts true/false, 0/1 and their string forms.
func (f fields) boolean(keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return false
	}
	var b bool
	if json.Unmarshal(v, &b) == nil {
		return b
	}
	switch strings.ToLower(strings.Trim(string(v), `"`)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f fields) time(keys ...string) time.Time {
	s := f.str(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (f fields) optTime(keys ...string) *time.Time {
	t := f.time(keys...)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (f fields) object(keys ...string) fields {
	v, ok := f.lookup(keys...)
	if !ok {
		return fields{}
	}
	obj, err := decodeFields(v)
	if err != nil {
		return fields{}
	}
	return obj
}

// series accepts [{month, value}] with several key spellings, or a {"YYYY-MM": n} map.
func (f fields) series(keys ...string) []models.MonthlyPoint {
	v, ok := f.lookup(keys...)
	if !ok {
		return nil
	}
	var list []json.RawMessage
	if json.Unmarshal(v, &list) == nil {
		out := make([]models.MonthlyPoint, 0, len(list))
		for _, item := range list {
			p, err := decodeFields(item)
			if err != nil {
				continue
			}
			month := p.str("month", "period", "label", "date")
			if len(month) > 7 {
				month = month[:7]
			}
			out = append(out, models.MonthlyPoint{Month: month, Value: p.float("value", "count", "total", "hours", "signups")})
		}
		return out
	}
	var byMonth map[string]float64
	if json.Unmarshal(v, &byMonth) == nil {
		out := make([]models.MonthlyPoint, 0, len(byMonth))
		for m, n := range byMonth {
			out = append(out, models.MonthlyPoint{Month: m, Value: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
		return out
	}
	return nil
}

func (f fields) counts(keys ...string) []models.CountItem {
	v, ok := f.lookup(keys...)
	if !ok {
		return nil
	}
	var list []json.RawMessage
	if json.Unmarshal(v, &list) != nil {
		return nil
	}
	out := make([]models.CountItem, 0, len(list))
	for _, item := range list {
		p, err := decodeFields(item)
		if err != nil {
			continue
		}
		out = append(out, models.CountItem{
			Label: p.str("label", "name", "title", "organizationName", "organization_name", "eventTitle", "event_title"),
			Count: p.int("count", "value", "total", "signups", "signupCount", "signup_count"),
		})
	}
	return out
}

// unwrap strips a {"data": ...} envelope when present.
func unwrap(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	f, err := decodeFields(raw)
	if err != nil {
		return raw
	}
	if data, ok := f.lookup("data"); ok {
		return data
	}
	return raw
}

// decodeList accepts a bare array or an object holding the array under one of keys.
func decodeList[T any](raw json.RawMessage, norm func(fields) T, keys ...string) ([]T, error) {
	raw = unwrap(raw)
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		f, ferr := decodeFields(raw)
		if ferr != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		v, ok := f.lookup(append(keys, "items", "results", "rows")...)
		if !ok {
			return []T{}, nil
		}
		if err := json.Unmarshal(v, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		f, err := decodeFields(item)
		if err != nil {
			return nil, err
		}
		out = append(out, norm(f))
	}
	return out, nil
}

// decodeOne accepts a bare object, an enveloped object, or an object nested under key.
func decodeOne[T any](raw json.RawMessage, norm func(fields) T, keys ...string) (T, error) {
	var zero T
	f, err := decodeFields(unwrap(raw))
	if err != nil {
		return zero, err
	}
	if inner, ok := f.lookup(keys...); ok {
		if nested, err := decodeFields(inner); err == nil {
			f = nested
		}
	}
	return norm(f), nil
}

func normUser(f fields) models.User {
	return models.User{
		ID:             f.int64("id", "userId", "user_id"),
		Name:           f.str("name", "fullName", "full_name", "username"),
		Email:          f.str("email", "emailAddress", "email_address"),
		Phone:          f.str("phone", "phoneNumber", "phone_number"),
		Role:           models.Role(strings.ToLower(f.str("role", "userRole", "user_role", "type"))),
		OrganizationID: f.optInt64("organizationId", "organization_id", "orgId", "org_id"),
		CreatedAt:      f.time("createdAt", "created_at"),
	}
}

func normOrganization(f fields) models.Organization {
	status := models.ApprovalStatus(strings.ToLower(f.str("approvalStatus", "approval_status", "status")))
	if !status.Valid() {
		if f.has("isApproved", "is_approved", "approved") {
			if f.boolean("isApproved", "is_approved", "approved") {
				status = models.ApprovalApproved
			} else {
				status = models.ApprovalPending
			}
		} else {
			status = models.ApprovalPending
		}
	}
	return models.Organization{
		ID:              f.int64("id", "organizationId", "organization_id"),
		Name:            f.str("name", "organizationName", "organization_name"),
		Description:     f.str("description"),
		ContactEmail:    f.str("contactEmail", "contact_email", "email"),
		ContactPhone:    f.str("contactPhone", "contact_phone", "phone"),
		Website:         f.str("website", "websiteUrl", "website_url", "url"),
		ApprovalStatus:  status,
		RejectionReason: f.str("rejectionReason", "rejection_reason"),
		CreatedAt:       f.time("createdAt", "created_at"),
	}
}

func (c *Client) normEvent(f fields) models.Event {
	date := f.str("eventDate", "event_date", "date")
	if len(date) > 10 {
		date = date[:10]
	}
	clock := f.str("eventTime", "event_time", "time", "startTime", "start_time")
	return models.Event{
		ID:             f.int64("id", "eventId", "event_id"),
		Title:          f.str("title", "name", "eventTitle", "event_title"),
		Description:    f.str("description"),
		Location:       f.str("location", "address"),
		OrganizationID: f.int64("organizationId", "organization_id", "orgId", "org_id"),
		EventDate:      date,
		EventTime:      clock,
		Capacity:       f.int("capacity", "maxVolunteers", "max_volunteers"),
		StartsAt:       models.EventStart(date, clock, c.loc),
	}
}

func (c *Client) normSignup(f fields) models.Signup {
	var event models.Event
	if nested := f.object("event"); len(nested) > 0 {
		event = c.normEvent(nested)
	} else {
		// Flat rows carry the event columns next to the signup's own id.
		event = c.normEvent(f)
		event.ID = f.int64("eventId", "event_id")
		event.Title = f.str("eventTitle", "event_title", "title")
	}
	eventID := f.int64("eventId", "event_id")
	if eventID == 0 {
		eventID = event.ID
	}
	return models.Signup{
		ID:         f.int64("id", "signupId", "signup_id"),
		UserID:     f.int64("userId", "user_id", "volunteerId", "volunteer_id"),
		EventID:    eventID,
		Status:     strings.ToLower(f.str("status", "signupStatus", "signup_status")),
		SignupDate: f.time("signupDate", "signup_date", "createdAt", "created_at"),
		Hours:      f.float("hours", "hoursLogged", "hours_logged", "volunteerHours", "volunteer_hours"),
		Event:      event,
	}
}

func normTag(f fields) models.Tag {
	return models.Tag{
		ID:   f.int64("id", "tagId", "tag_id"),
		Name: f.str("name", "tagName", "tag_name", "label"),
	}
}

func normAuditLog(f fields) models.AuditLog {
	details, _ := f.lookup("details", "metadata", "changes")
	return models.AuditLog{
		LogID:       f.int64("logId", "log_id", "id"),
		OccurredAt:  f.time("occurredAt", "occurred_at", "createdAt", "created_at", "timestamp"),
		ActorUserID: f.optInt64("actorUserId", "actor_user_id", "userId", "user_id"),
		Action:      f.str("action"),
		EntityType:  f.str("entityType", "entity_type"),
		EntityID:    f.optString("entityId", "entity_id"),
		Details:     details,
	}
}

func normSupportMessage(f fields) models.SupportMessage {
	return models.SupportMessage{
		ID:              f.int64("id", "messageId", "message_id"),
		UserID:          f.optInt64("userId", "user_id"),
		Name:            f.str("name", "fullName", "full_name"),
		Email:           f.str("email"),
		Subject:         f.str("subject"),
		Message:         f.str("message", "body"),
		IsResolved:      f.boolean("isResolved", "is_resolved", "resolved"),
		ResponseMessage: f.str("responseMessage", "response_message", "response"),
		RespondedBy:     f.optInt64("respondedBy", "responded_by"),
		RespondedAt:     f.optTime("respondedAt", "responded_at"),
		CreatedAt:       f.time("createdAt", "created_at", "submittedAt", "submitted_at"),
	}
}

func normAdminMetrics(f fields) models.AdminMetrics {
	return models.AdminMetrics{
		TotalUsers:           f.int("totalUsers", "total_users", "userCount", "users"),
		TotalVolunteers:      f.int("totalVolunteers", "total_volunteers", "volunteerCount", "volunteers"),
		TotalOrganizers:      f.int("totalOrganizers", "total_organizers", "organizerCount", "organizers"),
		TotalOrganizations:   f.int("totalOrganizations", "total_organizations", "organizationCount", "organizations"),
		PendingOrganizations: f.int("pendingOrganizations", "pending_organizations", "pendingApprovals", "pending_approvals"),
		TotalEvents:          f.int("totalEvents", "total_events", "eventCount", "events"),
		UpcomingEvents:       f.int("upcomingEvents", "upcoming_events", "upcomingEventCount"),
		TotalSignups:         f.int("totalSignups", "total_signups", "signupCount", "signups"),
		OpenSupportMessages:  f.int("openSupportMessages", "open_support_messages", "unresolvedMessages", "unresolved_messages"),
		MonthlySignups:       f.series("monthlySignups", "monthly_signups", "signupsByMonth", "signups_by_month"),
		MonthlyNewUsers:      f.series("monthlyNewUsers", "monthly_new_users", "usersByMonth", "users_by_month", "userGrowth"),
		TopOrganizations:     f.counts("topOrganizations", "top_organizations", "organizationBreakdown"),
	}
}

func normOrganizerMetrics(f fields) models.OrganizerMetrics {
	return models.OrganizerMetrics{
		OrganizationID:   f.int64("organizationId", "organization_id", "orgId"),
		TotalEvents:      f.int("totalEvents", "total_events", "eventCount", "events"),
		UpcomingEvents:   f.int("upcomingEvents", "upcoming_events", "upcomingEventCount"),
		PastEvents:       f.int("pastEvents", "past_events", "completedEvents", "completed_events"),
		TotalSignups:     f.int("totalSignups", "total_signups", "signupCount", "signups"),
		UniqueVolunteers: f.int("uniqueVolunteers", "unique_volunteers", "volunteerCount", "volunteers"),
		TotalHours:       f.float("totalHours", "total_hours", "volunteerHours", "hours"),
		MonthlySignups:   f.series("monthlySignups", "monthly_signups", "signupsByMonth", "signups_by_month"),
		EventBreakdown:   f.counts("eventBreakdown", "event_breakdown", "signupsByEvent", "signups_by_event"),
	}
}

func normVolunteerMetrics(f fields) models.VolunteerMetrics {
	return models.VolunteerMetrics{
		UserID:          f.int64("userId", "user_id", "volunteerId"),
		EventsSignedUp:  f.int("eventsSignedUp", "events_signed_up", "totalSignups", "signups"),
		EventsAttended:  f.int("eventsAttended", "events_attended", "completedEvents", "attended"),
		UpcomingEvents:  f.int("upcomingEvents", "upcoming_events", "upcoming"),
		TotalHours:      f.float("totalHours", "total_hours", "hours", "volunteerHours"),
		MonthlyHours:    f.series("monthlyHours", "monthly_hours", "hoursByMonth", "hours_by_month"),
		OrganizationMix: f.counts("organizationMix", "organization_mix", "organizations", "byOrganization"),
	}
}

// decodeEach decodes every element of a JSON array on its own. Elements that are not
// objects are skipped and counted; only a value that is not an array is an error.
func decodeEach[T any](raw json.RawMessage, norm func(fields) T) ([]T, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("decode list: %w", err)
	}
	out := make([]T, 0, len(items))
	skipped := 0
	for _, item := range items {
		f, err := decodeFields(item)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, norm(f))
	}
	return out, skipped, nil
}

var auditLogKeys = []string{"logs", "auditLogs", "audit_logs", "items"}

// normAuditPage reads the pagination block; the caller decodes the logs.
func normAuditPage(f fields) models.AuditLogPage {
	p := f.object("pagination", "meta")
	page := models.AuditLogPage{
		Logs: []models.AuditLog{},
		Pagination: models.Pagination{
			Total:   p.optInt("total", "totalCount", "total_count"),
			Limit:   p.int("limit"),
			Offset:  p.int("offset"),
			HasMore: p.boolean("hasMore", "has_more"),
		},
	}
	return page
}

func (f fields) optInt(keys ...string) *int {
	if !f.has(keys...) {
		return nil
	}
	n := f.int(keys...)
	return &n
}

func normNotificationResult(f fields) models.NotificationResult {
	return models.NotificationResult{
		Sent:   f.int("sent", "sentCount", "sent_count"),
		Failed: f.int("failed", "failedCount", "failed_count"),
		Total:  f.int("total", "totalCount", "total_count", "processed"),
	}
}
