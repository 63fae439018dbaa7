package models

// MonthlyPoint is one YYYY-MM bucket of a time series.
type MonthlyPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// CountItem is a labeled count used for breakdowns (e.g. signups per organization).
type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AdminMetrics is the platform-wide dashboard summary.
type AdminMetrics struct {
	TotalUsers           int            `json:"total_users"`
	TotalVolunteers      int            `json:"total_volunteers"`
	TotalOrganizers      int            `json:"total_organizers"`
	TotalOrganizations   int            `json:"total_organizations"`
	PendingOrganizations int            `json:"pending_organizations"`
	TotalEvents          int            `json:"total_events"`
	UpcomingEvents       int            `json:"upcoming_events"`
	TotalSignups         int            `json:"total_signups"`
	OpenSupportMessages  int            `json:"open_support_messages"`
	MonthlySignups       []MonthlyPoint `json:"monthly_signups"`
	MonthlyNewUsers      []MonthlyPoint `json:"monthly_new_users"`
	TopOrganizations     []CountItem    `json:"top_organizations"`
}

// OrganizerMetrics summarizes one organization's events.
type OrganizerMetrics struct {
	OrganizationID   int64          `json:"organization_id"`
	TotalEvents      int            `json:"total_events"`
	UpcomingEvents   int            `json:"upcoming_events"`
	PastEvents       int            `json:"past_events"`
	TotalSignups     int            `json:"total_signups"`
	UniqueVolunteers int            `json:"unique_volunteers"`
	TotalHours       float64        `json:"total_hours"`
	MonthlySignups   []MonthlyPoint `json:"monthly_signups"`
	EventBreakdown   []CountItem    `json:"event_breakdown"`
}

// VolunteerMetrics summarizes one volunteer's participation.
type VolunteerMetrics struct {
	UserID          int64          `json:"user_id"`
	EventsSignedUp  int            `json:"events_signed_up"`
	EventsAttended  int            `json:"events_attended"`
	UpcomingEvents  int            `json:"upcoming_events"`
	TotalHours      float64        `json:"total_hours"`
	MonthlyHours    []MonthlyPoint `json:"monthly_hours"`
	OrganizationMix []CountItem    `json:"organization_mix"`
}

// NotificationResult is the backend's reply to reminder and email processing triggers.
type NotificationResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}
