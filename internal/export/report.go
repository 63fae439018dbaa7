package export

import (
	"strconv"
	"time"

	"github.com/helpinghands/console/internal/metrics"
	"github.com/helpinghands/console/internal/models"
)

// SeriesMonths is the window, in months, covered by report time series.
const SeriesMonths = 12

// Report kinds.
const (
	KindAdmin     = "admin"
	KindOrganizer = "organizer"
	KindVolunteer = "volunteer"
)

// SummaryRow is one labeled figure.
type SummaryRow struct {
	Label string
	Value float64
}

// Series is a named monthly time series.
type Series struct {
	Name   string
	Points []models.MonthlyPoint
}

// Breakdown is a titled list of labeled counts.
type Breakdown struct {
	Title string
	Items []models.CountItem
}

// Report is the format-independent content of an export.
type Report struct {
	Kind        string
	Label       string
	Title       string
	GeneratedAt time.Time
	Summary     []SummaryRow
	Series      []Series
	Breakdowns  []Breakdown
	Checklist   []CheckItem
}

// AdminReport builds the platform report. A nil m yields the same sections with zeros.
func AdminReport(m *models.AdminMetrics, now time.Time) Report {
	if m == nil {
		m = &models.AdminMetrics{}
	}
	return Report{
		Kind:        KindAdmin,
		Label:       "admin",
		Title:       "Platform Report",
		GeneratedAt: now,
		Summary: []SummaryRow{
			{"Total users", float64(m.TotalUsers)},
			{"Volunteers", float64(m.TotalVolunteers)},
			{"Organizers", float64(m.TotalOrganizers)},
			{"Organizations", float64(m.TotalOrganizations)},
			{"Pending organizations", float64(m.PendingOrganizations)},
			{"Events", float64(m.TotalEvents)},
			{"Upcoming events", float64(m.UpcomingEvents)},
			{"Signups", float64(m.TotalSignups)},
			{"Open support messages", float64(m.OpenSupportMessages)},
		},
		Series: []Series{
			{"Monthly signups", metrics.Bucket(m.MonthlySignups, now, SeriesMonths)},
			{"New users", metrics.Bucket(m.MonthlyNewUsers, now, SeriesMonths)},
		},
		Breakdowns: []Breakdown{
			{"Top organizations", m.TopOrganizations},
		},
		Checklist: []CheckItem{
			{"All organization requests reviewed", m.PendingOrganizations == 0},
			{"All support messages answered", m.OpenSupportMessages == 0},
			{"Upcoming events scheduled", m.UpcomingEvents > 0},
		},
	}
}

// OrganizerReport builds one organization's report.
func OrganizerReport(orgName string, m *models.OrganizerMetrics, now time.Time) Report {
	if m == nil {
		m = &models.OrganizerMetrics{}
	}
	label := orgName
	if label == "" {
		label = "organization-" + strconv.FormatInt(m.OrganizationID, 10)
	}
	title := "Organization Report"
	if orgName != "" {
		title = orgName + " Report"
	}
	return Report{
		Kind:        KindOrganizer,
		Label:       label,
		Title:       title,
		GeneratedAt: now,
		Summary: []SummaryRow{
			{"Events", float64(m.TotalEvents)},
			{"Upcoming events", float64(m.UpcomingEvents)},
			{"Past events", float64(m.PastEvents)},
			{"Signups", float64(m.TotalSignups)},
			{"Unique volunteers", float64(m.UniqueVolunteers)},
			{"Volunteer hours", m.TotalHours},
		},
		Series: []Series{
			{"Monthly signups", metrics.Bucket(m.MonthlySignups, now, SeriesMonths)},
		},
		Breakdowns: []Breakdown{
			{"Signups by event", m.EventBreakdown},
		},
		Checklist: []CheckItem{
			{"Upcoming events scheduled", m.UpcomingEvents > 0},
			{"Volunteers recruited", m.UniqueVolunteers > 0},
		},
	}
}

// VolunteerReport builds one volunteer's report.
func VolunteerReport(name string, m *models.VolunteerMetrics, now time.Time) Report {
	if m == nil {
		m = &models.VolunteerMetrics{}
	}
	label := name
	if label == "" {
		label = "volunteer"
	}
	return Report{
		Kind:        KindVolunteer,
		Label:       label,
		Title:       "Volunteer Report",
		GeneratedAt: now,
		Summary: []SummaryRow{
			{"Events signed up", float64(m.EventsSignedUp)},
			{"Events attended", float64(m.EventsAttended)},
			{"Upcoming events", float64(m.UpcomingEvents)},
			{"Volunteer hours", m.TotalHours},
		},
		Series: []Series{
			{"Monthly hours", metrics.Bucket(m.MonthlyHours, now, SeriesMonths)},
		},
		Breakdowns: []Breakdown{
			{"Organizations", m.OrganizationMix},
		},
		Checklist: []CheckItem{
			{"Attended a first event", m.EventsAttended >= 1},
			{"Reached 10 volunteer hours", m.TotalHours >= 10},
			{"Reached 50 volunteer hours", m.TotalHours >= 50},
			{"Reached 100 volunteer hours", m.TotalHours >= 100},
		},
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
