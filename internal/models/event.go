package models

import "time"

// Event is a volunteer event hosted by an organization.
type Event struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	OrganizationID int64     `json:"organization_id"`
	EventDate      string    `json:"event_date"`
	EventTime      string    `json:"event_time,omitempty"`
	Capacity       int       `json:"capacity,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
}

// IsUpcoming reports whether the event starts at or after now.
func (e Event) IsUpcoming(now time.Time) bool {
	return !e.StartsAt.Before(now)
}

// EventStart combines a YYYY-MM-DD date and an optional HH:MM[:SS] time in loc.
// A missing or malformed time means midnight; a malformed date gives the zero time.
func EventStart(date, clock string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		}
	}
	return d
}
