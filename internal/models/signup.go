package models

import "time"

// Signup statuses reported by the backend.
const (
	SignupStatusRegistered = "registered"
	SignupStatusAttended   = "attended"
	SignupStatusCancelled  = "cancelled"
)

// Signup links a user to an event. Event fields are joined in by the backend.
type Signup struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	EventID    int64     `json:"event_id"`
	Status     string    `json:"status"`
	SignupDate time.Time `json:"signup_date"`
	Hours      float64   `json:"hours,omitempty"`
	Event      Event     `json:"event"`
}
