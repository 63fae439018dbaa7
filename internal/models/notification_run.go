package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification run triggers.
const (
	RunTriggerReminders = "reminders"
	RunTriggerEmails    = "emails"
	RunTriggerScheduled = "scheduled"
)

// NotificationRun is one recorded reminder or email run.
type NotificationRun struct {
	ID         uuid.UUID `json:"id"`
	Trigger    string    `json:"trigger"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
