package models

import (
	"time"

	"github.com/google/uuid"
)

// Export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Export statuses.
const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportRecord is one generated (or requested) report file.
type ExportRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	Kind       string    `json:"kind"`
	Format     string    `json:"format"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CertificateRecord is an issued certificate, kept so its verification code can be checked.
type CertificateRecord struct {
	Code           string    `json:"code"`
	UserID         int64     `json:"user_id"`
	RecipientName  string    `json:"recipient_name"`
	Hours          float64   `json:"hours"`
	EventsAttended int       `json:"events_attended"`
	IssuedOn       time.Time `json:"issued_on"`
	CreatedAt      time.Time `json:"created_at"`
}
