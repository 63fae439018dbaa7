package models

import "time"

// SupportMessage is a contact-form submission and its optional admin response.
type SupportMessage struct {
	ID              int64      `json:"id"`
	UserID          *int64     `json:"user_id,omitempty"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Subject         string     `json:"subject"`
	Message         string     `json:"message"`
	IsResolved      bool       `json:"is_resolved"`
	ResponseMessage string     `json:"response_message,omitempty"`
	RespondedBy     *int64     `json:"responded_by,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewSupportMessage is the payload of a support form submission.
type NewSupportMessage struct {
	UserID  *int64 `json:"user_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
