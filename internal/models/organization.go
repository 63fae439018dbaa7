package models

import "time"

// ApprovalStatus is an organization's tri-state approval flag.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the three approval states.
func (s ApprovalStatus) Valid() bool {
	return s == ApprovalApproved || s == ApprovalPending || s == ApprovalRejected
}

// Organization is a volunteer-hosting organization.
type Organization struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ContactEmail    string         `json:"contact_email,omitempty"`
	ContactPhone    string         `json:"contact_phone,omitempty"`
	Website         string         `json:"website,omitempty"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// StatusChange sets an organization's approval status. Reason is only kept for rejections.
type StatusChange struct {
	Status ApprovalStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}
