package models

import (
	"encoding/json"
	"time"
)

// AuditLog is an append-only backend audit record.
type AuditLog struct {
	LogID       int64           `json:"log_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	ActorUserID *int64          `json:"actor_user_id,omitempty"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    *string         `json:"entity_id,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// Pagination is the backend's page descriptor for audit logs.
type Pagination struct {
	Total   *int `json:"total,omitempty"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// AuditLogPage is one server page of audit logs.
type AuditLogPage struct {
	Logs       []AuditLog `json:"logs"`
	Pagination Pagination `json:"pagination"`
}
