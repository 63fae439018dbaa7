package models

// Tag is a labeled entity, unique by ID.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
