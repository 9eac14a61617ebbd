package dto

import "time"

// Tag is the DTO representation of a tag.
type Tag struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	UsageCount int64     `json:"usage_count,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// TagListResponse is the response for listing tags.
type TagListResponse struct {
	Success bool  `json:"success"`
	Tags    []Tag `json:"tags"`
}
