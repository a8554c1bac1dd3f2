package models

import "time"

// PostJob records one attempt to publish an approved clip to a platform.
type PostJob struct {
	ID          string     `json:"id"`
	ClipID      string     `json:"clip_id"`
	Mode        PostMode   `json:"mode"`
	Status      PostStatus `json:"status"`
	ExternalRef string     `json:"external_ref,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
