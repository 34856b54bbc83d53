package model

import "time"

// Post is a standalone content unit published as-is to every linked account.
type Post struct {
	ID          int           `db:"id" json:"id"`
	Body        string        `db:"body" json:"body"`
	Hashtags    string        `db:"hashtags" json:"hashtags,omitempty"`
	Status      ContentStatus `db:"status" json:"status"`
	ScheduledAt *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`

	Media []MediaRef `json:"media,omitempty"`
}
