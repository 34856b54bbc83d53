package model

import "time"

// PostDelivery records one attempt to publish a post to one account.
type PostDelivery struct {
	ID           int            `db:"id" json:"id"`
	PostID       int            `db:"post_id" json:"post_id"`
	AccountID    int            `db:"account_id" json:"account_id"`
	Status       DeliveryStatus `db:"status" json:"status"`
	ExternalID   string         `db:"external_id" json:"external_id,omitempty"`
	Permalink    string         `db:"permalink" json:"permalink,omitempty"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty"`
	PublishedAt  *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// SegmentDelivery records one attempt to publish a thread segment to one
// account. In compiled mode only the first segment's delivery carries the
// external id; the rest are skipped.
type SegmentDelivery struct {
	ID           int            `db:"id" json:"id"`
	SegmentID    int            `db:"segment_id" json:"segment_id"`
	AccountID    int            `db:"account_id" json:"account_id"`
	Position     int            `db:"position" json:"position"`
	Status       DeliveryStatus `db:"status" json:"status"`
	ExternalID   string         `db:"external_id" json:"external_id,omitempty"`
	Permalink    string         `db:"permalink" json:"permalink,omitempty"`
	ErrorMessage string         `db:"error_message" json:"error_message,omitempty"`
	PublishedAt  *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
