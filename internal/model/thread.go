package model

import "time"

// Thread is an ordered sequence of segments published either as a reply
// chain or compiled into one post, per linked account.
type Thread struct {
	ID          int           `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Hashtags    string        `db:"hashtags" json:"hashtags,omitempty"`
	Status      ContentStatus `db:"status" json:"status"`
	ScheduledAt *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`

	Segments []Segment `json:"segments,omitempty"`
}

// Segment is one entry of a thread. Positions are 1-indexed and gapless
// within a thread.
type Segment struct {
	ID       int    `db:"id" json:"id"`
	ThreadID int    `db:"thread_id" json:"thread_id"`
	Position int    `db:"position" json:"position"`
	Body     string `db:"body" json:"body"`

	// Overrides maps a platform slug to a platform-specific body.
	Overrides map[string]string `json:"overrides,omitempty"`
	Media     []MediaRef        `json:"media,omitempty"`
}

// BodyFor returns the platform-specific body when one exists.
func (s Segment) BodyFor(slug string) string {
	if body, ok := s.Overrides[slug]; ok && body != "" {
		return body
	}
	return s.Body
}

// AccountLink associates a thread with one target account and carries the
// aggregated status of that account's deliveries.
type AccountLink struct {
	ID        int         `db:"id" json:"id"`
	ThreadID  int         `db:"thread_id" json:"thread_id"`
	AccountID int         `db:"account_id" json:"account_id"`
	Mode      PublishMode `db:"publish_mode" json:"publish_mode"`
	Status    LinkStatus  `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
