package model

// ContentStatus is the aggregated status of a post or thread.
type ContentStatus string

const (
	ContentDraft      ContentStatus = "draft"
	ContentScheduled  ContentStatus = "scheduled"
	ContentPublishing ContentStatus = "publishing"
	ContentPublished  ContentStatus = "published"
	ContentPartial    ContentStatus = "partial"
	ContentFailed     ContentStatus = "failed"
)

// LinkStatus is the aggregated status of a thread against one account.
type LinkStatus string

const (
	LinkPending    LinkStatus = "pending"
	LinkPublishing LinkStatus = "publishing"
	LinkPublished  LinkStatus = "published"
	LinkPartial    LinkStatus = "partial"
	LinkFailed     LinkStatus = "failed"
)

// DeliveryStatus tracks one (content, account) publish attempt.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryPublishing DeliveryStatus = "publishing"
	DeliveryPublished  DeliveryStatus = "published"
	DeliveryFailed     DeliveryStatus = "failed"
	DeliverySkipped    DeliveryStatus = "skipped"
)

// Terminal reports whether the delivery reached a protected end state.
// Failed deliveries are deliberately not terminal: the queue may retry them.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryPublished || s == DeliverySkipped
}

// PublishMode selects the thread publishing strategy for one account link.
type PublishMode string

const (
	// ModeThread publishes segments as a literal reply chain.
	ModeThread PublishMode = "thread"
	// ModeCompiled merges all segments into a single post.
	ModeCompiled PublishMode = "compiled"
)
