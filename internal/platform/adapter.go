package platform

import (
	"context"

	"github.com/plumapost/pluma-backend/internal/model"
)

// Content is the fully resolved payload handed to an adapter. Media URLs are
// already signed and publicly fetchable.
type Content struct {
	Text  string
	Media []Media
}

// Media is one attachment, resolved to a public URL.
type Media struct {
	URL      string
	MimeType string
	AltText  string
}

// Result is what a successful adapter call yields.
type Result struct {
	ExternalID string
	Permalink  string
}

// Adapter publishes content to one external platform. Adapters perform
// exactly one external call per invocation and never touch persistence;
// every failure is an ordinary error return that the delivery boundary
// turns into a failed delivery.
type Adapter interface {
	Slug() string
	Publish(ctx context.Context, account model.SocialAccount, content Content) (Result, error)
}

// ThreadAdapter is implemented by platforms where a thread is a literal
// reply chain.
type ThreadAdapter interface {
	Adapter
	PublishReply(ctx context.Context, account model.SocialAccount, content Content, inReplyToID string) (Result, error)
	// BackReference formats the link a closing segment carries back to the
	// head of the thread. The format is a platform convention, so it lives
	// on the adapter.
	BackReference(permalink string) string
}
