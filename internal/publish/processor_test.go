package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/platform"
	"github.com/plumapost/pluma-backend/internal/resolve"
)

func newTestResolver() *resolve.Resolver {
	return &resolve.Resolver{
		Translator:      resolve.NoopTranslator{},
		Store:           &memTranslations{},
		DefaultLanguage: "en",
	}
}

func newProcessor(t *testing.T, adapter platform.Adapter, posts *fakePosts,
	deliveries *fakePostDeliveries, accounts *fakeAccounts) (*DeliveryProcessor, *fakeAudit) {
	t.Helper()

	registry, err := platform.NewRegistry(adapter)
	require.NoError(t, err)

	auditLog := &fakeAudit{}
	return &DeliveryProcessor{
		Posts:      posts,
		Deliveries: deliveries,
		Accounts:   accounts,
		Registry:   registry,
		Resolver:   newTestResolver(),
		Audit:      auditLog,
		Logger:     newTestLogger(),
	}, auditLog
}

func TestProcessPublishesDelivery(t *testing.T) {
	adapter := &scriptedAdapter{slug: "mastodon", results: []scriptStep{
		{result: platform.Result{ExternalID: "ext-1", Permalink: "https://m.social/1"}},
	}}
	posts := &fakePosts{posts: map[int]*model.Post{
		1: {ID: 1, Body: "hello", Status: model.ContentPublishing},
	}}
	deliveries := &fakePostDeliveries{items: map[int]*model.PostDelivery{
		10: {ID: 10, PostID: 1, AccountID: 100, Status: model.DeliveryPublishing},
	}}
	accounts := &fakeAccounts{accounts: map[int]*model.SocialAccount{
		100: {ID: 100, PlatformSlug: "mastodon", Handle: "demo", Languages: "en", IsActive: true},
	}}

	p, auditLog := newProcessor(t, adapter, posts, deliveries, accounts)
	require.NoError(t, p.Process(context.Background(), 10))

	d := deliveries.items[10]
	assert.Equal(t, model.DeliveryPublished, d.Status)
	assert.Equal(t, "ext-1", d.ExternalID)
	assert.Equal(t, "https://m.social/1", d.Permalink)
	assert.NotNil(t, d.PublishedAt)
	assert.Empty(t, d.ErrorMessage)

	assert.Equal(t, model.ContentPublished, posts.posts[1].Status)
	assert.Contains(t, auditLog.entries, "post/10/published")
	assert.Equal(t, []int{100}, accounts.touched)
}

func TestProcessAdapterFailureMarksDeliveryFailed(t *testing.T) {
	adapter := &scriptedAdapter{slug: "mastodon", results: []scriptStep{
		{err: assert.AnError},
	}}
	posts := &fakePosts{posts: map[int]*model.Post{
		1: {ID: 1, Body: "hello", Status: model.ContentPublishing},
	}}
	deliveries := &fakePostDeliveries{items: map[int]*model.PostDelivery{
		10: {ID: 10, PostID: 1, AccountID: 100, Status: model.DeliveryPublishing},
	}}
	accounts := &fakeAccounts{accounts: map[int]*model.SocialAccount{
		100: {ID: 100, PlatformSlug: "mastodon", Languages: "en", IsActive: true},
	}}

	p, auditLog := newProcessor(t, adapter, posts, deliveries, accounts)

	// The error is surfaced so the queue can retry the transient failure.
	err := p.Process(context.Background(), 10)
	require.Error(t, err)

	d := deliveries.items[10]
	assert.Equal(t, model.DeliveryFailed, d.Status)
	assert.NotEmpty(t, d.ErrorMessage)
	assert.Equal(t, model.ContentFailed, posts.posts[1].Status)
	assert.Contains(t, auditLog.entries, "post/10/publish_failed")
}

func TestProcessUnknownPlatformFailsWithoutRetry(t *testing.T) {
	adapter := &scriptedAdapter{slug: "mastodon"}
	posts := &fakePosts{posts: map[int]*model.Post{
		1: {ID: 1, Status: model.ContentPublishing},
	}}
	deliveries := &fakePostDeliveries{items: map[int]*model.PostDelivery{
		10: {ID: 10, PostID: 1, AccountID: 100, Status: model.DeliveryPublishing},
	}}
	accounts := &fakeAccounts{accounts: map[int]*model.SocialAccount{
		100: {ID: 100, PlatformSlug: "myspace", Languages: "en", IsActive: true},
	}}

	p, _ := newProcessor(t, adapter, posts, deliveries, accounts)

	// nil: retrying a capability error cannot succeed.
	require.NoError(t, p.Process(context.Background(), 10))

	d := deliveries.items[10]
	assert.Equal(t, model.DeliveryFailed, d.Status)
	assert.Contains(t, d.ErrorMessage, "myspace")
	assert.Empty(t, adapter.published, "no adapter call may happen")
}

func TestProcessTerminalDeliveryIsNoOp(t *testing.T) {
	adapter := &scriptedAdapter{slug: "mastodon"}
	posts := &fakePosts{posts: map[int]*model.Post{1: {ID: 1}}}
	deliveries := &fakePostDeliveries{items: map[int]*model.PostDelivery{
		10: {ID: 10, PostID: 1, AccountID: 100, Status: model.DeliveryPublished, ExternalID: "ext-1"},
	}}
	accounts := &fakeAccounts{accounts: map[int]*model.SocialAccount{}}

	p, _ := newProcessor(t, adapter, posts, deliveries, accounts)
	require.NoError(t, p.Process(context.Background(), 10))

	assert.Empty(t, adapter.published, "redelivered job must not re-publish")
	assert.Equal(t, "ext-1", deliveries.items[10].ExternalID)
}
