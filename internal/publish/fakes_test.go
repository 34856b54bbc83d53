package publish

import (
	"context"
	"fmt"
	"sync"

	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/platform"
)

type fakePosts struct {
	posts map[int]*model.Post
}

func (f *fakePosts) GetByID(id int) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %d not found", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePosts) UpdateStatus(id int, status model.ContentStatus) error {
	f.posts[id].Status = status
	return nil
}

type fakePostDeliveries struct {
	items map[int]*model.PostDelivery
}

func (f *fakePostDeliveries) GetPostDelivery(id int) (*model.PostDelivery, error) {
	d, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("delivery %d not found", id)
	}
	copied := *d
	return &copied, nil
}

func (f *fakePostDeliveries) ListPendingForPost(postID int) ([]model.PostDelivery, error) {
	var out []model.PostDelivery
	for _, d := range f.items {
		if d.PostID == postID && d.Status == model.DeliveryPending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakePostDeliveries) ListStatusesForPost(postID int) ([]model.DeliveryStatus, error) {
	var out []model.DeliveryStatus
	for _, d := range f.items {
		if d.PostID == postID {
			out = append(out, d.Status)
		}
	}
	return out, nil
}

func (f *fakePostDeliveries) UpdatePostDelivery(d *model.PostDelivery) error {
	copied := *d
	f.items[d.ID] = &copied
	return nil
}

type fakeThreads struct {
	thread       *model.Thread
	links        []*model.AccountLink
	statusLog    []model.ContentStatus
	linkStatuses map[int][]model.LinkStatus
}

func (f *fakeThreads) GetByID(id int) (*model.Thread, error) {
	if f.thread == nil || f.thread.ID != id {
		return nil, fmt.Errorf("thread %d not found", id)
	}
	copied := *f.thread
	return &copied, nil
}

func (f *fakeThreads) UpdateStatus(id int, status model.ContentStatus) error {
	f.thread.Status = status
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeThreads) GetLink(threadID, accountID int) (*model.AccountLink, error) {
	for _, l := range f.links {
		if l.ThreadID == threadID && l.AccountID == accountID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("link for account %d not found", accountID)
}

func (f *fakeThreads) ListLinks(threadID int) ([]model.AccountLink, error) {
	var out []model.AccountLink
	for _, l := range f.links {
		if l.ThreadID == threadID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeThreads) UpdateLinkStatus(linkID int, status model.LinkStatus) error {
	for _, l := range f.links {
		if l.ID == linkID {
			l.Status = status
			if f.linkStatuses == nil {
				f.linkStatuses = map[int][]model.LinkStatus{}
			}
			f.linkStatuses[linkID] = append(f.linkStatuses[linkID], status)
			return nil
		}
	}
	return fmt.Errorf("link %d not found", linkID)
}

type fakeSegDeliveries struct {
	items []*model.SegmentDelivery // kept in position order
}

func (f *fakeSegDeliveries) ListForThreadAccount(threadID, accountID int) ([]model.SegmentDelivery, error) {
	var out []model.SegmentDelivery
	for _, d := range f.items {
		if d.AccountID == accountID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeSegDeliveries) UpdateSegmentDelivery(d *model.SegmentDelivery) error {
	for _, existing := range f.items {
		if existing.ID == d.ID {
			*existing = *d
			return nil
		}
	}
	return fmt.Errorf("segment delivery %d not found", d.ID)
}

func (f *fakeSegDeliveries) ResetForThreadAccount(threadID, accountID int) error {
	for _, d := range f.items {
		if d.AccountID == accountID {
			d.Status = model.DeliveryPending
			d.ExternalID = ""
			d.Permalink = ""
			d.ErrorMessage = ""
			d.PublishedAt = nil
		}
	}
	return nil
}

func (f *fakeSegDeliveries) byPosition(position int) *model.SegmentDelivery {
	for _, d := range f.items {
		if d.Position == position {
			return d
		}
	}
	return nil
}

type fakeAccounts struct {
	accounts map[int]*model.SocialAccount
	touched  []int
}

func (f *fakeAccounts) GetByID(id int) (*model.SocialAccount, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d not found", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccounts) TouchLastUsed(id int) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeAudit) Record(deliveryType string, deliveryID int, action, details string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, fmt.Sprintf("%s/%d/%s", deliveryType, deliveryID, action))
	return nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
	topics    []string
}

func (f *fakeQueue) Publish(topic string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.published = append(f.published, body)
	return nil
}

func (f *fakeQueue) Subscribe(topic string, handler func(body []byte) error) error {
	return nil
}

// scriptedAdapter replays a canned sequence of results across Publish and
// PublishReply calls, recording everything it was asked to post.
type scriptedAdapter struct {
	slug    string
	results []scriptStep

	calls      int
	published  []platform.Content
	replyTo    []string
	lastTexts  []string
	threadable bool
}

type scriptStep struct {
	result platform.Result
	err    error
}

func (a *scriptedAdapter) Slug() string { return a.slug }

func (a *scriptedAdapter) step() (platform.Result, error) {
	if a.calls >= len(a.results) {
		return platform.Result{}, fmt.Errorf("unscripted adapter call %d", a.calls)
	}
	s := a.results[a.calls]
	a.calls++
	return s.result, s.err
}

func (a *scriptedAdapter) Publish(ctx context.Context, account model.SocialAccount, content platform.Content) (platform.Result, error) {
	a.published = append(a.published, content)
	a.lastTexts = append(a.lastTexts, content.Text)
	return a.step()
}

func (a *scriptedAdapter) PublishReply(ctx context.Context, account model.SocialAccount, content platform.Content, inReplyToID string) (platform.Result, error) {
	a.published = append(a.published, content)
	a.replyTo = append(a.replyTo, inReplyToID)
	a.lastTexts = append(a.lastTexts, content.Text)
	return a.step()
}

func (a *scriptedAdapter) BackReference(permalink string) string {
	return "\n\nThread starts here: " + permalink
}

// plainAdapter publishes but cannot reply; used for capability errors and
// compiled mode.
type plainAdapter struct {
	slug      string
	results   []scriptStep
	calls     int
	published []platform.Content
}

func (a *plainAdapter) Slug() string { return a.slug }

func (a *plainAdapter) Publish(ctx context.Context, account model.SocialAccount, content platform.Content) (platform.Result, error) {
	a.published = append(a.published, content)
	if a.calls >= len(a.results) {
		return platform.Result{}, fmt.Errorf("unscripted adapter call %d", a.calls)
	}
	s := a.results[a.calls]
	a.calls++
	return s.result, s.err
}

type memTranslations struct {
	mu    sync.Mutex
	store map[string]string
}

func (m *memTranslations) key(ownerType string, ownerID int, lang string) string {
	return fmt.Sprintf("%s/%d/%s", ownerType, ownerID, lang)
}

func (m *memTranslations) Get(ownerType string, ownerID int, lang string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[m.key(ownerType, ownerID, lang)], nil
}

func (m *memTranslations) Put(ownerType string, ownerID int, lang, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = map[string]string{}
	}
	m.store[m.key(ownerType, ownerID, lang)] = body
	return nil
}
