package publish

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/audit"
	"github.com/plumapost/pluma-backend/internal/metrics"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/platform"
	"github.com/plumapost/pluma-backend/internal/resolve"
)

// ThreadPublisher drives thread publication per linked account: either a
// sequential reply chain or one compiled post, selected by the link's
// publish mode. Chains are strictly sequential within one account because
// each segment needs the previous segment's external id; accounts run
// independently of each other.
type ThreadPublisher struct {
	Threads    ThreadStore
	Deliveries SegmentDeliveryStore
	Accounts   AccountStore
	Registry   *platform.Registry
	Resolver   *resolve.Resolver
	Audit      audit.Log
	Logger     *logrus.Logger

	// DelayFor returns the inter-segment pause for a platform slug.
	DelayFor func(slug string) time.Duration
	// Sleep is swappable so tests don't wait out real delays.
	Sleep func(time.Duration)

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewThreadPublisher(threads ThreadStore, deliveries SegmentDeliveryStore, accounts AccountStore,
	registry *platform.Registry, resolver *resolve.Resolver, auditLog audit.Log,
	delayFor func(string) time.Duration, logger *logrus.Logger) *ThreadPublisher {
	return &ThreadPublisher{
		Threads:    threads,
		Deliveries: deliveries,
		Accounts:   accounts,
		Registry:   registry,
		Resolver:   resolver,
		Audit:      auditLog,
		Logger:     logger,
		DelayFor:   delayFor,
		Sleep:      time.Sleep,
		inflight:   make(map[string]struct{}),
	}
}

// chainState is the fold state threaded through the reply loop: the reply
// target for the next segment and the head of the chain for the closing
// back-reference.
type chainState struct {
	prevExternalID string
	firstID        string
	firstPermalink string
}

// PublishAll publishes the thread to every linked account, accounts in
// parallel, then rolls the link statuses up into the thread status.
func (p *ThreadPublisher) PublishAll(ctx context.Context, threadID int) error {
	thread, err := p.Threads.GetByID(threadID)
	if err != nil {
		return err
	}

	links, err := p.Threads.ListLinks(threadID)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		if err := p.Threads.UpdateStatus(threadID, model.ContentFailed); err != nil {
			return err
		}
		return fmt.Errorf("thread %d has no linked accounts", threadID)
	}

	if err := p.Threads.UpdateStatus(threadID, model.ContentPublishing); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, link := range links {
		wg.Add(1)
		go func(link model.AccountLink) {
			defer wg.Done()
			if err := p.publishLink(ctx, *thread, link); err != nil {
				p.Logger.WithFields(logrus.Fields{
					"thread_id":  threadID,
					"account_id": link.AccountID,
				}).WithError(err).Error("account publish failed")
			}
		}(link)
	}
	wg.Wait()

	return p.aggregateThread(threadID)
}

// PublishToAccount publishes the thread to a single linked account.
func (p *ThreadPublisher) PublishToAccount(ctx context.Context, threadID, accountID int) error {
	thread, err := p.Threads.GetByID(threadID)
	if err != nil {
		return err
	}
	link, err := p.Threads.GetLink(threadID, accountID)
	if err != nil {
		return err
	}

	if thread.Status != model.ContentPublishing {
		if err := p.Threads.UpdateStatus(threadID, model.ContentPublishing); err != nil {
			return err
		}
	}

	if err := p.publishLink(ctx, *thread, *link); err != nil {
		return err
	}
	return p.aggregateThread(threadID)
}

// ResetAccount rewinds one account's deliveries and link back to pending so
// the whole chain can be re-run from scratch. This is distinct from resume,
// which keeps prior successes.
func (p *ThreadPublisher) ResetAccount(threadID, accountID int) error {
	if !p.tryAcquire(threadID, accountID) {
		return fmt.Errorf("thread %d account %d is currently publishing", threadID, accountID)
	}
	defer p.release(threadID, accountID)

	link, err := p.Threads.GetLink(threadID, accountID)
	if err != nil {
		return err
	}
	if err := p.Deliveries.ResetForThreadAccount(threadID, accountID); err != nil {
		return err
	}
	return p.Threads.UpdateLinkStatus(link.ID, model.LinkPending)
}

func (p *ThreadPublisher) publishLink(ctx context.Context, thread model.Thread, link model.AccountLink) error {
	if !p.tryAcquire(thread.ID, link.AccountID) {
		return fmt.Errorf("thread %d account %d is already publishing", thread.ID, link.AccountID)
	}
	defer p.release(thread.ID, link.AccountID)

	account, err := p.Accounts.GetByID(link.AccountID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		p.Logger.WithField("account_id", account.ID).Warn("skipping inactive account")
		return nil
	}

	switch link.Mode {
	case model.ModeThread:
		return p.publishThreadMode(ctx, thread, link, *account)
	case model.ModeCompiled:
		return p.publishCompiled(ctx, thread, link, *account)
	default:
		return fmt.Errorf("unknown publish mode %q", link.Mode)
	}
}

// publishThreadMode walks the segments in position order, replying to the
// previous external id. Already-published segments are skipped but still
// advance the chain, which makes the whole walk safe to re-run after a
// partial failure.
func (p *ThreadPublisher) publishThreadMode(ctx context.Context, thread model.Thread, link model.AccountLink, account model.SocialAccount) error {
	adapter, err := p.Registry.ResolveThreadable(account.PlatformSlug)
	if err != nil {
		return p.failAllPending(thread, link, account, err.Error())
	}

	if err := p.Threads.UpdateLinkStatus(link.ID, model.LinkPublishing); err != nil {
		return err
	}

	deliveries, err := p.Deliveries.ListForThreadAccount(thread.ID, link.AccountID)
	if err != nil {
		return err
	}
	segments := segmentsByPosition(thread)

	var chain chainState
	for i := range deliveries {
		d := &deliveries[i]

		if d.Status == model.DeliveryPublished && d.ExternalID != "" {
			chain.prevExternalID = d.ExternalID
			if chain.firstID == "" {
				chain.firstID = d.ExternalID
				chain.firstPermalink = d.Permalink
			}
			continue
		}
		if d.Status == model.DeliverySkipped {
			continue
		}

		seg, ok := segments[d.Position]
		if !ok {
			p.failSegment(d, account, fmt.Sprintf("segment at position %d is missing", d.Position))
			p.cascade(deliveries[i+1:], account)
			break
		}

		result, pubErr := p.publishSegment(ctx, adapter, account, thread, seg, d,
			&chain, i == len(deliveries)-1)
		if pubErr != nil {
			p.failSegment(d, account, pubErr.Error())
			p.cascade(deliveries[i+1:], account)
			break
		}

		chain.prevExternalID = result.ExternalID
		if chain.firstID == "" {
			chain.firstID = result.ExternalID
			chain.firstPermalink = result.Permalink
		}

		if i < len(deliveries)-1 {
			p.Sleep(p.DelayFor(account.PlatformSlug))
		}
	}

	return p.aggregateLink(thread.ID, link)
}

// publishSegment performs one adapter call and persists the success. Panics
// are converted to errors here so a bug in resolution or an adapter can
// never strand the delivery in publishing.
func (p *ThreadPublisher) publishSegment(ctx context.Context, adapter platform.ThreadAdapter,
	account model.SocialAccount, thread model.Thread, seg model.Segment,
	d *model.SegmentDelivery, chain *chainState, last bool) (result platform.Result, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	d.Status = model.DeliveryPublishing
	if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
		return platform.Result{}, err
	}

	// Decorations go on the head of the chain only; branding every reply
	// reads like spam.
	opts := resolve.Options{}
	if seg.Position == 1 {
		opts = resolve.Options{Hashtags: thread.Hashtags, Branding: true}
	}
	content, err := p.Resolver.Segment(ctx, seg, account, account.PlatformSlug, opts)
	if err != nil {
		return platform.Result{}, err
	}

	// The closing segment points back at the head so readers landing on it
	// can find the start.
	if last && chain.firstPermalink != "" {
		content.Text += adapter.BackReference(chain.firstPermalink)
	}

	start := time.Now()
	if chain.prevExternalID == "" {
		result, err = adapter.Publish(ctx, account, content)
	} else {
		result, err = adapter.PublishReply(ctx, account, content, chain.prevExternalID)
	}
	metrics.AdapterCallDuration.WithLabelValues(account.PlatformSlug).
		Observe(time.Since(start).Seconds())
	if err != nil {
		return platform.Result{}, err
	}

	now := time.Now()
	d.Status = model.DeliveryPublished
	d.ExternalID = result.ExternalID
	d.Permalink = result.Permalink
	d.ErrorMessage = ""
	d.PublishedAt = &now
	if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
		return platform.Result{}, err
	}

	if err := p.Accounts.TouchLastUsed(account.ID); err != nil {
		p.Logger.WithField("account_id", account.ID).WithError(err).
			Warn("failed to touch account activity")
	}
	p.record(d.ID, "published", result.Permalink)
	metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryPublished)).Inc()
	return result, nil
}

// cascade marks every still-pending later segment failed: without a parent
// id the rest of the chain cannot be published. Anything already published
// or skipped is left alone; a success is never downgraded.
func (p *ThreadPublisher) cascade(rest []model.SegmentDelivery, account model.SocialAccount) {
	for i := range rest {
		d := &rest[i]
		if d.Status != model.DeliveryPending {
			continue
		}
		d.Status = model.DeliveryFailed
		d.ErrorMessage = "previous segment failed"
		if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
			p.Logger.WithField("delivery_id", d.ID).WithError(err).
				Error("failed to cascade segment failure")
			continue
		}
		p.record(d.ID, "publish_failed", d.ErrorMessage)
		metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryFailed)).Inc()
	}
}

// publishCompiled merges all segments into one post. Only the first
// segment's delivery carries the real external id; the rest are skipped so
// the segment-delivery pairing stays intact.
func (p *ThreadPublisher) publishCompiled(ctx context.Context, thread model.Thread, link model.AccountLink, account model.SocialAccount) error {
	adapter, err := p.Registry.Resolve(account.PlatformSlug)
	if err != nil {
		return p.failAllPending(thread, link, account, err.Error())
	}

	if err := p.Threads.UpdateLinkStatus(link.ID, model.LinkPublishing); err != nil {
		return err
	}

	deliveries, err := p.Deliveries.ListForThreadAccount(thread.ID, link.AccountID)
	if err != nil {
		return err
	}
	if len(deliveries) == 0 {
		return p.aggregateLink(thread.ID, link)
	}

	head := &deliveries[0]
	if head.Status.Terminal() {
		// Re-run after a success: make sure the tail is marked and move on.
		p.skipRest(deliveries[1:], "")
		return p.aggregateLink(thread.ID, link)
	}

	result, pubErr := p.compileAndPublish(ctx, adapter, account, thread)
	if pubErr != nil {
		p.failSegment(head, account, pubErr.Error())
		p.skipRest(deliveries[1:], pubErr.Error())
		return p.aggregateLink(thread.ID, link)
	}

	now := time.Now()
	head.Status = model.DeliveryPublished
	head.ExternalID = result.ExternalID
	head.Permalink = result.Permalink
	head.ErrorMessage = ""
	head.PublishedAt = &now
	if err := p.Deliveries.UpdateSegmentDelivery(head); err != nil {
		return err
	}
	p.record(head.ID, "published", result.Permalink)
	metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryPublished)).Inc()

	if err := p.Accounts.TouchLastUsed(account.ID); err != nil {
		p.Logger.WithField("account_id", account.ID).WithError(err).
			Warn("failed to touch account activity")
	}

	p.skipRest(deliveries[1:], "")
	return p.aggregateLink(thread.ID, link)
}

func (p *ThreadPublisher) compileAndPublish(ctx context.Context, adapter platform.Adapter,
	account model.SocialAccount, thread model.Thread) (result platform.Result, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	bodies := make([]string, 0, len(thread.Segments))
	var mediaRefs []model.MediaRef
	for _, seg := range thread.Segments {
		bodies = append(bodies, seg.BodyFor(account.PlatformSlug))
		mediaRefs = append(mediaRefs, seg.Media...)
	}

	text, err := p.Resolver.Text(ctx, resolve.Owner{Type: "thread", ID: thread.ID},
		strings.Join(bodies, "\n\n"), account,
		resolve.Options{Hashtags: thread.Hashtags, Branding: true})
	if err != nil {
		return platform.Result{}, err
	}
	mediaList, err := p.Resolver.MediaList(mediaRefs)
	if err != nil {
		return platform.Result{}, err
	}

	start := time.Now()
	result, err = adapter.Publish(ctx, account, platform.Content{Text: text, Media: mediaList})
	metrics.AdapterCallDuration.WithLabelValues(account.PlatformSlug).
		Observe(time.Since(start).Seconds())
	return result, err
}

// skipRest marks non-terminal tail deliveries skipped on success or failed
// (sharing the head's error) on failure.
func (p *ThreadPublisher) skipRest(rest []model.SegmentDelivery, errMessage string) {
	for i := range rest {
		d := &rest[i]
		if d.Status.Terminal() {
			continue
		}
		if errMessage == "" {
			d.Status = model.DeliverySkipped
			d.ErrorMessage = ""
		} else {
			d.Status = model.DeliveryFailed
			d.ErrorMessage = errMessage
		}
		if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
			p.Logger.WithField("delivery_id", d.ID).WithError(err).
				Error("failed to update compiled tail delivery")
		}
	}
}

func (p *ThreadPublisher) failSegment(d *model.SegmentDelivery, account model.SocialAccount, message string) {
	d.Status = model.DeliveryFailed
	d.ErrorMessage = message
	if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
		p.Logger.WithField("delivery_id", d.ID).WithError(err).
			Error("failed to persist segment failure")
		return
	}
	p.record(d.ID, "publish_failed", message)
	metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryFailed)).Inc()
}

// failAllPending handles capability errors: the whole chain is foreclosed
// before the first adapter call.
func (p *ThreadPublisher) failAllPending(thread model.Thread, link model.AccountLink, account model.SocialAccount, message string) error {
	deliveries, err := p.Deliveries.ListForThreadAccount(thread.ID, link.AccountID)
	if err != nil {
		return err
	}
	for i := range deliveries {
		d := &deliveries[i]
		if d.Status.Terminal() {
			continue
		}
		d.Status = model.DeliveryFailed
		d.ErrorMessage = message
		if err := p.Deliveries.UpdateSegmentDelivery(d); err != nil {
			p.Logger.WithField("delivery_id", d.ID).WithError(err).
				Error("failed to persist capability failure")
		}
	}
	return p.aggregateLink(thread.ID, link)
}

func (p *ThreadPublisher) record(deliveryID int, action, details string) {
	if err := p.Audit.Record("segment", deliveryID, action, details); err != nil {
		p.Logger.WithField("delivery_id", deliveryID).WithError(err).
			Warn("failed to write audit entry")
	}
}

// aggregateLink recomputes one link's status from its delivery multiset.
func (p *ThreadPublisher) aggregateLink(threadID int, link model.AccountLink) error {
	deliveries, err := p.Deliveries.ListForThreadAccount(threadID, link.AccountID)
	if err != nil {
		return err
	}
	statuses := make([]model.DeliveryStatus, len(deliveries))
	for i, d := range deliveries {
		statuses[i] = d.Status
	}

	next := TallyDeliveries(statuses).RollLink(model.LinkPublishing)
	return p.Threads.UpdateLinkStatus(link.ID, next)
}

// aggregateThread rolls all link statuses up to the thread.
func (p *ThreadPublisher) aggregateThread(threadID int) error {
	links, err := p.Threads.ListLinks(threadID)
	if err != nil {
		return err
	}
	statuses := make([]model.LinkStatus, len(links))
	for i, link := range links {
		statuses[i] = link.Status
	}

	thread, err := p.Threads.GetByID(threadID)
	if err != nil {
		return err
	}
	next := TallyLinks(statuses).RollContent(thread.Status)
	if next == thread.Status {
		return nil
	}
	return p.Threads.UpdateStatus(threadID, next)
}

func segmentsByPosition(thread model.Thread) map[int]model.Segment {
	m := make(map[int]model.Segment, len(thread.Segments))
	for _, seg := range thread.Segments {
		m[seg.Position] = seg
	}
	return m
}

func (p *ThreadPublisher) key(threadID, accountID int) string {
	return fmt.Sprintf("%d:%d", threadID, accountID)
}

// tryAcquire enforces single-flight per (thread, account): two workers must
// never drive the same reply chain at once.
func (p *ThreadPublisher) tryAcquire(threadID, accountID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.key(threadID, accountID)
	if _, busy := p.inflight[key]; busy {
		return false
	}
	p.inflight[key] = struct{}{}
	return true
}

func (p *ThreadPublisher) release(threadID, accountID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, p.key(threadID, accountID))
}
