package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/audit"
	"github.com/plumapost/pluma-backend/internal/metrics"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/platform"
	"github.com/plumapost/pluma-backend/internal/resolve"
)

// DeliveryProcessor executes one post-delivery job: resolve content, call
// the adapter, persist the outcome and re-aggregate the post. It is the
// error boundary: nothing escapes it, so a delivery is never stranded in
// publishing by a bug.
type DeliveryProcessor struct {
	Posts      PostStore
	Deliveries PostDeliveryStore
	Accounts   AccountStore
	Registry   *platform.Registry
	Resolver   *resolve.Resolver
	Audit      audit.Log
	Logger     *logrus.Logger
}

// HandleJob is the queue subscriber entry point. A returned error asks the
// queue for a retry; capability and data errors return nil because retrying
// cannot fix them.
func (p *DeliveryProcessor) HandleJob(body []byte) error {
	var job struct {
		DeliveryID int `json:"delivery_id"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		p.Logger.WithError(err).Error("invalid delivery job payload")
		return nil
	}
	return p.Process(context.Background(), job.DeliveryID)
}

// Process runs one delivery to a terminal outcome.
func (p *DeliveryProcessor) Process(ctx context.Context, deliveryID int) (err error) {
	delivery, loadErr := p.Deliveries.GetPostDelivery(deliveryID)
	if loadErr != nil {
		var notFound *apperrors.ErrNotFound
		if errors.As(loadErr, &notFound) {
			p.Logger.WithField("delivery_id", deliveryID).Warn("delivery vanished, dropping job")
			return nil
		}
		return loadErr
	}

	// At-least-once dispatch: a redelivered job for a finished delivery is
	// a no-op, never a second adapter call.
	if delivery.Status.Terminal() {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.fail(delivery, fmt.Sprintf("unexpected error: %v", r))
			err = nil
		}
	}()

	account, loadErr := p.Accounts.GetByID(delivery.AccountID)
	if loadErr != nil {
		p.fail(delivery, loadErr.Error())
		return nil
	}

	adapter, loadErr := p.Registry.Resolve(account.PlatformSlug)
	if loadErr != nil {
		p.fail(delivery, loadErr.Error())
		return nil
	}

	post, loadErr := p.Posts.GetByID(delivery.PostID)
	if loadErr != nil {
		p.fail(delivery, loadErr.Error())
		return nil
	}

	content, resolveErr := p.Resolver.Post(ctx, *post, *account)
	if resolveErr != nil {
		p.fail(delivery, resolveErr.Error())
		return resolveErr
	}

	start := time.Now()
	result, pubErr := adapter.Publish(ctx, *account, content)
	metrics.AdapterCallDuration.WithLabelValues(account.PlatformSlug).
		Observe(time.Since(start).Seconds())

	if pubErr != nil {
		p.fail(delivery, pubErr.Error())
		metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryFailed)).Inc()
		return pubErr
	}

	now := time.Now()
	delivery.Status = model.DeliveryPublished
	delivery.ExternalID = result.ExternalID
	delivery.Permalink = result.Permalink
	delivery.ErrorMessage = ""
	delivery.PublishedAt = &now
	if err := p.Deliveries.UpdatePostDelivery(delivery); err != nil {
		return err
	}

	if err := p.Accounts.TouchLastUsed(account.ID); err != nil {
		p.Logger.WithField("account_id", account.ID).WithError(err).
			Warn("failed to touch account activity")
	}
	p.record(delivery.ID, "published", result.Permalink)
	metrics.DeliveriesTotal.WithLabelValues(account.PlatformSlug, string(model.DeliveryPublished)).Inc()

	p.Logger.WithFields(logrus.Fields{
		"delivery_id": delivery.ID,
		"post_id":     delivery.PostID,
		"platform":    account.PlatformSlug,
		"external_id": result.ExternalID,
	}).Info("delivery published")

	return p.aggregate(delivery.PostID)
}

func (p *DeliveryProcessor) fail(d *model.PostDelivery, message string) {
	d.Status = model.DeliveryFailed
	d.ErrorMessage = message
	if err := p.Deliveries.UpdatePostDelivery(d); err != nil {
		p.Logger.WithField("delivery_id", d.ID).WithError(err).
			Error("failed to persist delivery failure")
		return
	}
	p.record(d.ID, "publish_failed", message)
	if err := p.aggregate(d.PostID); err != nil {
		p.Logger.WithField("post_id", d.PostID).WithError(err).
			Error("failed to re-aggregate post status")
	}
}

func (p *DeliveryProcessor) record(deliveryID int, action, details string) {
	if err := p.Audit.Record("post", deliveryID, action, details); err != nil {
		p.Logger.WithField("delivery_id", deliveryID).WithError(err).
			Warn("failed to write audit entry")
	}
}

// aggregate recomputes the post status from its delivery multiset.
func (p *DeliveryProcessor) aggregate(postID int) error {
	statuses, err := p.Deliveries.ListStatusesForPost(postID)
	if err != nil {
		return err
	}
	post, err := p.Posts.GetByID(postID)
	if err != nil {
		return err
	}

	next := TallyDeliveries(statuses).RollContent(post.Status)
	if next == post.Status {
		return nil
	}
	return p.Posts.UpdateStatus(postID, next)
}
