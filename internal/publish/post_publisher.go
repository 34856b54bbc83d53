package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/metrics"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/queue"
)

// PostPublisher fans a post out to its pending deliveries, one queue job
// per delivery. Each job is independently retryable; the actual adapter
// call happens in DeliveryProcessor.
type PostPublisher struct {
	Posts      PostStore
	Deliveries PostDeliveryStore
	Queue      queue.Queue
	Topic      string
	Logger     *logrus.Logger
}

// PublishResult reports what Publish enqueued.
type PublishResult struct {
	PostID      int   `json:"post_id"`
	Queued      int   `json:"queued"`
	DeliveryIDs []int `json:"delivery_ids"`
}

// Publish moves the post to publishing and enqueues one job per pending
// delivery on an active account. A post with no eligible deliveries fails
// immediately rather than sitting in publishing forever.
func (p *PostPublisher) Publish(ctx context.Context, postID int) (*PublishResult, error) {
	post, err := p.Posts.GetByID(postID)
	if err != nil {
		return nil, err
	}
	if post.Status == model.ContentPublished {
		return nil, fmt.Errorf("post %d is already published", postID)
	}

	pending, err := p.Deliveries.ListPendingForPost(postID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		if err := p.Posts.UpdateStatus(postID, model.ContentFailed); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("post %d has no pending deliveries on active accounts", postID)
	}

	if err := p.Posts.UpdateStatus(postID, model.ContentPublishing); err != nil {
		return nil, err
	}

	result := &PublishResult{PostID: postID}
	for i := range pending {
		d := &pending[i]
		d.Status = model.DeliveryPublishing
		if err := p.Deliveries.UpdatePostDelivery(d); err != nil {
			p.Logger.WithField("delivery_id", d.ID).WithError(err).
				Error("failed to mark delivery publishing")
			continue
		}

		body, _ := json.Marshal(queue.DeliveryJob{DeliveryID: d.ID})
		if err := p.Queue.Publish(p.Topic, body); err != nil {
			p.Logger.WithField("delivery_id", d.ID).WithError(err).
				Error("failed to enqueue delivery")
			continue
		}
		metrics.QueuedJobs.WithLabelValues(p.Topic).Inc()

		result.DeliveryIDs = append(result.DeliveryIDs, d.ID)
		result.Queued++
	}

	p.Logger.WithFields(logrus.Fields{
		"post_id": postID,
		"queued":  result.Queued,
	}).Info("post deliveries enqueued")
	return result, nil
}
