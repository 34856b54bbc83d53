package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/plumapost/pluma-backend/internal/publish"
)

// DueLister finds scheduled content whose publish time has passed.
type DueLister interface {
	ListDue(now time.Time) ([]int, error)
}

// PostTrigger and ThreadTrigger kick the publish pipelines.
type PostTrigger interface {
	Publish(ctx context.Context, postID int) (*publish.PublishResult, error)
}

type ThreadTrigger interface {
	PublishAll(ctx context.Context, threadID int) error
}

// Scheduler polls for due posts and threads and hands them to the
// publishers. The trigger is time-based; everything downstream is the
// normal publish pipeline.
type Scheduler struct {
	Posts         DueLister
	Threads       DueLister
	PostPublish   PostTrigger
	ThreadPublish ThreadTrigger
	Logger        *logrus.Logger

	scheduler gocron.Scheduler
}

func New(posts, threads DueLister, postPublish PostTrigger, threadPublish ThreadTrigger, logger *logrus.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	return &Scheduler{
		Posts:         posts,
		Threads:       threads,
		PostPublish:   postPublish,
		ThreadPublish: threadPublish,
		Logger:        logger,
		scheduler:     s,
	}, nil
}

// Start registers the polling job and begins ticking.
func (s *Scheduler) Start(interval time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.tick),
		gocron.WithName("publish-due-content"),
	)
	if err != nil {
		return fmt.Errorf("creating publish job: %w", err)
	}
	s.scheduler.Start()
	return nil
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	now := time.Now()

	postIDs, err := s.Posts.ListDue(now)
	if err != nil {
		s.Logger.WithError(err).Error("listing due posts")
	}
	for _, id := range postIDs {
		s.Logger.WithField("post_id", id).Info("publishing scheduled post")
		if _, err := s.PostPublish.Publish(ctx, id); err != nil {
			s.Logger.WithField("post_id", id).WithError(err).Error("scheduled post publish failed")
		}
	}

	threadIDs, err := s.Threads.ListDue(now)
	if err != nil {
		s.Logger.WithError(err).Error("listing due threads")
	}
	for _, id := range threadIDs {
		s.Logger.WithField("thread_id", id).Info("publishing scheduled thread")
		if err := s.ThreadPublish.PublishAll(ctx, id); err != nil {
			s.Logger.WithField("thread_id", id).WithError(err).Error("scheduled thread publish failed")
		}
	}
}
