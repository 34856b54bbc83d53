package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plumapost/pluma-backend/internal/audit"
	"github.com/plumapost/pluma-backend/internal/config"
	"github.com/plumapost/pluma-backend/internal/controller"
	"github.com/plumapost/pluma-backend/internal/db"
	"github.com/plumapost/pluma-backend/internal/logging"
	"github.com/plumapost/pluma-backend/internal/media"
	"github.com/plumapost/pluma-backend/internal/platform"
	"github.com/plumapost/pluma-backend/internal/publish"
	"github.com/plumapost/pluma-backend/internal/queue"
	"github.com/plumapost/pluma-backend/internal/repository"
	"github.com/plumapost/pluma-backend/internal/resolve"
	"github.com/plumapost/pluma-backend/internal/scheduler"
)

func main() {
	logger := logging.NewLoggerWithService("server")

	cfg, err := config.Load(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("loading config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connecting to database")
	}
	defer conn.Close()

	postRepo := &repository.PostRepository{DB: conn}
	threadRepo := &repository.ThreadRepository{DB: conn}
	deliveryRepo := &repository.DeliveryRepository{DB: conn}
	accountRepo := &repository.AccountRepository{DB: conn}
	platformRepo := &repository.PlatformRepository{DB: conn}
	translationRepo := &repository.TranslationRepository{DB: conn}
	auditLog := &audit.SQLLog{DB: conn}

	registry, err := platform.NewRegistry(
		platform.NewMastodonAdapter(cfg.MastodonBaseURL),
		platform.NewBlueskyAdapter(cfg.BlueskyBaseURL),
		platform.NewTelegramAdapter(cfg.TelegramBaseURL),
	)
	if err != nil {
		logger.WithError(err).Fatal("building adapter registry")
	}
	slugs, err := platformRepo.ListSlugs()
	if err != nil {
		logger.WithError(err).Fatal("listing platforms")
	}
	if err := registry.Validate(slugs); err != nil {
		logger.WithError(err).Fatal("platform table references an unknown adapter")
	}

	var translator resolve.Translator = resolve.NoopTranslator{}
	if cfg.TranslateURL != "" {
		translator = resolve.NewHTTPTranslator(cfg.TranslateURL, cfg.TranslateAPIKey)
	}

	signer := media.NewSignedResolver(cfg.MediaBaseURL, cfg.MediaRoot, cfg.MediaSecret)
	resolver := &resolve.Resolver{
		Translator:      translator,
		Store:           translationRepo,
		Media:           signer,
		DefaultLanguage: cfg.DefaultLanguage,
		MediaTTL:        cfg.MediaURLTTL,
	}

	processor := &publish.DeliveryProcessor{
		Posts:      postRepo,
		Deliveries: deliveryRepo,
		Accounts:   accountRepo,
		Registry:   registry,
		Resolver:   resolver,
		Audit:      auditLog,
		Logger:     logger,
	}

	// Post-delivery jobs normally go through RabbitMQ and the worker
	// binary; without a broker the server runs them in-process.
	var dispatch queue.Queue
	if amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, cfg.MaxRetries, logger); err != nil {
		logger.WithError(err).Warn("no AMQP broker, running deliveries in-process")
		memQueue := queue.NewInMemoryQueue(cfg.MaxRetries, logger)
		memQueue.Subscribe(cfg.DeliveryQueue, processor.HandleJob)
		dispatch = memQueue
	} else {
		defer amqpQueue.Close()
		dispatch = amqpQueue
	}

	postPublisher := &publish.PostPublisher{
		Posts:      postRepo,
		Deliveries: deliveryRepo,
		Queue:      dispatch,
		Topic:      cfg.DeliveryQueue,
		Logger:     logger,
	}
	threadPublisher := publish.NewThreadPublisher(
		threadRepo, deliveryRepo, accountRepo, registry, resolver, auditLog,
		cfg.SegmentDelayFor, logger,
	)

	sched, err := scheduler.New(postRepo, threadRepo, postPublisher, threadPublisher, logger)
	if err != nil {
		logger.WithError(err).Fatal("creating scheduler")
	}
	if err := sched.Start(cfg.SchedulerInterval); err != nil {
		logger.WithError(err).Fatal("starting scheduler")
	}
	defer sched.Stop()

	postController := &controller.PostController{
		Posts:      postRepo,
		Deliveries: deliveryRepo,
		Publisher:  postPublisher,
		Logger:     logger,
	}
	threadController := &controller.ThreadController{
		Threads:    threadRepo,
		Deliveries: deliveryRepo,
		Publisher:  threadPublisher,
		Logger:     logger,
	}
	mediaController := &controller.MediaController{Resolver: signer}

	r := chi.NewRouter()

	r.Post("/posts", postController.Create)
	r.Get("/posts/{id}", postController.Get)
	r.Post("/posts/{id}/accounts/{accountID}", postController.LinkAccount)
	r.Post("/posts/{id}/publish", postController.Publish)

	r.Post("/threads", threadController.Create)
	r.Get("/threads/{id}", threadController.Get)
	r.Post("/threads/{id}/accounts/{accountID}", threadController.LinkAccount)
	r.Post("/threads/{id}/publish", threadController.Publish)
	r.Post("/threads/{id}/accounts/{accountID}/publish", threadController.PublishToAccount)
	r.Post("/threads/{id}/accounts/{accountID}/reset", threadController.ResetAccount)

	r.Get("/media/*", mediaController.Serve)
	r.Handle("/metrics", promhttp.Handler())

	logger.WithField("addr", cfg.HTTPAddr).Info("server listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
