package main

import (
	"context"

	"github.com/plumapost/pluma-backend/internal/audit"
	"github.com/plumapost/pluma-backend/internal/config"
	"github.com/plumapost/pluma-backend/internal/db"
	"github.com/plumapost/pluma-backend/internal/logging"
	"github.com/plumapost/pluma-backend/internal/media"
	"github.com/plumapost/pluma-backend/internal/platform"
	"github.com/plumapost/pluma-backend/internal/publish"
	"github.com/plumapost/pluma-backend/internal/queue"
	"github.com/plumapost/pluma-backend/internal/repository"
	"github.com/plumapost/pluma-backend/internal/resolve"
)

func main() {
	logger := logging.NewLoggerWithService("worker")

	cfg, err := config.Load(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("loading config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connecting to database")
	}
	defer conn.Close()

	registry, err := platform.NewRegistry(
		platform.NewMastodonAdapter(cfg.MastodonBaseURL),
		platform.NewBlueskyAdapter(cfg.BlueskyBaseURL),
		platform.NewTelegramAdapter(cfg.TelegramBaseURL),
	)
	if err != nil {
		logger.WithError(err).Fatal("building adapter registry")
	}

	var translator resolve.Translator = resolve.NoopTranslator{}
	if cfg.TranslateURL != "" {
		translator = resolve.NewHTTPTranslator(cfg.TranslateURL, cfg.TranslateAPIKey)
	}

	resolver := &resolve.Resolver{
		Translator:      translator,
		Store:           &repository.TranslationRepository{DB: conn},
		Media:           media.NewSignedResolver(cfg.MediaBaseURL, cfg.MediaRoot, cfg.MediaSecret),
		DefaultLanguage: cfg.DefaultLanguage,
		MediaTTL:        cfg.MediaURLTTL,
	}

	processor := &publish.DeliveryProcessor{
		Posts:      &repository.PostRepository{DB: conn},
		Deliveries: &repository.DeliveryRepository{DB: conn},
		Accounts:   &repository.AccountRepository{DB: conn},
		Registry:   registry,
		Resolver:   resolver,
		Audit:      &audit.SQLLog{DB: conn},
		Logger:     logger,
	}

	amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, cfg.MaxRetries, logger)
	if err != nil {
		logger.WithError(err).Fatal("connecting to AMQP")
	}
	defer amqpQueue.Close()

	if err := amqpQueue.Subscribe(cfg.DeliveryQueue, processor.HandleJob); err != nil {
		logger.WithError(err).Fatal("subscribing to delivery queue")
	}

	logger.WithField("queue", cfg.DeliveryQueue).Info("worker running, waiting for jobs")
	select {}
}
