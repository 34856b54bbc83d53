package main

import (
	"context"

	"github.com/plumapost/pluma-backend/internal/config"
	"github.com/plumapost/pluma-backend/internal/db"
	"github.com/plumapost/pluma-backend/internal/logging"
	"github.com/plumapost/pluma-backend/internal/model"
	"github.com/plumapost/pluma-backend/internal/repository"
)

func main() {
	logger := logging.NewLoggerWithService("seeder")

	cfg, err := config.Load(context.Background())
	if err != nil {
		logger.WithError(err).Fatal("loading config")
	}

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("connecting to database")
	}
	defer conn.Close()

	platforms := &repository.PlatformRepository{DB: conn}
	for _, p := range []model.Platform{
		{Slug: "mastodon", Name: "Mastodon", Threadable: true},
		{Slug: "bluesky", Name: "Bluesky", Threadable: true},
		{Slug: "telegram", Name: "Telegram", Threadable: false},
	} {
		if err := platforms.Create(&p); err != nil {
			logger.WithField("slug", p.Slug).WithError(err).Fatal("seeding platform")
		}
		logger.WithField("slug", p.Slug).Info("platform seeded")
	}

	_, err = conn.Exec(`
        INSERT INTO social_accounts (platform_id, handle, credentials, languages, branding_text, show_branding, is_active)
        SELECT p.id, 'demo@mastodon.social',
               '{"access_token": "replace-me", "instance_url": "https://mastodon.social"}',
               'en', 'via pluma', true, true
        FROM platforms p
        WHERE p.slug = 'mastodon'
          AND NOT EXISTS (SELECT 1 FROM social_accounts WHERE handle = 'demo@mastodon.social')
    `)
	if err != nil {
		logger.WithError(err).Fatal("seeding demo account")
	}

	logger.Info("seed complete")
}
