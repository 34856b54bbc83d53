package repository

import (
	"database/sql"
	"time"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

type AccountRepository struct {
	DB *sql.DB
}

func (r *AccountRepository) GetByID(id int) (*model.SocialAccount, error) {
	query := `
        SELECT a.id, a.platform_id, p.slug, a.handle, a.credentials,
               COALESCE(a.languages, ''), COALESCE(a.branding_text, ''),
               a.show_branding, a.is_active, a.last_used_at
        FROM social_accounts a
        JOIN platforms p ON p.id = a.platform_id
        WHERE a.id = $1
    `
	var a model.SocialAccount
	err := r.DB.QueryRow(query, id).Scan(
		&a.ID, &a.PlatformID, &a.PlatformSlug, &a.Handle, &a.Credentials,
		&a.Languages, &a.BrandingText, &a.ShowBranding, &a.IsActive, &a.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("social account", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// TouchLastUsed stamps activity on a successful publish. The only account
// field the orchestrator ever writes.
func (r *AccountRepository) TouchLastUsed(id int) error {
	_, err := r.DB.Exec(
		`UPDATE social_accounts SET last_used_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

type PlatformRepository struct {
	DB *sql.DB
}

func (r *PlatformRepository) Create(p *model.Platform) error {
	query := `
        INSERT INTO platforms (slug, name, threadable)
        VALUES ($1, $2, $3)
        ON CONFLICT (slug) DO UPDATE SET name = $2, threadable = $3
        RETURNING id
    `
	return r.DB.QueryRow(query, p.Slug, p.Name, p.Threadable).Scan(&p.ID)
}

// ListSlugs feeds registry validation at startup.
func (r *PlatformRepository) ListSlugs() ([]string, error) {
	rows, err := r.DB.Query(`SELECT slug FROM platforms ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}
