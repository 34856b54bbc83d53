package repository

import (
	"database/sql"
	"time"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

type PostRepository struct {
	DB *sql.DB
}

func (r *PostRepository) Create(post *model.Post) error {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = model.ContentDraft
	}

	query := `
        INSERT INTO posts (body, hashtags, status, scheduled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		post.Body, post.Hashtags, post.Status, post.ScheduledAt,
		post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
}

func (r *PostRepository) GetByID(id int) (*model.Post, error) {
	query := `
        SELECT id, body, hashtags, status, scheduled_at, published_at, created_at, updated_at
        FROM posts
        WHERE id = $1
    `
	var post model.Post
	err := r.DB.QueryRow(query, id).Scan(
		&post.ID, &post.Body, &post.Hashtags, &post.Status,
		&post.ScheduledAt, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("post", id)
	}
	if err != nil {
		return nil, err
	}

	post.Media, err = r.mediaFor(post.ID)
	return &post, err
}

func (r *PostRepository) mediaFor(postID int) ([]model.MediaRef, error) {
	query := `
        SELECT id, local_path, mime_type, alt_text, position
        FROM media_refs
        WHERE owner_type = 'post' AND owner_id = $1
        ORDER BY position
    `
	rows, err := r.DB.Query(query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.MediaRef
	for rows.Next() {
		var ref model.MediaRef
		if err := rows.Scan(&ref.ID, &ref.LocalPath, &ref.MimeType, &ref.AltText, &ref.Position); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UpdateStatus moves the post and stamps published_at when the new status is
// a success (full or partial).
func (r *PostRepository) UpdateStatus(id int, status model.ContentStatus) error {
	query := `
        UPDATE posts
        SET status = $1,
            published_at = CASE WHEN $1 IN ('published', 'partial') AND published_at IS NULL
                                THEN $2 ELSE published_at END,
            updated_at = $2
        WHERE id = $3
    `
	_, err := r.DB.Exec(query, status, time.Now(), id)
	return err
}

// LinkAccount creates the pending delivery for (post, account). Idempotent:
// an existing pair is left untouched.
func (r *PostRepository) LinkAccount(postID, accountID int) error {
	query := `
        INSERT INTO post_deliveries (post_id, account_id, status, created_at, updated_at)
        VALUES ($1, $2, 'pending', $3, $3)
        ON CONFLICT (post_id, account_id) DO NOTHING
    `
	_, err := r.DB.Exec(query, postID, accountID, time.Now())
	return err
}

// ListDue returns scheduled posts whose time has come.
func (r *PostRepository) ListDue(now time.Time) ([]int, error) {
	query := `
        SELECT id FROM posts
        WHERE status = 'scheduled' AND scheduled_at IS NOT NULL AND scheduled_at <= $1
        ORDER BY scheduled_at
    `
	return scanIDs(r.DB.Query(query, now))
}

func scanIDs(rows *sql.Rows, err error) ([]int, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
