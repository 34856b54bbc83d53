package repository

import (
	"database/sql"
	"time"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

type ThreadRepository struct {
	DB *sql.DB
}

// Create inserts the thread and its segments in one transaction. Segment
// positions are renumbered 1..N in input order so they stay gapless.
func (r *ThreadRepository) Create(thread *model.Thread) error {
	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now
	if thread.Status == "" {
		thread.Status = model.ContentDraft
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRow(`
        INSERT INTO threads (title, hashtags, status, scheduled_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, thread.Title, thread.Hashtags, thread.Status, thread.ScheduledAt, now, now).Scan(&thread.ID)
	if err != nil {
		return err
	}

	for i := range thread.Segments {
		seg := &thread.Segments[i]
		seg.ThreadID = thread.ID
		seg.Position = i + 1
		err = tx.QueryRow(`
            INSERT INTO thread_segments (thread_id, position, body)
            VALUES ($1, $2, $3)
            RETURNING id
        `, seg.ThreadID, seg.Position, seg.Body).Scan(&seg.ID)
		if err != nil {
			return err
		}

		for slug, body := range seg.Overrides {
			_, err = tx.Exec(`
                INSERT INTO segment_overrides (segment_id, platform_slug, body)
                VALUES ($1, $2, $3)
            `, seg.ID, slug, body)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (r *ThreadRepository) GetByID(id int) (*model.Thread, error) {
	var thread model.Thread
	err := r.DB.QueryRow(`
        SELECT id, title, hashtags, status, scheduled_at, published_at, created_at, updated_at
        FROM threads
        WHERE id = $1
    `, id).Scan(
		&thread.ID, &thread.Title, &thread.Hashtags, &thread.Status,
		&thread.ScheduledAt, &thread.PublishedAt, &thread.CreatedAt, &thread.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("thread", id)
	}
	if err != nil {
		return nil, err
	}

	thread.Segments, err = r.segmentsFor(id)
	return &thread, err
}

func (r *ThreadRepository) segmentsFor(threadID int) ([]model.Segment, error) {
	rows, err := r.DB.Query(`
        SELECT id, thread_id, position, body
        FROM thread_segments
        WHERE thread_id = $1
        ORDER BY position
    `, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []model.Segment
	byID := map[int]int{}
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.ID, &seg.ThreadID, &seg.Position, &seg.Body); err != nil {
			return nil, err
		}
		byID[seg.ID] = len(segments)
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachOverrides(threadID, segments, byID); err != nil {
		return nil, err
	}
	return segments, r.attachMedia(threadID, segments, byID)
}

func (r *ThreadRepository) attachOverrides(threadID int, segments []model.Segment, byID map[int]int) error {
	rows, err := r.DB.Query(`
        SELECT o.segment_id, o.platform_slug, o.body
        FROM segment_overrides o
        JOIN thread_segments s ON s.id = o.segment_id
        WHERE s.thread_id = $1
    `, threadID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var segID int
		var slug, body string
		if err := rows.Scan(&segID, &slug, &body); err != nil {
			return err
		}
		if idx, ok := byID[segID]; ok {
			if segments[idx].Overrides == nil {
				segments[idx].Overrides = map[string]string{}
			}
			segments[idx].Overrides[slug] = body
		}
	}
	return rows.Err()
}

func (r *ThreadRepository) attachMedia(threadID int, segments []model.Segment, byID map[int]int) error {
	rows, err := r.DB.Query(`
        SELECT m.owner_id, m.id, m.local_path, m.mime_type, m.alt_text, m.position
        FROM media_refs m
        JOIN thread_segments s ON s.id = m.owner_id AND m.owner_type = 'segment'
        WHERE s.thread_id = $1
        ORDER BY m.position
    `, threadID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var segID int
		var ref model.MediaRef
		if err := rows.Scan(&segID, &ref.ID, &ref.LocalPath, &ref.MimeType, &ref.AltText, &ref.Position); err != nil {
			return err
		}
		if idx, ok := byID[segID]; ok {
			segments[idx].Media = append(segments[idx].Media, ref)
		}
	}
	return rows.Err()
}

func (r *ThreadRepository) UpdateStatus(id int, status model.ContentStatus) error {
	query := `
        UPDATE threads
        SET status = $1,
            published_at = CASE WHEN $1 IN ('published', 'partial') AND published_at IS NULL
                                THEN $2 ELSE published_at END,
            updated_at = $2
        WHERE id = $3
    `
	_, err := r.DB.Exec(query, status, time.Now(), id)
	return err
}

// LinkAccount creates the account link plus one pending delivery per
// segment, all in one transaction. Idempotent on the link pair.
func (r *ThreadRepository) LinkAccount(threadID, accountID int, mode model.PublishMode) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.Exec(`
        INSERT INTO account_links (thread_id, account_id, publish_mode, status, created_at)
        VALUES ($1, $2, $3, 'pending', $4)
        ON CONFLICT (thread_id, account_id) DO NOTHING
    `, threadID, accountID, mode, now)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        INSERT INTO segment_deliveries (segment_id, account_id, status, created_at, updated_at)
        SELECT s.id, $2, 'pending', $3, $3
        FROM thread_segments s
        WHERE s.thread_id = $1
        ON CONFLICT (segment_id, account_id) DO NOTHING
    `, threadID, accountID, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ThreadRepository) GetLink(threadID, accountID int) (*model.AccountLink, error) {
	var link model.AccountLink
	err := r.DB.QueryRow(`
        SELECT id, thread_id, account_id, publish_mode, status, created_at
        FROM account_links
        WHERE thread_id = $1 AND account_id = $2
    `, threadID, accountID).Scan(
		&link.ID, &link.ThreadID, &link.AccountID, &link.Mode, &link.Status, &link.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("account link", accountID)
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *ThreadRepository) ListLinks(threadID int) ([]model.AccountLink, error) {
	rows, err := r.DB.Query(`
        SELECT id, thread_id, account_id, publish_mode, status, created_at
        FROM account_links
        WHERE thread_id = $1
        ORDER BY id
    `, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.AccountLink
	for rows.Next() {
		var link model.AccountLink
		if err := rows.Scan(&link.ID, &link.ThreadID, &link.AccountID, &link.Mode, &link.Status, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *ThreadRepository) UpdateLinkStatus(linkID int, status model.LinkStatus) error {
	_, err := r.DB.Exec(`UPDATE account_links SET status = $1 WHERE id = $2`, status, linkID)
	return err
}

func (r *ThreadRepository) ListDue(now time.Time) ([]int, error) {
	query := `
        SELECT id FROM threads
        WHERE status = 'scheduled' AND scheduled_at IS NOT NULL AND scheduled_at <= $1
        ORDER BY scheduled_at
    `
	return scanIDs(r.DB.Query(query, now))
}
