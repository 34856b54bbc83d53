package repository

import (
	"database/sql"
	"time"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

type DeliveryRepository struct {
	DB *sql.DB
}

const postDeliveryColumns = `
    id, post_id, account_id, status, COALESCE(external_id, ''), COALESCE(permalink, ''),
    COALESCE(error_message, ''), published_at, created_at, updated_at
`

func scanPostDelivery(row interface{ Scan(...any) error }) (*model.PostDelivery, error) {
	var d model.PostDelivery
	err := row.Scan(
		&d.ID, &d.PostID, &d.AccountID, &d.Status, &d.ExternalID, &d.Permalink,
		&d.ErrorMessage, &d.PublishedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeliveryRepository) GetPostDelivery(id int) (*model.PostDelivery, error) {
	d, err := scanPostDelivery(r.DB.QueryRow(
		`SELECT `+postDeliveryColumns+` FROM post_deliveries WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("post delivery", id)
	}
	return d, err
}

// ListPendingForPost returns the pending deliveries whose account is active.
// Inactive accounts keep their pending rows but are never picked up.
func (r *DeliveryRepository) ListPendingForPost(postID int) ([]model.PostDelivery, error) {
	rows, err := r.DB.Query(`
        SELECT `+postDeliveryColumns+`
        FROM post_deliveries d
        WHERE d.post_id = $1
          AND d.status = 'pending'
          AND EXISTS (SELECT 1 FROM social_accounts a WHERE a.id = d.account_id AND a.is_active)
        ORDER BY d.id
    `, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []model.PostDelivery
	for rows.Next() {
		d, err := scanPostDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

// ListStatusesForPost returns the status multiset feeding the aggregator.
func (r *DeliveryRepository) ListStatusesForPost(postID int) ([]model.DeliveryStatus, error) {
	rows, err := r.DB.Query(
		`SELECT status FROM post_deliveries WHERE post_id = $1`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []model.DeliveryStatus
	for rows.Next() {
		var s model.DeliveryStatus
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *DeliveryRepository) UpdatePostDelivery(d *model.PostDelivery) error {
	d.UpdatedAt = time.Now()
	_, err := r.DB.Exec(`
        UPDATE post_deliveries
        SET status = $1, external_id = NULLIF($2, ''), permalink = NULLIF($3, ''),
            error_message = NULLIF($4, ''), published_at = $5, updated_at = $6
        WHERE id = $7
    `, d.Status, d.ExternalID, d.Permalink, d.ErrorMessage, d.PublishedAt, d.UpdatedAt, d.ID)
	return err
}

const segmentDeliveryColumns = `
    d.id, d.segment_id, d.account_id, s.position, d.status,
    COALESCE(d.external_id, ''), COALESCE(d.permalink, ''),
    COALESCE(d.error_message, ''), d.published_at, d.created_at, d.updated_at
`

func scanSegmentDelivery(row interface{ Scan(...any) error }) (*model.SegmentDelivery, error) {
	var d model.SegmentDelivery
	err := row.Scan(
		&d.ID, &d.SegmentID, &d.AccountID, &d.Position, &d.Status,
		&d.ExternalID, &d.Permalink, &d.ErrorMessage, &d.PublishedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListForThreadAccount returns one delivery per segment in position order.
func (r *DeliveryRepository) ListForThreadAccount(threadID, accountID int) ([]model.SegmentDelivery, error) {
	rows, err := r.DB.Query(`
        SELECT `+segmentDeliveryColumns+`
        FROM segment_deliveries d
        JOIN thread_segments s ON s.id = d.segment_id
        WHERE s.thread_id = $1 AND d.account_id = $2
        ORDER BY s.position
    `, threadID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []model.SegmentDelivery
	for rows.Next() {
		d, err := scanSegmentDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepository) UpdateSegmentDelivery(d *model.SegmentDelivery) error {
	d.UpdatedAt = time.Now()
	_, err := r.DB.Exec(`
        UPDATE segment_deliveries
        SET status = $1, external_id = NULLIF($2, ''), permalink = NULLIF($3, ''),
            error_message = NULLIF($4, ''), published_at = $5, updated_at = $6
        WHERE id = $7
    `, d.Status, d.ExternalID, d.Permalink, d.ErrorMessage, d.PublishedAt, d.UpdatedAt, d.ID)
	return err
}

// ResetForThreadAccount rewinds every segment delivery for one account back
// to pending, clearing all outcome fields. The only sanctioned way out of a
// terminal state.
func (r *DeliveryRepository) ResetForThreadAccount(threadID, accountID int) error {
	_, err := r.DB.Exec(`
        UPDATE segment_deliveries d
        SET status = 'pending', external_id = NULL, permalink = NULL,
            error_message = NULL, published_at = NULL, updated_at = $3
        FROM thread_segments s
        WHERE s.id = d.segment_id AND s.thread_id = $1 AND d.account_id = $2
    `, threadID, accountID, time.Now())
	return err
}

// CountStatusesForPost returns the per-status breakdown shown in the API.
func (r *DeliveryRepository) CountStatusesForPost(postID int) (map[string]int, error) {
	return r.countStatuses(`
        SELECT status, COUNT(*) FROM post_deliveries
        WHERE post_id = $1 GROUP BY status
    `, postID)
}

// CountStatusesForThread breaks down segment deliveries across all accounts.
func (r *DeliveryRepository) CountStatusesForThread(threadID int) (map[string]int, error) {
	return r.countStatuses(`
        SELECT d.status, COUNT(*)
        FROM segment_deliveries d
        JOIN thread_segments s ON s.id = d.segment_id
        WHERE s.thread_id = $1 GROUP BY d.status
    `, threadID)
}

func (r *DeliveryRepository) countStatuses(query string, id int) (map[string]int, error) {
	rows, err := r.DB.Query(query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}
