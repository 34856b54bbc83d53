package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumapost/pluma-backend/internal/apperrors"
	"github.com/plumapost/pluma-backend/internal/model"
)

func newDeliveryRepo(t *testing.T) (*DeliveryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &DeliveryRepository{DB: db}, mock
}

func postDeliveryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "post_id", "account_id", "status", "external_id", "permalink",
		"error_message", "published_at", "created_at", "updated_at",
	})
}

func TestGetPostDelivery(t *testing.T) {
	repo, mock := newDeliveryRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM post_deliveries WHERE id").
		WithArgs(10).
		WillReturnRows(postDeliveryRows().
			AddRow(10, 1, 100, "published", "ext-1", "https://m.social/1", "", &now, now, now))

	d, err := repo.GetPostDelivery(10)
	require.NoError(t, err)
	assert.Equal(t, 10, d.ID)
	assert.Equal(t, model.DeliveryPublished, d.Status)
	assert.Equal(t, "ext-1", d.ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPostDeliveryNotFound(t *testing.T) {
	repo, mock := newDeliveryRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM post_deliveries WHERE id").
		WithArgs(99).
		WillReturnRows(postDeliveryRows())

	_, err := repo.GetPostDelivery(99)
	var notFound *apperrors.ErrNotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 99, notFound.ID)
}

func TestListPendingForPostSkipsInactiveAccounts(t *testing.T) {
	repo, mock := newDeliveryRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM post_deliveries d(.+)a.is_active").
		WithArgs(1).
		WillReturnRows(postDeliveryRows().
			AddRow(10, 1, 100, "pending", "", "", "", nil, now, now).
			AddRow(11, 1, 101, "pending", "", "", "", nil, now, now))

	deliveries, err := repo.ListPendingForPost(1)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, model.DeliveryPending, deliveries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostDeliveryBlanksBecomeNulls(t *testing.T) {
	repo, mock := newDeliveryRepo(t)

	mock.ExpectExec("UPDATE post_deliveries").
		WithArgs("failed", "", "", "connection refused", nil, sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePostDelivery(&model.PostDelivery{
		ID:           10,
		Status:       model.DeliveryFailed,
		ErrorMessage: "connection refused",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForThreadAccountOrdersByPosition(t *testing.T) {
	repo, mock := newDeliveryRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "segment_id", "account_id", "position", "status",
		"external_id", "permalink", "error_message", "published_at", "created_at", "updated_at",
	}).
		AddRow(30, 20, 100, 1, "published", "a1", "https://m.social/a1", "", &now, now, now).
		AddRow(31, 21, 100, 2, "pending", "", "", "", nil, now, now)

	mock.ExpectQuery("FROM segment_deliveries d(.+)ORDER BY s.position").
		WithArgs(1, 100).
		WillReturnRows(rows)

	deliveries, err := repo.ListForThreadAccount(1, 100)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	assert.Equal(t, 1, deliveries[0].Position)
	assert.Equal(t, "a1", deliveries[0].ExternalID)
	assert.Equal(t, 2, deliveries[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetForThreadAccount(t *testing.T) {
	repo, mock := newDeliveryRepo(t)

	mock.ExpectExec("UPDATE segment_deliveries d(.+)SET status = 'pending'").
		WithArgs(1, 100, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.ResetForThreadAccount(1, 100))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountStatusesForPost(t *testing.T) {
	repo, mock := newDeliveryRepo(t)

	mock.ExpectQuery("SELECT status, COUNT(.+) FROM post_deliveries").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("published", 2).
			AddRow("failed", 1))

	stats, err := repo.CountStatusesForPost(1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"published": 2, "failed": 1, "total": 3}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
