package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/webhook"
)

// newMockWebhookLogRepository creates a GormWebhookLogRepository with a mocked SQL connection
func newMockWebhookLogRepository(t *testing.T) (*GormWebhookLogRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormWebhookLogRepository(gormDB), mock, mockDB
}

func TestGormWebhookLogRepository_Register(t *testing.T) {
	t.Run("new key wins the insert", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "webhook_logs"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		entry := webhook.NewLogEntry("store-1", webhook.EventProductUpdated, "42", `{"id":42}`)
		isNew, err := repo.Register(context.Background(), entry)

		assert.NoError(t, err)
		assert.True(t, isNew)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key reports not new without error", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "webhook_logs"`).
			WillReturnError(&pq.Error{Code: "23505"})

		entry := webhook.NewLogEntry("store-1", webhook.EventProductUpdated, "42", `{"id":42}`)
		isNew, err := repo.Register(context.Background(), entry)

		assert.NoError(t, err)
		assert.False(t, isNew)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other database errors surface", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "webhook_logs"`).
			WillReturnError(sql.ErrConnDone)

		entry := webhook.NewLogEntry("store-1", webhook.EventProductUpdated, "42", `{"id":42}`)
		isNew, err := repo.Register(context.Background(), entry)

		assert.Error(t, err)
		assert.False(t, isNew)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormWebhookLogRepository_Finalize(t *testing.T) {
	t.Run("updates registered entry", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "webhook_logs" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Finalize(context.Background(), "store-1-product/updated-42", webhook.StatusSuccess, "")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown key returns not found", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "webhook_logs" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Finalize(context.Background(), "store-1-product/updated-42", webhook.StatusFailed, "boom")

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormWebhookLogRepository_FindByKey(t *testing.T) {
	t.Run("finds existing entry", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		entryID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "idempotency_key", "store_id", "event", "entity_id", "status"}).
			AddRow(entryID, "store-1-product/updated-42", "store-1", "product/updated", "42", "success")

		mock.ExpectQuery(`SELECT \* FROM "webhook_logs" WHERE idempotency_key = \$1`).
			WithArgs("store-1-product/updated-42", 1).
			WillReturnRows(rows)

		entry, err := repo.FindByKey(context.Background(), "store-1-product/updated-42")

		assert.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, webhook.StatusSuccess, entry.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown key", func(t *testing.T) {
		repo, mock, mockDB := newMockWebhookLogRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "webhook_logs" WHERE idempotency_key = \$1`).
			WithArgs("missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		entry, err := repo.FindByKey(context.Background(), "missing")

		assert.Nil(t, entry)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormWebhookLogRepository_FindStale(t *testing.T) {
	repo, mock, mockDB := newMockWebhookLogRepository(t)
	defer mockDB.Close()

	cutoff := time.Now().Add(-15 * time.Minute)
	rows := sqlmock.NewRows([]string{"id", "idempotency_key", "store_id", "event", "entity_id", "status"}).
		AddRow(uuid.New(), "store-1-order/created-9", "store-1", "order/created", "9", "received")

	mock.ExpectQuery(`SELECT \* FROM "webhook_logs" WHERE status = \$1 AND created_at < \$2`).
		WithArgs(string(webhook.StatusReceived), cutoff, 100).
		WillReturnRows(rows)

	entries, err := repo.FindStale(context.Background(), cutoff, 0)

	assert.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, webhook.StatusReceived, entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(sql.ErrConnDone))
}
