package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/webhook"
)

// GormWebhookLogRepository implements LogRepository using GORM
type GormWebhookLogRepository struct {
	db *gorm.DB
}

// NewGormWebhookLogRepository creates a new GormWebhookLogRepository
func NewGormWebhookLogRepository(db *gorm.DB) *GormWebhookLogRepository {
	return &GormWebhookLogRepository{db: db}
}

// Register inserts the entry if its idempotency key is new. The unique index
// on idempotency_key arbitrates concurrent deliveries: exactly one insert
// wins, every loser observes a duplicate-key error and reports isNew=false.
func (r *GormWebhookLogRepository) Register(ctx context.Context, entry *webhook.LogEntry) (bool, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Finalize updates the status and error summary of a registered entry
func (r *GormWebhookLogRepository) Finalize(ctx context.Context, idempotencyKey string, status webhook.DeliveryStatus, errSummary string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&webhook.LogEntry{}).
		Where("idempotency_key = ?", idempotencyKey).
		Updates(map[string]interface{}{
			"status":       status,
			"error":        errSummary,
			"processed_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByKey returns the entry for an idempotency key
func (r *GormWebhookLogRepository) FindByKey(ctx context.Context, idempotencyKey string) (*webhook.LogEntry, error) {
	var entry webhook.LogEntry
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindStale returns entries stuck in the received state longer than cutoff
func (r *GormWebhookLogRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]webhook.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []webhook.LogEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", webhook.StatusReceived, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// Postgres surfaces SQLSTATE 23505; the sqlite driver used in tests reports
// a UNIQUE constraint message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

// Ensure GormWebhookLogRepository implements LogRepository
var _ webhook.LogRepository = (*GormWebhookLogRepository)(nil)
