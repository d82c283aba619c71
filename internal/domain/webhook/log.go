package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/storesync/backend/internal/domain/shared"
)

// DeliveryStatus is the processing state of a logged webhook delivery
type DeliveryStatus string

const (
	// StatusReceived means the delivery is registered but not yet processed.
	// A crash mid-processing leaves this state behind for a replay job to find.
	StatusReceived DeliveryStatus = "received"
	// StatusSuccess means the handler completed
	StatusSuccess DeliveryStatus = "success"
	// StatusFailed means the handler returned an error; the summary is recorded
	StatusFailed DeliveryStatus = "failed"
	// StatusSkipped means the event was unrecognized and acknowledged as a no-op
	StatusSkipped DeliveryStatus = "skipped"
)

// LogEntry is one webhook delivery recorded by the idempotency ledger.
// Entries are append-only apart from the status finalization and are
// retained indefinitely for audit.
type LogEntry struct {
	shared.BaseEntity
	// IdempotencyKey uniquely identifies one logical delivery:
	// {store_id}-{event}-{entity_id}
	IdempotencyKey string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	StoreID        string         `gorm:"type:varchar(64);not null;index"`
	Event          string         `gorm:"type:varchar(100);not null"`
	EntityID       string         `gorm:"type:varchar(64)"`
	Payload        string         `gorm:"type:jsonb"`
	Status         DeliveryStatus `gorm:"type:varchar(20);not null;default:'received'"`
	Error          string         `gorm:"type:text"`
	ProcessedAt    *time.Time
}

// TableName returns the table name for GORM
func (LogEntry) TableName() string {
	return "webhook_logs"
}

// IdempotencyKey derives the deterministic key for one logical delivery.
// Two deliveries of the same event for the same entity in the same store
// collapse to one key.
func IdempotencyKey(storeID string, event EventType, entityID string) string {
	return fmt.Sprintf("%s-%s-%s", storeID, event, entityID)
}

// NewLogEntry creates a ledger entry in the received state
func NewLogEntry(storeID string, event EventType, entityID, payload string) *LogEntry {
	return &LogEntry{
		BaseEntity:     shared.NewBaseEntity(),
		IdempotencyKey: IdempotencyKey(storeID, event, entityID),
		StoreID:        storeID,
		Event:          event.String(),
		EntityID:       entityID,
		Payload:        payload,
		Status:         StatusReceived,
	}
}

// Finalize moves the entry to a terminal status with an optional error summary
func (e *LogEntry) Finalize(status DeliveryStatus, errSummary string) {
	now := time.Now()
	e.Status = status
	e.Error = errSummary
	e.ProcessedAt = &now
}

// LogRepository persists webhook ledger entries.
// Register must be atomic on the idempotency key: exactly one concurrent
// caller wins the insert.
type LogRepository interface {
	// Register inserts the entry if its idempotency key is new.
	// Returns false with no error when the key already exists.
	Register(ctx context.Context, entry *LogEntry) (isNew bool, err error)

	// Finalize updates the status and error summary of a registered entry
	Finalize(ctx context.Context, idempotencyKey string, status DeliveryStatus, errSummary string) error

	// FindByKey returns the entry for an idempotency key
	FindByKey(ctx context.Context, idempotencyKey string) (*LogEntry, error)

	// FindStale returns entries stuck in the received state longer than cutoff,
	// candidates for replay after a crash mid-processing
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]LogEntry, error)
}
