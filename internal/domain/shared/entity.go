package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the locally minted identity and bookkeeping
// timestamps embedded by every persisted aggregate. Platform-side ids
// live on the embedding type as ExternalID columns.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity mints a fresh local identity.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt after an in-place mutation.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}
