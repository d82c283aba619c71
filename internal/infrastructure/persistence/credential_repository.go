package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/credential"
	"github.com/storesync/backend/internal/domain/shared"
)

// GormCredentialRepository implements credential.Repository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindByStoreID finds the credential for a store
func (r *GormCredentialRepository) FindByStoreID(ctx context.Context, storeID string) (*credential.Credential, error) {
	var cred credential.Credential
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// Save inserts a new credential
func (r *GormCredentialRepository) Save(ctx context.Context, cred *credential.Credential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

// Update replaces an existing credential row
func (r *GormCredentialRepository) Update(ctx context.Context, cred *credential.Credential) error {
	return r.db.WithContext(ctx).Save(cred).Error
}

// Delete removes the credential for a store
func (r *GormCredentialRepository) Delete(ctx context.Context, storeID string) error {
	result := r.db.WithContext(ctx).Delete(&credential.Credential{}, "store_id = ?", storeID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormCredentialRepository implements credential.Repository
var _ credential.Repository = (*GormCredentialRepository)(nil)
