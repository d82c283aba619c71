package credential

import (
	"context"

	"github.com/storesync/backend/internal/domain/shared"
)

// ConnectionState tracks whether the platform app is still installed for
// the store. Lifecycle webhooks drive transitions; data is never deleted
// on a state change.
type ConnectionState string

const (
	// StateConnected means the app is installed and the token is usable
	StateConnected ConnectionState = "connected"
	// StateSuspended means the platform paused the app for this store
	StateSuspended ConnectionState = "suspended"
	// StateUninstalled means the merchant removed the app; the token is dead
	StateUninstalled ConnectionState = "uninstalled"
)

// Credential is the platform access credential for one store.
// The access token is stored encrypted at rest; only the credential
// service mutates this aggregate.
type Credential struct {
	shared.BaseEntity
	StoreID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	// EncryptedToken is the AES-GCM ciphertext of the platform access token
	EncryptedToken string `gorm:"type:text;not null"`
	// MerchantID is the platform's business identifier, when known
	MerchantID string `gorm:"type:varchar(64)"`
	// StoreInfo is a serialized snapshot of the platform store profile
	StoreInfo string          `gorm:"type:jsonb"`
	State     ConnectionState `gorm:"type:varchar(20);not null;default:'connected'"`
}

// TableName returns the table name for GORM
func (Credential) TableName() string {
	return "credentials"
}

// NewCredential creates a connected credential with an already-encrypted token
func NewCredential(storeID, encryptedToken string) *Credential {
	return &Credential{
		BaseEntity:     shared.NewBaseEntity(),
		StoreID:        storeID,
		EncryptedToken: encryptedToken,
		State:          StateConnected,
	}
}

// Repository persists store credentials
type Repository interface {
	FindByStoreID(ctx context.Context, storeID string) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
	Update(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, storeID string) error
}

// Cipher is the encryption-at-rest helper consumed as a black box
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
