package credential

import (
	"context"
	"fmt"

	"github.com/storesync/backend/internal/domain/credential"
	"github.com/storesync/backend/internal/domain/shared"
)

// Service owns the store credential lifecycle. It is the only component
// that reads or writes the credentials table; every other component asks
// it for a decrypted token or a state transition.
type Service struct {
	repo   credential.Repository
	cipher credential.Cipher
}

// NewService creates a new credential Service
func NewService(repo credential.Repository, cipher credential.Cipher) *Service {
	return &Service{
		repo:   repo,
		cipher: cipher,
	}
}

// ResolveToken returns the decrypted platform access token for a store.
// Returns ErrStoreNotConnected when no credential exists or the app has
// been uninstalled for the store.
func (s *Service) ResolveToken(ctx context.Context, storeID string) (string, error) {
	cred, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		if err == shared.ErrNotFound {
			return "", shared.ErrStoreNotConnected
		}
		return "", err
	}

	if cred.State == credential.StateUninstalled {
		return "", shared.ErrStoreNotConnected
	}

	token, err := s.cipher.Decrypt(cred.EncryptedToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token for store %s: %w", storeID, err)
	}
	return token, nil
}

// Connect stores or replaces the credential for a store and marks it connected
func (s *Service) Connect(ctx context.Context, storeID, token, merchantID, storeInfo string) (*credential.Credential, error) {
	if storeID == "" || token == "" {
		return nil, shared.NewDomainError("INVALID_CREDENTIAL", "Store ID and token are required")
	}

	encrypted, err := s.cipher.Encrypt(token)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token for store %s: %w", storeID, err)
	}

	existing, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil && err != shared.ErrNotFound {
		return nil, err
	}

	if existing != nil {
		existing.EncryptedToken = encrypted
		existing.MerchantID = merchantID
		existing.StoreInfo = storeInfo
		existing.State = credential.StateConnected
		existing.Touch()
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	cred := credential.NewCredential(storeID, encrypted)
	cred.MerchantID = merchantID
	cred.StoreInfo = storeInfo
	if err := s.repo.Save(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// SetState transitions the connection state for a store. Data is never
// deleted on a state change; an uninstalled store keeps its records until
// an erasure event arrives.
func (s *Service) SetState(ctx context.Context, storeID string, state credential.ConnectionState) error {
	cred, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.ErrStoreNotConnected
		}
		return err
	}

	cred.State = state
	cred.Touch()
	return s.repo.Update(ctx, cred)
}

// Get returns the credential record for a store without decrypting it
func (s *Service) Get(ctx context.Context, storeID string) (*credential.Credential, error) {
	return s.repo.FindByStoreID(ctx, storeID)
}

// Disconnect removes the credential for a store (logout path)
func (s *Service) Disconnect(ctx context.Context, storeID string) error {
	return s.repo.Delete(ctx, storeID)
}
