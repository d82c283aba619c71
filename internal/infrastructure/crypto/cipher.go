package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/storesync/backend/internal/domain/credential"
)

const (
	keyLen     = 32 // AES-256
	pbkdf2Iter = 100_000
)

// salt is fixed per deployment; the derived key is only as secret as the
// configured credential key, the KDF just stretches short passphrases.
var salt = []byte("storesync.credential.v1")

var (
	// ErrCiphertextMalformed indicates the stored value is not valid ciphertext
	ErrCiphertextMalformed = errors.New("crypto: malformed ciphertext")
)

// TokenCipher encrypts platform access tokens at rest with AES-256-GCM.
// The key is derived from the configured secret with PBKDF2-SHA256.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher creates a TokenCipher from the configured secret
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if secret == "" {
		return nil, errors.New("crypto: credential key is not configured")
	}

	key := pbkdf2.Key([]byte(secret), salt, pbkdf2Iter, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext)
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCiphertextMalformed
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrCiphertextMalformed
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("crypto: failed to decrypt: %w", err)
	}
	return string(plain), nil
}

// Ensure TokenCipher implements the credential cipher port
var _ credential.Cipher = (*TokenCipher)(nil)
