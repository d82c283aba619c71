package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrSecretNotConfigured indicates the shared webhook secret is missing.
	// Verification fails closed: no secret means no delivery is trusted.
	ErrSecretNotConfigured = errors.New("webhook: signing secret not configured")
	// ErrMissingSignature indicates the signature header was absent
	ErrMissingSignature = errors.New("webhook: signature header missing")
	// ErrInvalidSignature indicates the signature did not match the body
	ErrInvalidSignature = errors.New("webhook: signature mismatch")
)

// Verifier authenticates inbound deliveries with an HMAC-SHA256 signature
// over the raw request body. The body bytes must be captured before any
// parsing; a re-serialized body will not match the platform's signature.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared platform secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks the hex-encoded signature against the raw body.
// Returns nil only when the signature is present, well formed, and matches.
func (v *Verifier) Verify(rawBody []byte, signature string) error {
	if len(v.secret) == 0 {
		return ErrSecretNotConfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, supplied) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex signature for a body. Used by tests and by the
// outbound registration flow when the platform echoes a challenge.
func (v *Verifier) Sign(rawBody []byte) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSecretNotConfigured
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
