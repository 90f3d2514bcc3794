package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateOpaqueToken returns a url-safe base64 encoding of 32 random bytes
// together with its SHA-256 hex digest. Only the digest is ever stored.
func GenerateOpaqueToken() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("domain: failed to generate token: %w", err)
	}
	plain = base64.URLEncoding.EncodeToString(b)
	return plain, HashToken(plain), nil
}

// HashToken returns the SHA-256 hex digest used to match stored tokens.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// EmailVerificationToken is a one-time-use token emailed after registration.
// The row is deleted on successful verification or on detected expiry.
type EmailVerificationToken struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the token is past its expiry.
func (t *EmailVerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RefreshToken is an opaque single-use token stored hashed server-side.
type RefreshToken struct {
	ID        int64      `json:"id"`
	ClientID  int64      `json:"client_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsUsable reports whether the token can still be redeemed.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
