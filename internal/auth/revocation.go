package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore keeps revoked access-token ids in Redis, each entry
// expiring together with the token it denies, so the list never needs
// cleanup.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore creates a RevocationStore on the given Redis client.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

func revocationKey(jti string) string {
	return "auth:revoked:" + jti
}

// Revoke denies the token id until the given instant.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// Already expired, nothing to deny.
		return nil
	}
	if err := s.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id is on the revocation list.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: failed to check revocation: %w", err)
	}
	return n > 0, nil
}
