package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:denylist:"

// DenylistStore tracks revoked bearer tokens. The auth middleware consults
// it with a short timeout; a timeout is treated as an auth failure, never
// retried.
type DenylistStore struct {
	client *redis.Client
}

// NewDenylistStore creates a new DenylistStore.
func NewDenylistStore(client *redis.Client) *DenylistStore {
	return &DenylistStore{client: client}
}

// Revoke marks a token as revoked until its natural expiry.
func (s *DenylistStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, denylistPrefix+token, "1", ttl).Err()
}

// IsRevoked reports whether a token has been revoked.
func (s *DenylistStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := s.client.Get(ctx, denylistPrefix+token).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
