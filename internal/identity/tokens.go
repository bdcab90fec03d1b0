package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokens keeps the revoked-token set in Redis, expiring entries
// once the token would have expired anyway.
type RedisTokens struct {
	client *redis.Client
}

// NewRedisTokens creates a Redis-backed revocation set.
func NewRedisTokens(client *redis.Client) *RedisTokens {
	return &RedisTokens{client: client}
}

func revocationKey(jti string) string {
	return "revoked_token:" + jti
}

// Revoke marks a token id revoked for ttl.
func (t *RedisTokens) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := t.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token id has been revoked.
func (t *RedisTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := t.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// MemoryTokens is an in-process revocation set for the embedded mode
// and tests. Entries are never expired; process lifetime bounds them.
type MemoryTokens struct {
	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewMemoryTokens creates an empty in-process revocation set.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{revoked: make(map[string]struct{})}
}

// Revoke marks a token id revoked.
func (t *MemoryTokens) Revoke(_ context.Context, jti string, _ time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[jti] = struct{}{}
	return nil
}

// IsRevoked reports whether a token id has been revoked.
func (t *MemoryTokens) IsRevoked(_ context.Context, jti string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.revoked[jti]
	return ok, nil
}
