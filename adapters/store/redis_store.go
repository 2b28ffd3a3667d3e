package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/ports"
)

// DefaultExpiredRetention is how long an expired nonce is kept around so that
// consuming it reports expiry rather than absence
const DefaultExpiredRetention = 10 * time.Minute

// RedisNonceStore is a Redis implementation of the NonceStore interface
type RedisNonceStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

type redisNonce struct {
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewRedisNonceStore creates a new Redis nonce store
func NewRedisNonceStore(client redis.UniversalClient, retention time.Duration) *RedisNonceStore {
	if retention <= 0 {
		retention = DefaultExpiredRetention
	}
	return &RedisNonceStore{
		client:    client,
		prefix:    "walletlink:nonce:",
		retention: retention,
	}
}

// Put writes the nonce with an expiry slightly past its validity window
func (s *RedisNonceStore) Put(ctx context.Context, nonce core.Nonce) error {
	payload, err := json.Marshal(redisNonce{
		Value:     nonce.Value,
		CreatedAt: nonce.CreatedAt.UnixMilli(),
		ExpiresAt: nonce.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal nonce: %w", err)
	}

	ttl := time.Until(nonce.ExpiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}

	if err := s.client.Set(ctx, s.prefix+nonce.UserID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}

	return nil
}

// Take reads and deletes the nonce with GETDEL so that two concurrent
// consumers can never both receive it
func (s *RedisNonceStore) Take(ctx context.Context, userID string) (core.Nonce, error) {
	raw, err := s.client.GetDel(ctx, s.prefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Nonce{}, core.ErrNoNonceFound
		}
		return core.Nonce{}, fmt.Errorf("failed to take nonce: %w", err)
	}

	var stored redisNonce
	if err := json.Unmarshal(raw, &stored); err != nil {
		return core.Nonce{}, fmt.Errorf("failed to unmarshal nonce: %w", err)
	}

	return core.Nonce{
		UserID:    userID,
		Value:     stored.Value,
		CreatedAt: time.UnixMilli(stored.CreatedAt),
		ExpiresAt: time.UnixMilli(stored.ExpiresAt),
	}, nil
}
