package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/ports"
)

// nonceSpace bounds the random part of a nonce to [0, 1e9)
var nonceSpace = big.NewInt(1_000_000_000)

// NonceService issues and consumes single-use login nonces
type NonceService struct {
	store ports.NonceStore
	ttl   time.Duration
	now   func() time.Time
}

// NonceOption configures a NonceService
type NonceOption func(*NonceService)

// WithNonceClock replaces the server clock used for issue and expiry checks
func WithNonceClock(now func() time.Time) NonceOption {
	return func(s *NonceService) { s.now = now }
}

// NewNonceService creates a nonce service on top of store
func NewNonceService(store ports.NonceStore, opts ...NonceOption) *NonceService {
	s := &NonceService{
		store: store,
		ttl:   core.NonceTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns how long issued nonces stay valid
func (s *NonceService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh nonce for userID, replacing any outstanding one
func (s *NonceService) Issue(ctx context.Context, userID string) (core.Nonce, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.Nonce{}, fmt.Errorf("%w: missing user id", core.ErrBadRequest)
	}

	n, err := rand.Int(rand.Reader, nonceSpace)
	if err != nil {
		return core.Nonce{}, fmt.Errorf("%w: failed to generate nonce: %w", core.ErrInternal, err)
	}

	now := s.now()
	nonce := core.Nonce{
		UserID:    userID,
		Value:     fmt.Sprintf("Login nonce: %d at %d", n.Int64(), now.UnixMilli()),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, nonce); err != nil {
		return core.Nonce{}, fmt.Errorf("%w: failed to store nonce: %w", core.ErrInternal, err)
	}

	return nonce, nil
}

// Consume takes the nonce for userID out of the store. The nonce is gone
// after this call whatever the outcome, so an expired nonce cannot be
// retried either.
func (s *NonceService) Consume(ctx context.Context, userID string) (core.Nonce, error) {
	nonce, err := s.store.Take(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, core.ErrNoNonceFound) {
			return core.Nonce{}, err
		}
		return core.Nonce{}, fmt.Errorf("%w: failed to take nonce: %w", core.ErrInternal, err)
	}

	if nonce.Expired(s.now()) {
		return core.Nonce{}, core.ErrNonceExpired
	}

	return nonce, nil
}
