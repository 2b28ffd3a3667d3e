package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/metrics"
	"github.com/layer-3/walletlink/ports"
)

// DefaultSessionTTL is the lifetime of a session token issued after a link
const DefaultSessionTTL = 15 * time.Minute

// Service is the wallet linking API exposed to transports
type Service interface {
	IssueNonce(ctx context.Context, userID string) (core.Nonce, error)
	LinkWallet(ctx context.Context, req VerifyRequest) (*LinkResponse, error)
	Wallets(ctx context.Context, userID string) (*core.User, error)
	Authenticate(ctx context.Context, token string) (*core.Session, error)
}

// LinkResponse is a successful link, with a session token when tokens are enabled
type LinkResponse struct {
	Link  *core.LinkResult
	Token string
}

// AuthService handles wallet linking business logic
type AuthService struct {
	nonces   *NonceService
	verifier *WalletVerifier
	users    ports.UserStore
	logger   *zap.Logger

	tokenizer  ports.Tokenizer
	sessionTTL time.Duration
	eventPub   ports.EventPublisher
}

var _ Service = (*AuthService)(nil)

// Option configures optional collaborators of AuthService
type Option func(*AuthService)

// WithTokenizer enables session tokens on successful links
func WithTokenizer(tokenizer ports.Tokenizer, ttl time.Duration) Option {
	return func(s *AuthService) {
		s.tokenizer = tokenizer
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithEventPublisher publishes a wallet linked event after every link
func WithEventPublisher(pub ports.EventPublisher) Option {
	return func(s *AuthService) { s.eventPub = pub }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces *NonceService,
	verifier *WalletVerifier,
	users ports.UserStore,
	logger *zap.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		nonces:     nonces,
		verifier:   verifier,
		users:      users,
		logger:     logger,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueNonce hands out a fresh nonce for the user
func (s *AuthService) IssueNonce(ctx context.Context, userID string) (core.Nonce, error) {
	nonce, err := s.nonces.Issue(ctx, userID)
	if err != nil {
		return core.Nonce{}, err
	}
	metrics.NoncesIssued.Inc()
	return nonce, nil
}

// LinkWallet verifies the signed nonce and links the wallet to the user
func (s *AuthService) LinkWallet(ctx context.Context, req VerifyRequest) (*LinkResponse, error) {
	start := time.Now()
	result, err := s.verifier.Verify(ctx, req)
	metrics.VerificationDuration.Observe(time.Since(start).Seconds())
	metrics.Verifications.WithLabelValues(verificationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	resp := &LinkResponse{Link: result}

	if s.tokenizer != nil {
		now := time.Now()
		token, err := s.tokenizer.SessionToToken(&core.Session{
			ID:        uuid.New().String(),
			UserID:    result.UserID,
			Address:   result.Address,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.sessionTTL),
		})
		if err != nil {
			// the link is already stored; the client can still proceed without a token
			s.logger.Error("Failed to issue session token",
				zap.String("uid", result.UserID),
				zap.Error(err))
		} else {
			resp.Token = token
		}
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishWalletLinked(ctx, result); err != nil {
			s.logger.Warn("Failed to publish wallet linked event",
				zap.String("uid", result.UserID),
				zap.String("address", result.Address),
				zap.Error(err))
		}
	}

	return resp, nil
}

// Wallets returns the wallets linked to the user
func (s *AuthService) Wallets(ctx context.Context, userID string) (*core.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to load user: %w", core.ErrInternal, err)
	}
	return user, nil
}

// Authenticate resolves a session token issued by LinkWallet
func (s *AuthService) Authenticate(ctx context.Context, token string) (*core.Session, error) {
	if s.tokenizer == nil {
		return nil, core.ErrInvalidToken
	}
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultLinked
	case errors.Is(err, core.ErrBadRequest):
		return metrics.ResultBadRequest
	case errors.Is(err, core.ErrNoNonceFound):
		return metrics.ResultNoNonce
	case errors.Is(err, core.ErrNonceExpired):
		return metrics.ResultExpired
	case errors.Is(err, core.ErrSignatureMismatch):
		return metrics.ResultSignatureMismatch
	default:
		return metrics.ResultError
	}
}
