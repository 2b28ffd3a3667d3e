package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/internal/eth"
	"github.com/layer-3/walletlink/internal/metrics"
	"github.com/layer-3/walletlink/ports"
)

// VerifyRequest is a signed nonce submitted for a user
type VerifyRequest struct {
	UserID    string
	Address   string
	Signature string
	Nonce     string // optional echo of the signed nonce
}

// Validate reports core.ErrBadRequest when a field is missing
func (r VerifyRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" ||
		strings.TrimSpace(r.Address) == "" ||
		strings.TrimSpace(r.Signature) == "" {
		return fmt.Errorf("%w: uid, address and signature are required", core.ErrBadRequest)
	}
	return nil
}

// WalletVerifier proves wallet ownership against the user's pending nonce
// and records the wallet link
type WalletVerifier struct {
	nonces  *NonceService
	users   ports.UserStore
	chainID uint64
	now     func() time.Time
	logger  *zap.Logger
}

// NewWalletVerifier creates a verifier recording links against chainID
func NewWalletVerifier(nonces *NonceService, users ports.UserStore, chainID uint64, logger *zap.Logger) *WalletVerifier {
	if chainID == 0 {
		chainID = core.DefaultChainID
	}
	return &WalletVerifier{
		nonces:  nonces,
		users:   users,
		chainID: chainID,
		now:     nonces.now,
		logger:  logger,
	}
}

// Verify checks that req.Signature is a personal_sign of the user's nonce by
// req.Address and links the wallet on success
func (v *WalletVerifier) Verify(ctx context.Context, req VerifyRequest) (*core.LinkResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.UserID = strings.TrimSpace(req.UserID)

	// Burn the nonce before looking at the signature.
	nonce, err := v.nonces.Consume(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if req.Nonce != "" && req.Nonce != nonce.Value {
		return nil, fmt.Errorf("%w: signed nonce was superseded", core.ErrNoNonceFound)
	}

	if !eth.IsAddress(req.Address) {
		return nil, fmt.Errorf("%w: %w", core.ErrSignatureMismatch, core.ErrInvalidAddress)
	}

	recovered, err := eth.RecoverPersonal(nonce.Value, strings.TrimSpace(req.Signature))
	if err != nil {
		v.logger.Debug("Signature recovery failed",
			zap.String("uid", req.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w: %v", core.ErrSignatureMismatch, core.ErrInvalidSignature, err)
	}

	if !eth.SameAddress(recovered.Hex(), req.Address) {
		v.logger.Debug("Recovered address does not match claimed wallet",
			zap.String("uid", req.UserID),
			zap.String("claimed", req.Address),
			zap.String("recovered", recovered.Hex()))
		return nil, core.ErrSignatureMismatch
	}

	link := core.WalletLink{
		Address:  eth.NormalizeAddress(req.Address),
		LinkedAt: v.now(),
		Verified: true,
		ChainID:  v.chainID,
	}

	user, err := v.users.AddWalletLink(ctx, req.UserID, link)
	if err != nil {
		if errors.Is(err, core.ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to store wallet link: %w", core.ErrInternal, err)
	}
	metrics.WalletLinksStored.Inc()

	return &core.LinkResult{
		UserID:      req.UserID,
		Address:     link.Address,
		LinkedAt:    link.LinkedAt,
		ChainID:     link.ChainID,
		WalletCount: user.WalletCount(),
	}, nil
}
