package connect

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/layer-3/walletlink"
	"github.com/layer-3/walletlink/eventbus"
)

// Linker drives the client side of linking: connect, request a nonce, sign
// it and submit the signature for verification
type Linker struct {
	session *Session
	client  walletlink.Client
	bus     *eventbus.Bus
	logger  *zap.Logger
}

// NewLinker creates a linker. bus may be nil.
func NewLinker(session *Session, client walletlink.Client, bus *eventbus.Bus, logger *zap.Logger) *Linker {
	return &Linker{
		session: session,
		client:  client,
		bus:     bus,
		logger:  logger,
	}
}

// Link links the session's wallet to uid. Nonce and verification failures
// come back as *walletlink.APIError; restart from Link to get a new nonce.
func (l *Linker) Link(ctx context.Context, uid string) (*walletlink.VerifyWalletResponse, error) {
	// Connection state events need a context to be delivered; the address
	// is filled in once the wallet is linked.
	if l.bus != nil {
		if sc := l.bus.Context(); sc == nil || sc.UserID != uid {
			l.bus.SetContext(&eventbus.SessionContext{
				UserID:  uid,
				ChainID: l.session.RequiredChainID(),
			})
		}
	}

	conn := l.session.Connection()
	if conn == nil {
		var err error
		if conn, err = l.session.Connect(ctx); err != nil {
			return nil, err
		}
	}
	if err := l.session.CheckNetwork(); err != nil {
		return nil, err
	}

	nonce, err := l.client.Nonce(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to request nonce: %w", err)
	}

	signature, err := conn.Sign(ctx, nonce.Nonce)
	if err != nil {
		return nil, attemptError(conn.Strategy, fmt.Errorf("failed to sign nonce: %w", err))
	}

	resp, err := l.client.VerifyWallet(ctx, walletlink.VerifyWalletRequest{
		UID:       uid,
		Address:   conn.Address,
		Signature: signature,
		Nonce:     nonce.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify wallet: %w", err)
	}

	l.logger.Info("Wallet linked",
		zap.String("uid", uid),
		zap.String("address", resp.Wallet.Address),
		zap.Int("wallet_count", resp.WalletCount))

	if l.bus != nil {
		l.bus.SetContext(&eventbus.SessionContext{
			UserID:  uid,
			Address: resp.Wallet.Address,
			ChainID: conn.ChainID,
		})
		if _, err := l.bus.Emit(ctx, EventLinked, resp); err != nil {
			l.logger.Warn("Event handler failed", zap.String("event", EventLinked), zap.Error(err))
		}
	}

	return resp, nil
}
