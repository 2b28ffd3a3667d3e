package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/layer-3/walletlink/core"
)

const serviceName = "AuthService"

const signatureDisplaySize = 10

// logService wraps Service with logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for Service.
// It logs method entry/exit, duration, errors, and redacted request data.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) IssueNonce(ctx context.Context, userID string) (nonce core.Nonce, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{
			zap.String("service", serviceName),
			zap.String("method", "IssueNonce"),
			zap.String("uid", userID),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			ls.logger.Warn("IssueNonce failed", append(fields, zap.Error(err))...)
			return
		}
		ls.logger.Info("IssueNonce completed", append(fields, zap.Time("expires_at", nonce.ExpiresAt))...)
	}()

	return ls.svc.IssueNonce(ctx, userID)
}

func (ls *logService) LinkWallet(ctx context.Context, req VerifyRequest) (resp *LinkResponse, err error) {
	start := time.Now()

	ls.logger.Info("LinkWallet started",
		zap.String("service", serviceName),
		zap.String("method", "LinkWallet"),
		zap.String("uid", req.UserID),
		zap.String("address", req.Address),
		zap.String("signature", redactSignature(req.Signature)),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Warn("LinkWallet failed",
				zap.String("service", serviceName),
				zap.String("method", "LinkWallet"),
				zap.String("uid", req.UserID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("LinkWallet completed",
				zap.String("service", serviceName),
				zap.String("method", "LinkWallet"),
				zap.String("uid", resp.Link.UserID),
				zap.String("address", resp.Link.Address),
				zap.Int("wallet_count", resp.Link.WalletCount),
				zap.Bool("token_issued", resp.Token != ""),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.LinkWallet(ctx, req)
}

func (ls *logService) Wallets(ctx context.Context, userID string) (user *core.User, err error) {
	defer func() {
		if err != nil {
			ls.logger.Debug("Wallets failed",
				zap.String("service", serviceName),
				zap.String("uid", userID),
				zap.Error(err))
		}
	}()
	return ls.svc.Wallets(ctx, userID)
}

func (ls *logService) Authenticate(ctx context.Context, token string) (session *core.Session, err error) {
	defer func() {
		if err != nil {
			ls.logger.Debug("Authenticate failed",
				zap.String("service", serviceName),
				zap.Error(err))
		}
	}()
	return ls.svc.Authenticate(ctx, token)
}

// redactSignature keeps only the head of a signature for correlation
func redactSignature(sig string) string {
	if len(sig) <= signatureDisplaySize {
		return sig
	}
	return sig[:signatureDisplaySize] + "..."
}
