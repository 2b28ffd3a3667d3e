package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/walletlink"
	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/service"
)

// AuthHandlers contains HTTP handlers for the wallet linking endpoints
type AuthHandlers struct {
	svc    service.Service
	logger *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(svc service.Service, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		svc:    svc,
		logger: logger,
	}
}

// Nonce handles GET /api/auth/nonce?uid=
func (h *AuthHandlers) Nonce(c *gin.Context) {
	uid := strings.TrimSpace(c.Query("uid"))
	if uid == "" {
		abortWithMessage(c, http.StatusBadRequest, walletlink.MsgMissingUID)
		return
	}

	nonce, err := h.svc.IssueNonce(c.Request.Context(), uid)
	if err != nil {
		h.writeError(c, err, walletlink.MsgMissingUID)
		return
	}

	c.JSON(http.StatusOK, walletlink.NonceResponse{
		Success:   true,
		Nonce:     nonce.Value,
		ExpiresIn: nonce.ExpiresAt.Sub(nonce.CreatedAt).Milliseconds(),
	})
}

// VerifyWallet handles POST /api/auth/verify-wallet
func (h *AuthHandlers) VerifyWallet(c *gin.Context) {
	var req walletlink.VerifyWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, walletlink.MsgMissingVerifyFields)
		return
	}

	resp, err := h.svc.LinkWallet(c.Request.Context(), service.VerifyRequest{
		UserID:    strings.TrimSpace(req.UID),
		Address:   req.Address,
		Signature: req.Signature,
		Nonce:     req.Nonce,
	})
	if err != nil {
		h.writeError(c, err, walletlink.MsgMissingVerifyFields)
		return
	}

	c.JSON(http.StatusOK, walletlink.VerifyWalletResponse{
		Success: true,
		Message: walletlink.MsgWalletLinked,
		Wallet: walletlink.Wallet{
			Address:  resp.Link.Address,
			LinkedAt: resp.Link.LinkedAt,
			ChainID:  resp.Link.ChainID,
		},
		WalletCount: resp.Link.WalletCount,
		Token:       resp.Token,
	})
}

// Wallets handles GET /api/auth/wallets for the authenticated user
func (h *AuthHandlers) Wallets(c *gin.Context) {
	session := c.MustGet(SessionKey).(*core.Session)

	user, err := h.svc.Wallets(c.Request.Context(), session.UserID)
	if err != nil {
		h.writeError(c, err, walletlink.MsgMissingUID)
		return
	}

	wallets := make([]walletlink.Wallet, 0, len(user.Wallets))
	for _, w := range user.Wallets {
		wallets = append(wallets, walletlink.Wallet{
			Address:  w.Address,
			LinkedAt: w.LinkedAt,
			ChainID:  w.ChainID,
		})
	}

	c.JSON(http.StatusOK, walletlink.WalletsResponse{
		Success:     true,
		UID:         user.ID,
		Wallets:     wallets,
		WalletCount: user.WalletCount(),
	})
}

// Healthz reports liveness
func (h *AuthHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps service errors onto status codes and client messages.
// Internal faults are logged in full and reported generically.
func (h *AuthHandlers) writeError(c *gin.Context, err error, badRequestMsg string) {
	switch {
	case errors.Is(err, core.ErrBadRequest):
		abortWithMessage(c, http.StatusBadRequest, badRequestMsg)
	case errors.Is(err, core.ErrNoNonceFound):
		abortWithMessage(c, http.StatusBadRequest, walletlink.MsgNoNonceFound)
	case errors.Is(err, core.ErrNonceExpired):
		abortWithMessage(c, http.StatusBadRequest, walletlink.MsgNonceExpired)
	case errors.Is(err, core.ErrSignatureMismatch):
		abortWithMessage(c, http.StatusBadRequest, walletlink.MsgSignatureMismatch)
	case errors.Is(err, core.ErrUserNotFound):
		abortWithMessage(c, http.StatusNotFound, walletlink.MsgUserNotFound)
	case errors.Is(err, core.ErrInvalidToken), errors.Is(err, core.ErrTokenExpired):
		abortWithMessage(c, http.StatusUnauthorized, walletlink.MsgUnauthorized)
	default:
		_ = c.Error(err)
		h.logger.Error("Request failed",
			zap.String("request_id", GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		abortWithMessage(c, http.StatusInternalServerError, walletlink.MsgInternal)
	}
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, walletlink.ErrorResponse{Success: false, Message: message})
}
