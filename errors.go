package walletlink

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/layer-3/walletlink/core"
)

// Messages returned to clients
const (
	MsgMissingUID          = "Missing required parameter: uid"
	MsgMissingVerifyFields = "Missing required fields: uid, address, signature"
	MsgNoNonceFound        = "No nonce found. Please request a new nonce."
	MsgNonceExpired        = "Nonce has expired. Please request a new nonce."
	MsgSignatureMismatch   = "Signature verification failed"
	MsgInternal            = "Internal server error"
	MsgWalletLinked        = "Wallet linked successfully"
	MsgUnauthorized        = "Invalid or expired session token"
	MsgUserNotFound        = "User not found"
	MsgRateLimited         = "Too many requests"
)

var messageErrors = map[string]error{
	MsgMissingUID:          core.ErrBadRequest,
	MsgMissingVerifyFields: core.ErrBadRequest,
	MsgNoNonceFound:        core.ErrNoNonceFound,
	MsgNonceExpired:        core.ErrNonceExpired,
	MsgSignatureMismatch:   core.ErrSignatureMismatch,
	MsgInternal:            core.ErrInternal,
	MsgUnauthorized:        core.ErrInvalidToken,
	MsgUserNotFound:        core.ErrUserNotFound,
	MsgRateLimited:         core.ErrRateLimited,
}

// APIError is a non-2xx response from the service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("walletlink: %d %s", e.StatusCode, e.Message)
}

// Is matches the core sentinel the server mapped to this response, so callers
// can branch with errors.Is(err, core.ErrNonceExpired)
func (e *APIError) Is(target error) bool {
	if sentinel, ok := messageErrors[e.Message]; ok {
		return errors.Is(sentinel, target)
	}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return target == core.ErrInvalidToken
	case http.StatusTooManyRequests:
		return target == core.ErrRateLimited
	case http.StatusBadRequest:
		return target == core.ErrBadRequest
	}
	return e.StatusCode >= http.StatusInternalServerError && target == core.ErrInternal
}

// Retryable reports whether the flow can continue by requesting a new nonce
func (e *APIError) Retryable() bool {
	return errors.Is(e, core.ErrNoNonceFound) ||
		errors.Is(e, core.ErrNonceExpired) ||
		errors.Is(e, core.ErrSignatureMismatch)
}
