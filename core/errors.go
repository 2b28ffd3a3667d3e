package core

import "errors"

var (
	ErrBadRequest        = errors.New("bad request")
	ErrNoNonceFound      = errors.New("no nonce found")
	ErrNonceExpired      = errors.New("nonce has expired")
	ErrSignatureMismatch = errors.New("signature verification failed")
	ErrInternal          = errors.New("internal error")
	ErrInvalidAddress    = errors.New("invalid wallet address")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token has expired")
	ErrUserNotFound      = errors.New("user not found")
)

// ErrRateLimited is returned when a client exceeds its request budget
var ErrRateLimited = errors.New("too many requests")
