package connect

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies connection failures
type ErrorKind string

const (
	KindNoWalletAvailable ErrorKind = "NoWalletAvailable"
	KindNoAccounts        ErrorKind = "NoAccounts"
	KindWalletLocked      ErrorKind = "WalletLocked"
	KindUserRejected      ErrorKind = "UserRejected"
	KindWrongNetwork      ErrorKind = "WrongNetwork"
	KindHandoffAbandoned  ErrorKind = "HandoffAbandoned"
	KindProviderFailure   ErrorKind = "ProviderFailure"
)

// ConnectionError is returned when a wallet connection cannot be made.
// On exhaustion Kind is KindNoWalletAvailable and Attempts holds the
// failure of every strategy tried.
type ConnectionError struct {
	Kind     ErrorKind
	Strategy Strategy
	Err      error
	Attempts []*ConnectionError
}

func (e *ConnectionError) Error() string {
	var b strings.Builder
	b.WriteString("connect: ")
	b.WriteString(string(e.Kind))
	if e.Strategy != "" {
		fmt.Fprintf(&b, " (%s)", e.Strategy)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Attempts) > 0 {
		parts := make([]string, len(e.Attempts))
		for i, a := range e.Attempts {
			parts[i] = fmt.Sprintf("%s=%s", a.Strategy, a.Kind)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *ConnectionError of kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Kind == kind
}

func attemptError(strategy Strategy, err error) *ConnectionError {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		if ce.Strategy == "" {
			ce.Strategy = strategy
		}
		return ce
	}

	kind := KindProviderFailure
	switch {
	case errors.Is(err, ErrUserRejected):
		kind = KindUserRejected
	case errors.Is(err, ErrWalletLocked):
		kind = KindWalletLocked
	}
	return &ConnectionError{Kind: kind, Strategy: strategy, Err: err}
}
