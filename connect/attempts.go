package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// DefaultHandoffTimeout bounds how long a deep-link handoff waits for the
// wallet app to report an account
const DefaultHandoffTimeout = 2 * time.Minute

const metaMaskDappLink = "https://metamask.app.link/dapp/"

// Attempt is one strategy's connection procedure
type Attempt interface {
	Strategy() Strategy
	Connect(ctx context.Context) (*Connection, error)
}

// connectProvider requests accounts and reads the chain of p
func connectProvider(ctx context.Context, strategy Strategy, p Provider) (*Connection, error) {
	accounts, err := p.RequestAccounts(ctx)
	if err != nil {
		return nil, attemptError(strategy, err)
	}
	if len(accounts) == 0 {
		return nil, &ConnectionError{Kind: KindNoAccounts, Strategy: strategy}
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, attemptError(strategy, fmt.Errorf("failed to read chain id: %w", err))
	}

	return &Connection{
		Strategy: strategy,
		Address:  accounts[0],
		ChainID:  chainID,
		Provider: p,
	}, nil
}

// InjectedAttempt connects through the provider exposed in the page
type InjectedAttempt struct {
	Provider Provider
}

func (a *InjectedAttempt) Strategy() Strategy { return StrategyInjected }

func (a *InjectedAttempt) Connect(ctx context.Context) (*Connection, error) {
	if a.Provider == nil {
		return nil, &ConnectionError{Kind: KindNoWalletAvailable, Strategy: StrategyInjected}
	}
	return connectProvider(ctx, StrategyInjected, a.Provider)
}

// Navigator hands the client off to another URL
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// DeepLinkAttempt hands the page off to the native wallet app and waits for
// the app's embedded browser to report an account
type DeepLinkAttempt struct {
	PageURL   string
	Navigator Navigator
	// NewProvider initializes a remote-capable provider that resolves once the
	// user returns through the app
	NewProvider    func(ctx context.Context) (Provider, error)
	HandoffTimeout time.Duration
}

func (a *DeepLinkAttempt) Strategy() Strategy { return StrategyDeepLink }

func (a *DeepLinkAttempt) Connect(ctx context.Context) (*Connection, error) {
	link, err := DeepLink(a.PageURL)
	if err != nil {
		return nil, &ConnectionError{Kind: KindProviderFailure, Strategy: StrategyDeepLink, Err: err}
	}
	if a.NewProvider == nil || a.Navigator == nil {
		return nil, &ConnectionError{Kind: KindNoWalletAvailable, Strategy: StrategyDeepLink}
	}

	provider, err := a.NewProvider(ctx)
	if err != nil {
		return nil, attemptError(StrategyDeepLink, fmt.Errorf("failed to initialize provider: %w", err))
	}

	if err := a.Navigator.Navigate(ctx, link); err != nil {
		return nil, attemptError(StrategyDeepLink, fmt.Errorf("failed to open %s: %w", link, err))
	}

	timeout := a.HandoffTimeout
	if timeout <= 0 {
		timeout = DefaultHandoffTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := connectProvider(hctx, StrategyDeepLink, provider)
	if err != nil {
		if ctx.Err() == nil && errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, &ConnectionError{Kind: KindHandoffAbandoned, Strategy: StrategyDeepLink, Err: hctx.Err()}
		}
		return nil, err
	}
	return conn, nil
}

// DeepLink builds the wallet app link that reopens pageURL in the app's browser
func DeepLink(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid page url %q: missing host", pageURL)
	}

	link := metaMaskDappLink + u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		link += "?" + u.RawQuery
	}
	return link, nil
}

// RelayFactory constructs a relay session provider
type RelayFactory func(ctx context.Context) (Provider, error)

// RelayGate lazily constructs one relay provider and hands the same instance
// to every caller. A failed construction is not cached.
type RelayGate struct {
	mu       sync.Mutex
	factory  RelayFactory
	provider Provider
}

// NewRelayGate creates a gate around factory
func NewRelayGate(factory RelayFactory) *RelayGate {
	return &RelayGate{factory: factory}
}

// Get returns the relay provider, constructing it on first use
func (g *RelayGate) Get(ctx context.Context) (Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.provider != nil {
		return g.provider, nil
	}
	p, err := g.factory(ctx)
	if err != nil {
		return nil, err
	}
	g.provider = p
	return p, nil
}

// Reset drops the cached provider so the next Get builds a new session
func (g *RelayGate) Reset() {
	g.mu.Lock()
	g.provider = nil
	g.mu.Unlock()
}

// RelayAttempt connects through an out-of-band relay session, e.g. a QR
// code scanned by a wallet on another device
type RelayAttempt struct {
	Gate *RelayGate
	// ApprovalTimeout bounds the wait for remote approval; zero waits for ctx
	ApprovalTimeout time.Duration
}

func (a *RelayAttempt) Strategy() Strategy { return StrategyRelay }

func (a *RelayAttempt) Connect(ctx context.Context) (*Connection, error) {
	if a.Gate == nil {
		return nil, &ConnectionError{Kind: KindNoWalletAvailable, Strategy: StrategyRelay}
	}

	provider, err := a.Gate.Get(ctx)
	if err != nil {
		return nil, attemptError(StrategyRelay, fmt.Errorf("failed to start relay session: %w", err))
	}

	if a.ApprovalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.ApprovalTimeout)
		defer cancel()
	}
	return connectProvider(ctx, StrategyRelay, provider)
}
