package connect

import (
	"context"
	"crypto/ecdsa"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletlink/internal/eth"
)

// fakeProvider is a scripted wallet
type fakeProvider struct {
	mu       sync.Mutex
	key      *ecdsa.PrivateKey
	accounts []string
	chainID  uint64
	err      error
	signErr  error
	block    bool
	requests int
}

func newFakeProvider(t *testing.T, chainID uint64) *fakeProvider {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &fakeProvider{
		key:      key,
		accounts: []string{crypto.PubkeyToAddress(key.PublicKey).Hex()},
		chainID:  chainID,
	}
}

func (p *fakeProvider) address() string {
	return crypto.PubkeyToAddress(p.key.PublicKey).Hex()
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	p.requests++
	block, err, accounts := p.block, p.err, p.accounts
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *fakeProvider) ChainID(context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID, nil
}

func (p *fakeProvider) PersonalSign(_ context.Context, _ string, message string) (string, error) {
	if p.signErr != nil {
		return "", p.signErr
	}
	return eth.SignPersonal(p.key, message)
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

// recordingAttempt records the order attempts run in
type recordingAttempt struct {
	strategy Strategy
	log      *[]Strategy
	mu       *sync.Mutex
	conn     *Connection
	err      error
}

func (a *recordingAttempt) Strategy() Strategy { return a.strategy }

func (a *recordingAttempt) Connect(context.Context) (*Connection, error) {
	a.mu.Lock()
	*a.log = append(*a.log, a.strategy)
	a.mu.Unlock()
	return a.conn, a.err
}

type countingProbe struct {
	StaticProbe
	mu    sync.Mutex
	calls int
}

func (p *countingProbe) UserAgent() string {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.StaticProbe.UserAgent()
}

type recordingNavigator struct {
	mu      sync.Mutex
	targets []string
	err     error
}

func (n *recordingNavigator) Navigate(_ context.Context, target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
	return n.err
}
