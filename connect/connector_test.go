package connect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const bsc = 56

func TestConnector_InjectedFirst(t *testing.T) {
	injected := newFakeProvider(t, bsc)
	relay := newFakeProvider(t, bsc)

	c := NewConnector(NewDetector(StaticProbe{UA: uaIPhoneSafari, Injected: true}), zap.NewNop(),
		&InjectedAttempt{Provider: injected},
		&RelayAttempt{Gate: NewRelayGate(func(context.Context) (Provider, error) { return relay, nil })},
	)

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyInjected, conn.Strategy)
	assert.Equal(t, injected.address(), conn.Address)
	assert.Equal(t, uint64(bsc), conn.ChainID)
	assert.Equal(t, 0, relay.requestCount())
}

func TestConnector_FallsThroughOnRejection(t *testing.T) {
	injected := newFakeProvider(t, bsc)
	injected.err = ErrUserRejected
	relay := newFakeProvider(t, bsc)

	c := NewConnector(NewDetector(StaticProbe{UA: uaDesktopChrome, Injected: true}), zap.NewNop(),
		&InjectedAttempt{Provider: injected},
		&RelayAttempt{Gate: NewRelayGate(func(context.Context) (Provider, error) { return relay, nil })},
	)

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyRelay, conn.Strategy)
	assert.Equal(t, relay.address(), conn.Address)
}

func TestConnector_Exhaustion(t *testing.T) {
	locked := newFakeProvider(t, bsc)
	locked.err = ErrWalletLocked
	empty := newFakeProvider(t, bsc)
	empty.accounts = nil

	c := NewConnector(NewDetector(StaticProbe{UA: uaDesktopChrome, Injected: true}), zap.NewNop(),
		&InjectedAttempt{Provider: locked},
		&RelayAttempt{Gate: NewRelayGate(func(context.Context) (Provider, error) { return empty, nil })},
	)

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoWalletAvailable))

	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Attempts, 2)
	assert.Equal(t, KindWalletLocked, ce.Attempts[0].Kind)
	assert.Equal(t, StrategyInjected, ce.Attempts[0].Strategy)
	assert.Equal(t, KindNoAccounts, ce.Attempts[1].Kind)
	assert.Equal(t, StrategyRelay, ce.Attempts[1].Strategy)
	assert.Contains(t, err.Error(), "injected=WalletLocked")
}

func TestConnector_DeepLinkBeforeRelayOnMobile(t *testing.T) {
	var (
		mu  sync.Mutex
		log []Strategy
	)
	c := NewConnector(NewDetector(StaticProbe{UA: uaAndroid}), zap.NewNop(),
		&recordingAttempt{strategy: StrategyInjected, log: &log, mu: &mu, err: errors.New("unused")},
		&recordingAttempt{strategy: StrategyDeepLink, log: &log, mu: &mu, err: errors.New("app not installed")},
		&recordingAttempt{strategy: StrategyRelay, log: &log, mu: &mu, conn: &Connection{Strategy: StrategyRelay, Address: "0xabc"}},
	)

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StrategyRelay, conn.Strategy)

	if diff := cmp.Diff([]Strategy{StrategyDeepLink, StrategyRelay}, log); diff != "" {
		t.Errorf("attempt order mismatch (-want +got):\n%s", diff)
	}
}

func TestConnector_UnconfiguredStrategy(t *testing.T) {
	c := NewConnector(NewDetector(StaticProbe{UA: uaDesktopChrome}), zap.NewNop())

	_, err := c.Connect(context.Background())
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindNoWalletAvailable, ce.Kind)
	require.Len(t, ce.Attempts, 1)
	assert.Equal(t, StrategyRelay, ce.Attempts[0].Strategy)
}

func TestConnector_CancellationStopsWalk(t *testing.T) {
	injected := newFakeProvider(t, bsc)
	injected.block = true
	relay := newFakeProvider(t, bsc)

	c := NewConnector(NewDetector(StaticProbe{UA: uaDesktopChrome, Injected: true}), zap.NewNop(),
		&InjectedAttempt{Provider: injected},
		&RelayAttempt{Gate: NewRelayGate(func(context.Context) (Provider, error) { return relay, nil })},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, relay.requestCount())
}

func TestConnector_Order(t *testing.T) {
	c := NewConnector(NewDetector(StaticProbe{UA: uaIPhoneSafari}), zap.NewNop())
	assert.Equal(t, []Strategy{StrategyDeepLink, StrategyRelay}, c.Order())
}
