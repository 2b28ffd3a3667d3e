package connect

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/layer-3/walletlink/eventbus"
)

// Event types emitted on the bus
const (
	EventConnected      = "wallet.connected"
	EventDisconnected   = "wallet.disconnected"
	EventAccountChanged = "wallet.account_changed"
	EventWrongNetwork   = "wallet.wrong_network"
	EventLinked         = "wallet.linked"
)

// State of a wallet session
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateWrongNetwork State = "wrong_network"
)

// Session holds the live connection and follows the wallet's account and
// network changes
type Session struct {
	connector       *Connector
	requiredChainID uint64
	bus             *eventbus.Bus
	logger          *zap.Logger

	mu    sync.Mutex
	conn  *Connection
	state State
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithBus emits state transitions on bus
func WithBus(bus *eventbus.Bus) SessionOption {
	return func(s *Session) { s.bus = bus }
}

// NewSession creates a disconnected session. A zero requiredChainID accepts
// any network.
func NewSession(connector *Connector, requiredChainID uint64, logger *zap.Logger, opts ...SessionOption) *Session {
	s := &Session{
		connector:       connector,
		requiredChainID: requiredChainID,
		logger:          logger,
		state:           StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect establishes a new connection, replacing the current one
func (s *Session) Connect(ctx context.Context) (*Connection, error) {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conn = conn
	s.state = s.stateFor(conn.ChainID)
	state := s.state
	s.mu.Unlock()

	s.emit(ctx, EventConnected, conn)
	if state == StateWrongNetwork {
		s.emit(ctx, EventWrongNetwork, conn.ChainID)
	}
	return conn, nil
}

// Connection returns the current connection, nil when disconnected
func (s *Session) Connection() *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequiredChainID is the network links must be made on
func (s *Session) RequiredChainID() uint64 {
	return s.requiredChainID
}

// Disconnect drops the connection
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	wasConnected := s.conn != nil
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if wasConnected {
		s.emit(ctx, EventDisconnected, nil)
	}
}

// HandleAccountsChanged applies an accounts change from the wallet. No
// accounts disconnects, a different first account reconnects.
func (s *Session) HandleAccountsChanged(ctx context.Context, accounts []string) error {
	if len(accounts) == 0 {
		s.Disconnect(ctx)
		return nil
	}

	s.mu.Lock()
	current := s.conn
	s.mu.Unlock()

	if current != nil && strings.EqualFold(current.Address, accounts[0]) {
		return nil
	}

	s.logger.Info("Wallet account changed, reconnecting", zap.String("account", accounts[0]))
	conn, err := s.Connect(ctx)
	if err != nil {
		s.Disconnect(ctx)
		return err
	}
	s.emit(ctx, EventAccountChanged, conn.Address)
	return nil
}

// HandleChainChanged applies a network change from the wallet
func (s *Session) HandleChainChanged(ctx context.Context, chainID uint64) {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return
	}
	updated := *s.conn
	updated.ChainID = chainID
	s.conn = &updated
	prev := s.state
	s.state = s.stateFor(chainID)
	state := s.state
	s.mu.Unlock()

	if state == StateWrongNetwork && prev != StateWrongNetwork {
		s.logger.Warn("Wallet switched to an unsupported network",
			zap.Uint64("chain_id", chainID),
			zap.Uint64("required_chain_id", s.requiredChainID))
		s.emit(ctx, EventWrongNetwork, chainID)
	}
}

// Watch applies provider events until ctx is done or events is closed
func (s *Session) Watch(ctx context.Context, events <-chan ProviderEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Kind {
			case AccountsChanged:
				if err := s.HandleAccountsChanged(ctx, ev.Accounts); err != nil {
					s.logger.Warn("Reconnect after account change failed", zap.Error(err))
				}
			case ChainChanged:
				s.HandleChainChanged(ctx, ev.ChainID)
			}
		}
	}
}

// CheckNetwork returns a KindWrongNetwork error when the session is on the
// wrong chain
func (s *Session) CheckNetwork() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateWrongNetwork {
		return &ConnectionError{Kind: KindWrongNetwork, Strategy: s.conn.Strategy}
	}
	return nil
}

func (s *Session) stateFor(chainID uint64) State {
	if s.requiredChainID != 0 && chainID != s.requiredChainID {
		return StateWrongNetwork
	}
	return StateConnected
}

func (s *Session) emit(ctx context.Context, eventType string, data any) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, eventType, data); err != nil && !errors.Is(err, eventbus.ErrNoContext) {
		s.logger.Warn("Event handler failed", zap.String("event", eventType), zap.Error(err))
	}
}
