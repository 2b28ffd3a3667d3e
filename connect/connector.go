package connect

import (
	"context"

	"go.uber.org/zap"
)

// Connector tries each strategy of the selected order until one connects
type Connector struct {
	detector Detector
	attempts map[Strategy]Attempt
	logger   *zap.Logger
}

// NewConnector creates a connector. Strategies without an attempt are
// recorded as unavailable when selected.
func NewConnector(detector Detector, logger *zap.Logger, attempts ...Attempt) *Connector {
	byStrategy := make(map[Strategy]Attempt, len(attempts))
	for _, a := range attempts {
		byStrategy[a.Strategy()] = a
	}
	return &Connector{
		detector: detector,
		attempts: byStrategy,
		logger:   logger,
	}
}

// Order returns the strategies Connect would try now
func (c *Connector) Order() []Strategy {
	return SelectOrder(c.detector.Detect())
}

// Connect runs the strategies strictly one after another. Individual failures
// are logged and skipped; only exhaustion is returned, as a
// *ConnectionError of KindNoWalletAvailable. Cancelling ctx stops the walk
// and returns ctx.Err().
func (c *Connector) Connect(ctx context.Context) (*Connection, error) {
	env := c.detector.Detect()
	order := SelectOrder(env)

	c.logger.Debug("Connecting wallet",
		zap.Bool("mobile", env.IsMobile),
		zap.Bool("injected", env.HasInjectedProvider),
		zap.Bool("embedded", env.IsWalletEmbeddedBrowser),
		zap.Any("order", order))

	var failures []*ConnectionError
	for _, strategy := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt, ok := c.attempts[strategy]
		if !ok {
			failures = append(failures, &ConnectionError{Kind: KindNoWalletAvailable, Strategy: strategy})
			continue
		}

		conn, err := attempt.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ce := attemptError(strategy, err)
			c.logger.Warn("Wallet strategy failed",
				zap.String("strategy", string(strategy)),
				zap.String("kind", string(ce.Kind)),
				zap.Error(ce.Err))
			failures = append(failures, ce)
			continue
		}

		c.logger.Info("Wallet connected",
			zap.String("strategy", string(strategy)),
			zap.String("address", conn.Address),
			zap.Uint64("chain_id", conn.ChainID))
		return conn, nil
	}

	return nil, &ConnectionError{Kind: KindNoWalletAvailable, Attempts: failures}
}
