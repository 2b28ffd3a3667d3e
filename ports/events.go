package ports

import (
	"context"

	"github.com/layer-3/walletlink/core"
)

// EventPublisher publishes integration events to other services
type EventPublisher interface {
	PublishWalletLinked(ctx context.Context, result *core.LinkResult) error
}
