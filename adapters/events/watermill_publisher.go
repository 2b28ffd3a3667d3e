package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/walletlink/core"
	"github.com/layer-3/walletlink/ports"
)

// TopicWalletLinked is the default topic for wallet linked events
const TopicWalletLinked = "walletlink.wallet_linked"

// EventTypeWalletLinked is stored in the message metadata under "event_type"
const EventTypeWalletLinked = "wallet.linked"

// WalletLinkedEvent represents a wallet being linked to a user
type WalletLinkedEvent struct {
	UserID      string    `json:"uid"`
	Address     string    `json:"address"`
	ChainID     uint64    `json:"chain_id"`
	WalletCount int       `json:"wallet_count"`
	LinkedAt    time.Time `json:"linked_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = TopicWalletLinked
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// PublishWalletLinked publishes a wallet linked event
func (p *WatermillPublisher) PublishWalletLinked(ctx context.Context, result *core.LinkResult) error {
	event := WalletLinkedEvent{
		UserID:      result.UserID,
		Address:     result.Address,
		ChainID:     result.ChainID,
		WalletCount: result.WalletCount,
		LinkedAt:    result.LinkedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.Metadata.Set("event_type", EventTypeWalletLinked)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// DecodeWalletLinked unmarshals the payload of a wallet linked message
func DecodeWalletLinked(msg *message.Message) (WalletLinkedEvent, error) {
	var event WalletLinkedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return WalletLinkedEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
