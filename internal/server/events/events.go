// Package events carries session and key changes between server instances
// so every instance drops cached unlock passwords it should no longer hold.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	TopicSessionEnded = "pinmail.session_ended"
	TopicKeysChanged  = "pinmail.keys_changed"
)

// SessionEndedEvent is published on logout.
type SessionEndedEvent struct {
	SessionID string `json:"session_id"`
}

// KeysChangedEvent is published after a user's salt or private key changed.
type KeysChangedEvent struct {
	UserID string `json:"user_id"`
}

// Publisher publishes lifecycle events on a watermill publisher.
type Publisher struct {
	publisher message.Publisher
}

func NewPublisher(p message.Publisher) *Publisher {
	return &Publisher{publisher: p}
}

func (p *Publisher) SessionEnded(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicSessionEnded, SessionEndedEvent{SessionID: sessionID})
}

func (p *Publisher) KeysChanged(ctx context.Context, userID string) error {
	return p.publish(ctx, TopicKeysChanged, KeysChangedEvent{UserID: userID})
}

func (p *Publisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
