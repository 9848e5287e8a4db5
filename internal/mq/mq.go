package mq

import (
	"context"
	"encoding/json"
	"time"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// CompletedEvent is the payload published when a user's onboarding journey
// reaches the terminal section.
type CompletedEvent struct {
	UserID      int       `json:"userId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Publisher emits onboarding events to a broker topic.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher for the provided backend and topic.
func NewPublisher(backend Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// PublishCompleted emits the completion event for a user.
func (p *Publisher) PublishCompleted(ctx context.Context, userID int, completedAt time.Time) error {
	data, err := json.Marshal(CompletedEvent{UserID: userID, CompletedAt: completedAt})
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.topic, data, map[string]string{
		"event": "onboarding.completed",
	})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
