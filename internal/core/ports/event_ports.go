package ports

import (
	"context"

	"github.com/vncsmyrnk/poll/internal/core/domain"
)

// EventPublisher fans an event out to the current subscribers of a topic.
// Publish never blocks on subscribers and never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event domain.Event)
}

type Subscription interface {
	Events() <-chan domain.Event
	Close()
}

type EventBus interface {
	EventPublisher
	Subscribe(topics ...string) Subscription
	SubscriberCount(topic string) int
}
