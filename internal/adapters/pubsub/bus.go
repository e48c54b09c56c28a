// Package pubsub fans domain events out to live observers.
package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vncsmyrnk/poll/internal/core/domain"
	"github.com/vncsmyrnk/poll/internal/core/ports"
)

const DefaultBuffer = 64

// Bus is an in-process topic bus. Publish never blocks: an event that does
// not fit in a subscriber's buffer is dropped for that subscriber only.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[*subscription]struct{}
	buffer int
	logger *slog.Logger
}

func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[string]map[*subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"topic", topic,
				"event_id", event.ID,
				"event_type", event.Type,
			)
		}
	}
}

// Subscribe registers one observer for all given topics. Events from every
// topic arrive on the same channel, in publish order per publisher.
func (b *Bus) Subscribe(topics ...string) ports.Subscription {
	sub := &subscription{
		bus:    b,
		topics: topics,
		ch:     make(chan domain.Event, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		subs, ok := b.topics[topic]
		if !ok {
			subs = make(map[*subscription]struct{})
			b.topics[topic] = subs
		}
		subs[sub] = struct{}{}
	}
	return sub
}

func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range sub.topics {
		subs := b.topics[topic]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	close(sub.ch)
}

type subscription struct {
	bus    *Bus
	topics []string
	ch     chan domain.Event
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.Event {
	return s.ch
}

// Close unregisters the subscription and closes its channel. It is safe to
// call more than once.
func (s *subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}
