package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

func event(t domain.EventType) domain.Event {
	return domain.NewEvent(t, uuid.Nil, time.Now(), nil)
}

func receive(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(4, nil)
	bus.Publish(context.Background(), "polls:all", event(domain.EventPollCreated))
	assert.Equal(t, 0, bus.SubscriberCount("polls:all"))
}

func TestSubscribeReceivesInPublishOrder(t *testing.T) {
	bus := NewBus(8, nil)
	sub := bus.Subscribe("poll:1")
	defer sub.Close()

	ctx := context.Background()
	sent := []domain.Event{event(domain.EventVoteCast), event(domain.EventPollUpdated), event(domain.EventViewerCount)}
	for _, e := range sent {
		bus.Publish(ctx, "poll:1", e)
	}

	for _, want := range sent {
		assert.Equal(t, want.ID, receive(t, sub.Events()).ID)
	}
}

func TestSubscribeToSeveralTopics(t *testing.T) {
	bus := NewBus(8, nil)
	sub := bus.Subscribe("poll:1", "poll_stats:1")
	defer sub.Close()

	ctx := context.Background()
	bus.Publish(ctx, "poll:1", event(domain.EventVoteCast))
	bus.Publish(ctx, "poll_stats:1", event(domain.EventStatsUpdated))
	bus.Publish(ctx, "poll:2", event(domain.EventVoteCast))

	assert.Equal(t, domain.EventVoteCast, receive(t, sub.Events()).Type)
	assert.Equal(t, domain.EventStatsUpdated, receive(t, sub.Events()).Type)
	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected event from another topic: %v", e.Type)
	default:
	}
}

func TestFullBufferDropsWithoutBlocking(t *testing.T) {
	bus := NewBus(2, nil)
	slow := bus.Subscribe("polls:activity")
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			bus.Publish(context.Background(), "polls:activity", event(domain.EventVoteActivity))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, slow.Events(), 2)

	// Once drained, the subscriber receives new events again.
	receive(t, slow.Events())
	receive(t, slow.Events())
	bus.Publish(context.Background(), "polls:activity", event(domain.EventVoteActivity))
	assert.Equal(t, domain.EventVoteActivity, receive(t, slow.Events()).Type)
}

func TestCloseUnsubscribes(t *testing.T) {
	bus := NewBus(4, nil)
	a := bus.Subscribe("poll:1")
	b := bus.Subscribe("poll:1")
	assert.Equal(t, 2, bus.SubscriberCount("poll:1"))

	a.Close()
	a.Close()
	assert.Equal(t, 1, bus.SubscriberCount("poll:1"))

	_, open := <-a.Events()
	assert.False(t, open)

	bus.Publish(context.Background(), "poll:1", event(domain.EventVoteCast))
	receive(t, b.Events())

	b.Close()
	assert.Equal(t, 0, bus.SubscriberCount("poll:1"))
}

func TestBusesAreIsolated(t *testing.T) {
	first := NewBus(4, nil)
	second := NewBus(4, nil)
	sub := second.Subscribe("polls:all")
	defer sub.Close()

	first.Publish(context.Background(), "polls:all", event(domain.EventPollCreated))
	assert.Empty(t, sub.Events())
}

func TestConcurrentPublishAndClose(t *testing.T) {
	bus := NewBus(1, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		sub := bus.Subscribe("poll:1")
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), "poll:1", event(domain.EventVoteCast))
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.SubscriberCount("poll:1"))
}
