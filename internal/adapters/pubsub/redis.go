package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vncsmyrnk/poll/internal/core/domain"
)

const (
	DefaultRedisChannel = "poll:events"
	DefaultRelayBuffer  = 256

	relayPublishTimeout = 2 * time.Second
	relayMaxRetryDelay  = 30 * time.Second
)

type envelope struct {
	Origin string       `json:"origin"`
	Topic  string       `json:"topic"`
	Event  domain.Event `json:"event"`
}

// RedisRelay extends a local Bus across instances. Local publishes are
// delivered directly and queued for the Redis channel; Run drains that queue
// and re-publishes events mirrored by other instances onto the local bus.
//
// Publish never touches the network. When the queue is full, the mirrored
// copy is dropped.
type RedisRelay struct {
	*Bus
	client  *redis.Client
	channel string
	origin  string
	outbox  chan []byte
	logger  *slog.Logger
}

func NewRedisRelay(bus *Bus, client *redis.Client, channel string, logger *slog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{
		Bus:     bus,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		outbox:  make(chan []byte, DefaultRelayBuffer),
		logger:  logger,
	}
}

func (r *RedisRelay) Publish(ctx context.Context, topic string, event domain.Event) {
	r.Bus.Publish(ctx, topic, event)

	data, err := json.Marshal(envelope{Origin: r.origin, Topic: topic, Event: event})
	if err != nil {
		r.logger.Warn("failed to encode event for relay", "topic", topic, "error", err)
		return
	}

	select {
	case r.outbox <- data:
	default:
		r.logger.Warn("relay queue full, dropping event", "topic", topic, "event_id", event.ID)
	}
}

// Run mirrors queued events to Redis and consumes the relay channel until
// ctx is done. Lost subscriptions are retried with exponential backoff.
func (r *RedisRelay) Run(ctx context.Context) error {
	go r.drain(ctx)

	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = relayMaxRetryDelay
	retry.MaxElapsedTime = 0

	for {
		err := r.consume(ctx, retry)
		if ctx.Err() != nil {
			return nil
		}

		delay := retry.NextBackOff()
		r.logger.Warn("relay subscription lost, retrying", "channel", r.channel, "retry_in", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *RedisRelay) consume(ctx context.Context, retry backoff.BackOff) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	retry.Reset()
	r.logger.Info("relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", r.channel)
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			err := r.client.Publish(pubCtx, r.channel, data).Err()
			cancel()
			if err != nil {
				r.logger.Warn("failed to relay event", "channel", r.channel, "error", err)
			}
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("discarding malformed relay message", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.Bus.Publish(ctx, env.Topic, env.Event)
}
