package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/markitapp/markit/internal/logger"
)

// RedisFeed delivers change events over Redis Pub/Sub. The store
// publishes one message per successful write on the owner's channel;
// every subscribed session (this process or another replica) receives
// it.
type RedisFeed struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisFeed creates a feed backed by the given Redis client.
func NewRedisFeed(client *redis.Client, log logger.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: log,
	}
}

// Subscribe opens a change stream for one owner and record type.
// The stream stays open until Close is called or ctx is canceled.
func (f *RedisFeed) Subscribe(ctx context.Context, ownerID string, t RecordType) (Subscription, error) {
	channel := Channel(ownerID, t)

	pubsub := f.client.Subscribe(ctx, channel)

	// Force the subscription onto the wire before returning, so no
	// event published after Subscribe returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan Event, 64),
	}

	go sub.pump(ctx, channel, f.logger)

	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan Event
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

// Close unsubscribes and stops delivery. The events channel is closed
// once the pump goroutine drains; no events are delivered afterwards.
func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}

func (s *redisSubscription) pump(ctx context.Context, channel string, log logger.Logger) {
	defer close(s.events)

	// pubsub.Channel() is closed by pubsub.Close().
	for msg := range s.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Warn("dropping malformed feed event",
				logger.String("channel", channel),
				logger.Error(err))
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
