package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/logger"
)

// Store is the Redis-backed record store. Records are JSON values keyed
// by id; per-owner sorted sets (scored by creation time) provide the
// collection order. Every successful write publishes a change event on
// the owner's pub/sub channel.
type Store struct {
	client *redis.Client
	logger logger.Logger
}

// NewStore creates a new Redis record store.
func NewStore(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		logger: log,
	}
}

// publish emits a change event for the owner. Publishing is best
// effort: the write already succeeded, and sessions re-seed from the
// store, so a lost event degrades liveness, not correctness.
func (s *Store) publish(ctx context.Context, ownerID string, t feed.RecordType, ev feed.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("failed to marshal feed event",
			logger.String("owner_id", ownerID),
			logger.Error(err))
		return
	}

	if err := s.client.Publish(ctx, feed.Channel(ownerID, t), payload).Err(); err != nil {
		s.logger.Warn("failed to publish feed event",
			logger.String("owner_id", ownerID),
			logger.String("channel", feed.Channel(ownerID, t)),
			logger.Error(err))
	}
}
