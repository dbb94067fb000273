package redis

import (
	"context"
	"time"

	"asksource-be/internal/repository/contract"

	goredis "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "asksource:conversation_lock:"

// ConversationLockRepository shares the busy flag across every backend instance.
type ConversationLockRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ contract.ConversationLockRepository = (*ConversationLockRepository)(nil)

func NewConversationLockRepository(rdb *goredis.Client, ttl time.Duration) *ConversationLockRepository {
	return &ConversationLockRepository{rdb: rdb, ttl: ttl}
}

func (r *ConversationLockRepository) Acquire(ctx context.Context, conversationID string) (bool, error) {
	return r.rdb.SetNX(ctx, lockKeyPrefix+conversationID, 1, r.ttl).Result()
}

func (r *ConversationLockRepository) Release(ctx context.Context, conversationID string) error {
	return r.rdb.Del(ctx, lockKeyPrefix+conversationID).Err()
}
