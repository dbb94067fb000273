package memory

import (
	"context"
	"time"

	"asksource-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// ConversationLockRepository is the single-instance busy flag for conversations
// with an answer in flight. Entries expire so a crashed request cannot wedge a conversation.
type ConversationLockRepository struct {
	cache *cache.Cache
	ttl   time.Duration
}

var _ contract.ConversationLockRepository = (*ConversationLockRepository)(nil)

func NewConversationLockRepository(ttl time.Duration) *ConversationLockRepository {
	c := cache.New(ttl, 10*time.Minute)
	return &ConversationLockRepository{
		cache: c,
		ttl:   ttl,
	}
}

// Acquire reports false when the conversation already holds a lock.
func (r *ConversationLockRepository) Acquire(ctx context.Context, conversationID string) (bool, error) {
	if err := r.cache.Add(conversationID, struct{}{}, r.ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *ConversationLockRepository) Release(ctx context.Context, conversationID string) error {
	r.cache.Delete(conversationID)
	return nil
}
