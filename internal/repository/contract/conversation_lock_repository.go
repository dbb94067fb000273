package contract

import "context"

// ConversationLockRepository marks a conversation busy while an answer is in flight.
// Acquire returns false without error when another request holds the lock.
type ConversationLockRepository interface {
	Acquire(ctx context.Context, conversationID string) (bool, error)
	Release(ctx context.Context, conversationID string) error
}
