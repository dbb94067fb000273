package persistence

import (
	"context"

	"asksource-be/internal/entity"

	"github.com/google/uuid"
)

// Adapter writes a finalized turn to durable storage. The caller's identity travels in ctx
// (see pkg/identity). Calls are not idempotent: retrying a successful call stores the turn twice.
//
// Errors are *apperror.Error of kind Unauthenticated, NotFound, ValidationError or
// PersistenceFailure.
type Adapter interface {
	AppendMessage(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) error
}

// AdapterFunc adapts a plain function to Adapter.
type AdapterFunc func(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) error

func (f AdapterFunc) AppendMessage(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) error {
	return f(ctx, conversationID, turn)
}
