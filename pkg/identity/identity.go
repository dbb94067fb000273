package identity

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated caller as supplied by the identity provider.
// Token is the bearer credential forwarded to the backend.
type Identity struct {
	UserID uuid.UUID
	Token  string
}

type ctxKey struct{}

func WithContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or nil when the caller is anonymous.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	if id == nil || id.UserID == uuid.Nil {
		return nil
	}
	return id
}
