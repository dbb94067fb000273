package entity

import (
	"strings"
	"time"

	"asksource-be/pkg/apperror"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a conversation. Id stays uuid.Nil until the backend stores it.
type Turn struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           Role
	Content        string
	CreatedAt      time.Time
	Metadata       map[string]interface{}
}

func NewTurn(role Role, content string, now time.Time) Turn {
	return Turn{Role: role, Content: content, CreatedAt: now}
}

func (t Turn) Validate() error {
	if t.Role == "" {
		return apperror.New(apperror.KindValidationError, "role is required")
	}
	if !t.Role.Valid() {
		return apperror.Newf(apperror.KindValidationError, "role must be user or assistant, got %q", t.Role)
	}
	if strings.TrimSpace(t.Content) == "" {
		return apperror.New(apperror.KindValidationError, "content is required")
	}
	return nil
}
