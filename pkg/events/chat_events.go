package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeConversationCreated = "conversation_created"
	TypeMessageAppended     = "message_appended"
)

// ConversationCreated is emitted after a conversation row is committed.
func ConversationCreated(userID, conversationID uuid.UUID, title string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeConversationCreated,
		Data: map[string]interface{}{
			"user_id":         userID.String(),
			"conversation_id": conversationID.String(),
			"title":           title,
		},
		OccurredAt: at,
	}
}

// MessageAppended is emitted after a turn is committed.
func MessageAppended(userID, conversationID, messageID uuid.UUID, role, content string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeMessageAppended,
		Data: map[string]interface{}{
			"user_id":         userID.String(),
			"conversation_id": conversationID.String(),
			"message_id":      messageID.String(),
			"role":            role,
			"content":         content,
		},
		OccurredAt: at,
	}
}

// UserID returns the owning user of a chat event, or uuid.Nil.
func UserID(e Event) uuid.UUID {
	raw, _ := e.Payload()["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
