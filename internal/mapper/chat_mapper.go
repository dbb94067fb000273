package mapper

import (
	"time"

	"asksource-be/internal/entity"
	"asksource-be/internal/model"

	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.Conversation {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	turns := make([]entity.Turn, 0, len(s.Messages))
	for i := range s.Messages {
		turns = append(turns, *m.ChatMessageToEntity(&s.Messages[i]))
	}

	return &entity.Conversation{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		Turns:     turns,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

// ChatSessionToModel maps the session row only; turns are written through the message repository.
func (m *ChatMapper) ChatSessionToModel(s *entity.Conversation) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.Turn {
	if msg == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(msg.Metadata) > 0 {
		metadata = map[string]interface{}(msg.Metadata)
	}

	return &entity.Turn{
		Id:             msg.Id,
		ConversationId: msg.ChatSessionId,
		Role:           entity.Role(msg.Role),
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		Metadata:       metadata,
	}
}

func (m *ChatMapper) ChatMessageToModel(t *entity.Turn) *model.ChatMessage {
	if t == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(t.Metadata) > 0 {
		metadata = t.Metadata
	}

	return &model.ChatMessage{
		Id:            t.Id,
		Content:       t.Content,
		Role:          string(t.Role),
		ChatSessionId: t.ConversationId,
		Metadata:      metadata,
		CreatedAt:     t.CreatedAt,
	}
}
