package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title string `json:"title" validate:"omitempty,max=255"`
}

type TurnResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ConversationResponse struct {
	Id        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Turns     []TurnResponse `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at"`
}

// AppendMessageRequest stores one finalized turn. CreatedAt is the client's append time;
// the server clock is used when it is absent.
type AppendMessageRequest struct {
	Role      string                 `json:"role" validate:"required,oneof=user assistant"`
	Content   string                 `json:"content" validate:"required"`
	CreatedAt *time.Time             `json:"created_at,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
