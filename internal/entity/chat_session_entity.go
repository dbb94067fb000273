package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a user's ordered sequence of turns against the answering service.
type Conversation struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	Turns     []Turn
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

// LastUpdated falls back to CreatedAt for conversations that were never touched.
func (c *Conversation) LastUpdated() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// Clone copies the turn slice so the result shares no backing array with c.
func (c Conversation) Clone() Conversation {
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)
	c.Turns = turns
	return c
}
