package specification

import (
	"asksource-be/internal/repository/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// WithMessages preloads the session's turns in creation order.
type WithMessages struct{}

func (s WithMessages) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Messages", scope.OrderByCreatedAsc)
}

// RecentlyUpdated orders sessions by last activity, newest first.
type RecentlyUpdated struct{}

func (s RecentlyUpdated) Apply(db *gorm.DB) *gorm.DB {
	return scope.OrderByUpdatedDesc(db)
}
