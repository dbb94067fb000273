package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"asksource-be/internal/dto"
	"asksource-be/internal/entity"
	"asksource-be/internal/model"
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/repository/unitofwork"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/database"
	"asksource-be/pkg/events"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	return db
}

func asUser(userID uuid.UUID) context.Context {
	return identity.WithContext(context.Background(), &identity.Identity{UserID: userID})
}

func newChatService(t *testing.T) (IChatService, *recordingPublisher, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	pub := &recordingPublisher{}
	return NewChatService(unitofwork.NewRepositoryFactory(db), pub, logger.NewNopLogger()), pub, db
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	svc, pub, _ := newChatService(t)
	ctx := asUser(uuid.New())

	res, err := svc.CreateConversation(ctx, &dto.CreateConversationRequest{Title: "  "})

	require.NoError(t, err)
	assert.Equal(t, "New chat", res.Title)
	assert.NotEqual(t, uuid.Nil, res.Id)
	assert.Empty(t, res.Turns)
	assert.Equal(t, []string{events.TypeConversationCreated}, pub.types())
}

func TestAppendMessageStoresTurnsInOrder(t *testing.T) {
	svc, pub, _ := newChatService(t)
	ctx := asUser(uuid.New())
	conv, err := svc.CreateConversation(ctx, &dto.CreateConversationRequest{Title: "Budget"})
	require.NoError(t, err)

	asked := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, entity.NewTurn(entity.RoleUser, "Quel est le budget ?", asked)))
	answer := entity.NewTurn(entity.RoleAssistant, "Le budget est de 2M€.", asked.Add(time.Second))
	answer.Metadata = map[string]interface{}{"strategy": "hybrid", "project": "Projet Alpha"}
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, answer))

	got, err := svc.GetConversation(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "user", got.Turns[0].Role)
	assert.Equal(t, "Quel est le budget ?", got.Turns[0].Content)
	assert.True(t, asked.Equal(got.Turns[0].CreatedAt))
	assert.Equal(t, "assistant", got.Turns[1].Role)
	assert.Equal(t, "hybrid", got.Turns[1].Metadata["strategy"])
	require.NotNil(t, got.UpdatedAt)
	assert.False(t, got.UpdatedAt.Before(*conv.UpdatedAt))

	assert.Equal(t, []string{
		events.TypeConversationCreated,
		events.TypeMessageAppended,
		events.TypeMessageAppended,
	}, pub.types())
}

func TestGetConversationOrdersTurnsByCreation(t *testing.T) {
	svc, _, _ := newChatService(t)
	ctx := asUser(uuid.New())
	conv, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)
	other, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	base := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, entity.NewTurn(entity.RoleAssistant, "later", base.Add(time.Minute))))
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, entity.NewTurn(entity.RoleUser, "earlier", base)))
	require.NoError(t, svc.AppendMessage(ctx, other.Id, entity.NewTurn(entity.RoleUser, "elsewhere", base)))

	got, err := svc.GetConversation(ctx, conv.Id)

	require.NoError(t, err)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "earlier", got.Turns[0].Content)
	assert.Equal(t, "later", got.Turns[1].Content)
}

func TestAppendMessageErrors(t *testing.T) {
	svc, pub, _ := newChatService(t)
	owner := uuid.New()
	conv, err := svc.CreateConversation(asUser(owner), nil)
	require.NoError(t, err)
	now := time.Now()

	cases := []struct {
		name string
		ctx  context.Context
		id   uuid.UUID
		turn entity.Turn
		want *apperror.Error
	}{
		{"anonymous", context.Background(), conv.Id, entity.NewTurn(entity.RoleUser, "hi", now), apperror.ErrUnauthenticated},
		{"unknown conversation", asUser(owner), uuid.New(), entity.NewTurn(entity.RoleUser, "hi", now), apperror.ErrNotFound},
		{"someone else's conversation", asUser(uuid.New()), conv.Id, entity.NewTurn(entity.RoleUser, "hi", now), apperror.ErrNotFound},
		{"missing role", asUser(owner), conv.Id, entity.Turn{Content: "hi"}, apperror.ErrValidation},
		{"invalid role", asUser(owner), conv.Id, entity.NewTurn("system", "hi", now), apperror.ErrValidation},
		{"empty content", asUser(owner), conv.Id, entity.NewTurn(entity.RoleUser, "  ", now), apperror.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.AppendMessage(tc.ctx, tc.id, tc.turn)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	got, err := svc.GetConversation(asUser(owner), conv.Id)
	require.NoError(t, err)
	assert.Empty(t, got.Turns)
	assert.Equal(t, []string{events.TypeConversationCreated}, pub.types())
}

func TestAppendMessageIsNotIdempotent(t *testing.T) {
	svc, _, _ := newChatService(t)
	ctx := asUser(uuid.New())
	conv, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	turn := entity.NewTurn(entity.RoleUser, "twice", time.Now())
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, turn))
	require.NoError(t, svc.AppendMessage(ctx, conv.Id, turn))

	got, err := svc.GetConversation(ctx, conv.Id)
	require.NoError(t, err)
	assert.Len(t, got.Turns, 2)
}

func TestListConversationsIsScopedAndOrdered(t *testing.T) {
	svc, _, db := newChatService(t)
	owner := uuid.New()
	ctx := asUser(owner)

	older, err := svc.CreateConversation(ctx, &dto.CreateConversationRequest{Title: "older"})
	require.NoError(t, err)
	newer, err := svc.CreateConversation(ctx, &dto.CreateConversationRequest{Title: "newer"})
	require.NoError(t, err)
	_, err = svc.CreateConversation(asUser(uuid.New()), &dto.CreateConversationRequest{Title: "foreign"})
	require.NoError(t, err)

	// Pin timestamps so ordering does not depend on clock resolution.
	base := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&model.ChatSession{}).Where("id = ?", older.Id).UpdateColumn("updated_at", base).Error)
	require.NoError(t, db.Model(&model.ChatSession{}).Where("id = ?", newer.Id).UpdateColumn("updated_at", base.Add(time.Hour)).Error)

	list, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.Id, list[0].Id)
	assert.Equal(t, older.Id, list[1].Id)

	// Appending moves the older conversation to the top.
	require.NoError(t, svc.AppendMessage(ctx, older.Id, entity.NewTurn(entity.RoleUser, "bump", time.Now())))
	list, err = svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, older.Id, list[0].Id)
	assert.Len(t, list[0].Turns, 1)
}

func TestAppendTurnFromRequest(t *testing.T) {
	svc, _, _ := newChatService(t)
	ctx := asUser(uuid.New())
	conv, err := svc.CreateConversation(ctx, nil)
	require.NoError(t, err)

	res, err := svc.AppendTurn(ctx, conv.Id, &dto.AppendMessageRequest{Role: "user", Content: "hello"})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.Id)
	assert.Equal(t, "hello", res.Content)
	assert.False(t, res.CreatedAt.IsZero())
}
