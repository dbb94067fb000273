package service

import (
	"context"
	"strings"
	"time"

	"asksource-be/internal/dto"
	"asksource-be/internal/entity"
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/repository/specification"
	"asksource-be/internal/repository/unitofwork"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/persistence"
	"asksource-be/pkg/events"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const defaultConversationTitle = "New chat"

// IChatService owns the durable copy of conversations. Every method acts on behalf of
// the identity carried by ctx.
type IChatService interface {
	persistence.Adapter

	CreateConversation(ctx context.Context, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error)
	ListConversations(ctx context.Context) ([]*dto.ConversationResponse, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*dto.ConversationResponse, error)
	AppendTurn(ctx context.Context, conversationID uuid.UUID, req *dto.AppendMessageRequest) (*dto.TurnResponse, error)
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	logger     logger.ILogger
	now        func() time.Time
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, publisher IPublisherService, log logger.ILogger) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     log,
		now:        time.Now,
	}
}

func requireIdentity(ctx context.Context) (*identity.Identity, error) {
	id := identity.FromContext(ctx)
	if id == nil {
		return nil, apperror.ErrUnauthenticated
	}
	return id, nil
}

func persistenceFailure(err error, msg string) error {
	return apperror.Wrap(apperror.KindPersistenceFailure, errors.WithStack(err), msg)
}

func (c *chatService) CreateConversation(ctx context.Context, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	title := defaultConversationTitle
	if req != nil && strings.TrimSpace(req.Title) != "" {
		title = strings.TrimSpace(req.Title)
	}

	now := c.now()
	conversation := entity.Conversation{
		Id:        uuid.New(),
		UserId:    id.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, &conversation); err != nil {
		return nil, persistenceFailure(err, "failed to create conversation")
	}

	c.publish(ctx, events.ConversationCreated(id.UserID, conversation.Id, conversation.Title, now))

	return toConversationResponse(&conversation), nil
}

func (c *chatService) ListConversations(ctx context.Context) ([]*dto.ConversationResponse, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	conversations, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: id.UserID},
		specification.WithMessages{},
		specification.RecentlyUpdated{},
	)
	if err != nil {
		return nil, persistenceFailure(err, "failed to list conversations")
	}

	res := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		res = append(res, toConversationResponse(conversation))
	}
	return res, nil
}

func (c *chatService) GetConversation(ctx context.Context, conversationID uuid.UUID) (*dto.ConversationResponse, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: conversationID},
		specification.UserOwnedBy{UserID: id.UserID},
	)
	if err != nil {
		return nil, persistenceFailure(err, "failed to load conversation")
	}
	if conversation == nil {
		return nil, apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
	}

	turns, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: conversation.Id},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, persistenceFailure(err, "failed to load messages")
	}
	conversation.Turns = make([]entity.Turn, 0, len(turns))
	for _, turn := range turns {
		conversation.Turns = append(conversation.Turns, *turn)
	}
	return toConversationResponse(conversation), nil
}

// AppendMessage stores turn at the end of the conversation and bumps its updated_at
// in one transaction.
func (c *chatService) AppendMessage(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) error {
	_, err := c.appendTurn(ctx, conversationID, turn)
	return err
}

func (c *chatService) AppendTurn(ctx context.Context, conversationID uuid.UUID, req *dto.AppendMessageRequest) (*dto.TurnResponse, error) {
	turn := entity.Turn{
		Role:     entity.Role(req.Role),
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if req.CreatedAt != nil {
		turn.CreatedAt = *req.CreatedAt
	}

	saved, err := c.appendTurn(ctx, conversationID, turn)
	if err != nil {
		return nil, err
	}
	res := toTurnResponse(saved)
	return &res, nil
}

func (c *chatService) appendTurn(ctx context.Context, conversationID uuid.UUID, turn entity.Turn) (*entity.Turn, error) {
	id, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if err := turn.Validate(); err != nil {
		return nil, err
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, persistenceFailure(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	conversation, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: conversationID},
		specification.UserOwnedBy{UserID: id.UserID},
	)
	if err != nil {
		return nil, persistenceFailure(err, "failed to load conversation")
	}
	if conversation == nil {
		return nil, apperror.Newf(apperror.KindNotFound, "conversation %s not found", conversationID)
	}

	turn.Id = uuid.New()
	turn.ConversationId = conversation.Id
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = c.now()
	}

	if err := uow.ChatMessageRepository().Create(ctx, &turn); err != nil {
		return nil, persistenceFailure(err, "failed to save message")
	}
	if err := uow.ChatSessionRepository().Touch(ctx, conversation.Id); err != nil {
		return nil, persistenceFailure(err, "failed to update conversation")
	}
	if err := uow.Commit(); err != nil {
		return nil, persistenceFailure(err, "failed to commit message")
	}

	c.publish(ctx, events.MessageAppended(id.UserID, conversation.Id, turn.Id, string(turn.Role), turn.Content, turn.CreatedAt))

	return &turn, nil
}

// publish is best effort; the row is already committed.
func (c *chatService) publish(ctx context.Context, event events.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("ChatService", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func toTurnResponse(t *entity.Turn) dto.TurnResponse {
	return dto.TurnResponse{
		Id:        t.Id,
		Role:      string(t.Role),
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
		Metadata:  t.Metadata,
	}
}

func toConversationResponse(c *entity.Conversation) *dto.ConversationResponse {
	turns := make([]dto.TurnResponse, 0, len(c.Turns))
	for i := range c.Turns {
		turns = append(turns, toTurnResponse(&c.Turns[i]))
	}
	return &dto.ConversationResponse{
		Id:        c.Id,
		Title:     c.Title,
		Turns:     turns,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
