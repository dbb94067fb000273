package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"asksource-be/internal/entity"
	"asksource-be/internal/pkg/logger"
	"asksource-be/pkg/answering"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/dispatch"
	"asksource-be/pkg/chat/persistence"
	"asksource-be/pkg/chat/store"
	"asksource-be/pkg/identity"

	"github.com/google/uuid"
)

const logModule = "AnswerPipeline"

type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Outcome describes a submission that got past its preconditions.
type Outcome struct {
	State          State
	ConversationID uuid.UUID
	UserTurn       entity.Turn
	AssistantTurn  *entity.Turn
	// Detached is set when the conversation left the store, or was refreshed so the
	// optimistic turn is no longer last, while the answer was in flight. The turns were
	// still persisted.
	Detached bool
	// Warnings holds PersistenceFailure errors for turns that could not be saved.
	Warnings []error
}

type Pipeline struct {
	store    *store.Store
	answerer answering.Answerer
	adapter  persistence.Adapter
	logger   logger.ILogger
	now      func() time.Time

	mu   sync.Mutex
	busy map[uuid.UUID]struct{}
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(st *store.Store, answerer answering.Answerer, adapter persistence.Adapter, log logger.ILogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:    st,
		answerer: answerer,
		adapter:  adapter,
		logger:   log,
		now:      time.Now,
		busy:     make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports whether a submission is in flight for the conversation.
func (p *Pipeline) State(conversationID uuid.UUID) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.busy[conversationID]; ok {
		return StatePending
	}
	return StateIdle
}

func (p *Pipeline) acquire(conversationID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.busy[conversationID]; ok {
		return false
	}
	p.busy[conversationID] = struct{}{}
	return true
}

func (p *Pipeline) release(conversationID uuid.UUID) {
	p.mu.Lock()
	delete(p.busy, conversationID)
	p.mu.Unlock()
}

// Submit sends the store's draft for the active conversation and blocks until the answer
// is committed or rolled back.
//
// Precondition and dispatch errors return a nil Outcome and leave the store untouched.
// A rollback returns both an Outcome in StateRolledBack and the error that caused it.
func (p *Pipeline) Submit(ctx context.Context) (*Outcome, error) {
	if identity.FromContext(ctx) == nil {
		return nil, apperror.ErrUnauthenticated
	}

	snap := p.store.Snapshot()
	conv, ok := snap.Active()
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "no active conversation")
	}

	if !p.acquire(conv.Id) {
		return nil, apperror.ErrConversationBusy
	}
	defer p.release(conv.Id)

	if strings.TrimSpace(snap.Project) == "" {
		return nil, apperror.ErrNoProjectSelected
	}
	draft := snap.Draft
	text := strings.TrimSpace(draft)
	if text == "" {
		return nil, apperror.ErrEmptyPrompt
	}

	req, err := dispatch.BuildRequest(snap.Search.Strategy, snap.Project, text, snap.Search.Overrides)
	if err != nil {
		return nil, err
	}
	req.ConversationID = conv.Id

	// Optimistic update.
	userTurn := entity.NewTurn(entity.RoleUser, text, p.now())
	userTurn.Id = uuid.New()
	userTurn.ConversationId = conv.Id
	p.store.SetDraft("")
	if err := p.store.AppendTurn(conv.Id, userTurn); err != nil {
		p.store.SetDraft(draft)
		return nil, err
	}

	outcome := &Outcome{
		State:          StatePending,
		ConversationID: conv.Id,
		UserTurn:       userTurn,
	}

	answer, err := p.answerer.Answer(ctx, req)
	if err != nil {
		p.rollback(conv.Id, userTurn.Id, draft, err)
		outcome.State = StateRolledBack
		return outcome, err
	}

	assistantTurn := entity.NewTurn(entity.RoleAssistant, answer, p.now())
	assistantTurn.Id = uuid.New()
	assistantTurn.ConversationId = conv.Id
	assistantTurn.Metadata = map[string]interface{}{
		"strategy": string(req.Strategy),
		"project":  snap.Project,
	}
	outcome.AssistantTurn = &assistantTurn

	if err := p.store.AppendTurnAfter(conv.Id, userTurn.Id, assistantTurn); err != nil {
		outcome.Detached = true
		p.logger.Info(logModule, "answer not shown, conversation changed while it was in flight", map[string]interface{}{
			"conversation_id": conv.Id.String(),
			"reason":          apperror.Message(err),
		})
	}

	// The durable write outlives a cancelled caller.
	persistCtx := context.WithoutCancel(ctx)
	for _, turn := range []entity.Turn{userTurn, assistantTurn} {
		if err := p.adapter.AppendMessage(persistCtx, conv.Id, turn); err != nil {
			warning := apperror.Wrap(apperror.KindPersistenceFailure, err, "failed to save "+string(turn.Role)+" message")
			outcome.Warnings = append(outcome.Warnings, warning)
			p.logger.Warn(logModule, "turn not persisted", map[string]interface{}{
				"conversation_id": conv.Id.String(),
				"role":            string(turn.Role),
				"error":           err.Error(),
			})
		}
	}

	outcome.State = StateCommitted
	return outcome, nil
}

func (p *Pipeline) rollback(conversationID, optimisticID uuid.UUID, draft string, cause error) {
	removed, err := p.store.RemoveTurnIfLast(conversationID, optimisticID)
	switch {
	case err != nil && apperror.KindOf(err) != apperror.KindNotFound:
		p.logger.Error(logModule, "rollback could not remove optimistic turn", map[string]interface{}{
			"conversation_id": conversationID.String(),
			"error":           err.Error(),
		})
	case err == nil && !removed:
		p.logger.Info(logModule, "optimistic turn already replaced by a refresh", map[string]interface{}{
			"conversation_id": conversationID.String(),
		})
	}
	p.store.SetDraft(draft)

	p.logger.Warn(logModule, "answer rolled back", map[string]interface{}{
		"conversation_id": conversationID.String(),
		"kind":            string(apperror.KindOf(cause)),
		"error":           cause.Error(),
	})
}
