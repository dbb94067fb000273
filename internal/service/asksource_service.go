package service

import (
	"context"
	"strings"

	"asksource-be/internal/dto"
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/repository/contract"
	"asksource-be/internal/tracer"
	"asksource-be/pkg/answering"
	"asksource-be/pkg/apperror"
	"asksource-be/pkg/chat/dispatch"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IAskSourceService proxies a prompt to the answering service. It does not persist
// anything; callers store the resulting turns through the chat endpoints.
type IAskSourceService interface {
	Ask(ctx context.Context, req *dto.AskSourceRequest) (*dto.AskSourceResponse, error)
}

type askSourceService struct {
	answerer answering.Answerer
	locks    contract.ConversationLockRepository
	logger   logger.ILogger
}

func NewAskSourceService(answerer answering.Answerer, locks contract.ConversationLockRepository, log logger.ILogger) IAskSourceService {
	return &askSourceService{
		answerer: answerer,
		locks:    locks,
		logger:   log,
	}
}

func (s *askSourceService) Ask(ctx context.Context, req *dto.AskSourceRequest) (*dto.AskSourceResponse, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, apperror.ErrEmptyPrompt
	}

	strategy := dispatch.StrategyHybrid
	if strings.TrimSpace(req.SearchMode) != "" {
		parsed, err := dispatch.ParseStrategy(req.SearchMode)
		if err != nil {
			return nil, err
		}
		strategy = parsed
	}

	outbound, err := dispatch.BuildRequest(strategy, req.ProjectId, prompt, dispatch.Overrides{
		Limit:       req.Limit,
		DenseLimit:  req.DenseLimit,
		SparseLimit: req.SparseLimit,
	})
	if err != nil {
		return nil, err
	}

	if req.ConversationId != "" {
		release, err := s.lock(ctx, req.ConversationId)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	ctx, span := tracer.Tracer("asksource").Start(ctx, "answering.Answer")
	span.SetAttributes(
		attribute.String("asksource.strategy", string(strategy)),
		attribute.String("asksource.endpoint", outbound.Endpoint),
	)
	defer span.End()

	answer, err := s.answerer.Answer(ctx, outbound)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.Message(err))
		s.logger.Warn("AskSourceService", "Answering service rejected prompt", map[string]interface{}{
			"strategy":   string(strategy),
			"project_id": req.ProjectId,
			"kind":       string(apperror.KindOf(err)),
			"error":      err.Error(),
		})
		return nil, err
	}

	return &dto.AskSourceResponse{
		Role:    "assistant",
		Content: answer,
	}, nil
}

// lock marks the conversation busy. A lock backend failure is logged and the request
// proceeds unlocked.
func (s *askSourceService) lock(ctx context.Context, conversationID string) (func(), error) {
	noop := func() {}
	if s.locks == nil {
		return noop, nil
	}

	ok, err := s.locks.Acquire(ctx, conversationID)
	if err != nil {
		s.logger.Error("AskSourceService", "Conversation lock unavailable", map[string]interface{}{
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return noop, nil
	}
	if !ok {
		return nil, apperror.ErrConversationBusy
	}

	return func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), conversationID); err != nil {
			s.logger.Warn("AskSourceService", "Failed to release conversation lock", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		}
	}, nil
}
