package service

import (
	"context"

	"asksource-be/internal/pkg/logger"
	"asksource-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventExporter ships events off the process (NATS JetStream in production).
type EventExporter interface {
	Publish(ctx context.Context, event events.Event) error
}

// LiveUpdateSender pushes events to the owner's open websocket connections.
type LiveUpdateSender interface {
	SendEvent(ctx context.Context, userID uuid.UUID, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	exporter   EventExporter
	live       LiveUpdateSender
	logger     logger.ILogger
}

// NewConsumerService drains the chat topic. exporter and live may be nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	exporter EventExporter,
	live LiveUpdateSender,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		exporter:   exporter,
		live:       live,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Debug("ConsumerService", "Processing event", map[string]interface{}{
		"type":    event.EventType(),
		"payload": event.Payload(),
	})

	// Export failures are logged, not retried.
	if cs.exporter != nil {
		if err := cs.exporter.Publish(ctx, event); err != nil {
			cs.logger.Warn("ConsumerService", "Failed to export event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}

	if cs.live != nil {
		if userID := events.UserID(event); userID != uuid.Nil {
			if err := cs.live.SendEvent(ctx, userID, event); err != nil {
				cs.logger.Warn("ConsumerService", "Failed to push live update", map[string]interface{}{
					"type":  event.EventType(),
					"error": err.Error(),
				})
			}
		}
	}

	msg.Ack()
}
