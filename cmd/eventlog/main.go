package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"asksource-be/internal/config"
	"asksource-be/internal/pkg/logger"
	"asksource-be/pkg/events"
	pktNats "asksource-be/pkg/nats"
)

// eventlog tails the chat events exported to NATS JetStream and writes them to the
// application log.
func main() {
	cfg := config.Load()
	if cfg.App.NatsURL == "" {
		log.Fatal("NATS_URL is not set")
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, pktNats.SubjectPrefix+">", "asksource-eventlog", func(ctx context.Context, event events.Event) error {
		sysLogger.Info("EventLog", event.EventType(), map[string]interface{}{
			"user_id": events.UserID(event).String(),
			"payload": event.Payload(),
		})
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	log.Println("✅ Listening for chat events")
	<-ctx.Done()
}
