package bootstrap

import (
	"context"

	"asksource-be/internal/config"
	"asksource-be/internal/controller"
	"asksource-be/internal/handler"
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/pkg/serverutils"
	"asksource-be/internal/repository/contract"
	"asksource-be/internal/repository/memory"
	redisRepo "asksource-be/internal/repository/redis"
	"asksource-be/internal/repository/unitofwork"
	"asksource-be/internal/service"
	"asksource-be/internal/websocket"
	"asksource-be/pkg/answering"
	pktNats "asksource-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	AskSourceController controller.IAskSourceController
	ProjectController   controller.IProjectController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Live updates
	LiveUpdateHandler *handler.LiveUpdateHandler
	WebSocketHub      *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the backend. Redis and NATS are optional: without Redis the
// conversation lock is in-process and the hub serves a single instance; without NATS
// events stay in-process.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auth := serverutils.JwtMiddleware(cfg.Auth.JWTSecret)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	rdb := connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var exporter service.EventExporter
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Container", "NATS unavailable, events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			exporter = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	var locks contract.ConversationLockRepository
	if rdb != nil {
		locks = redisRepo.NewConversationLockRepository(rdb, cfg.Answering.LockTTL)
	} else {
		locks = memory.NewConversationLockRepository(cfg.Answering.LockTTL)
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run(ctx)

	// 4. Services
	answerer := answering.NewClient(cfg.Answering.BaseURL, cfg.Answering.Timeout)
	publisherService := service.NewPublisherService(cfg.Events.ChatTopic, pubSub)

	chatService := service.NewChatService(uowFactory, publisherService, sysLogger)
	askSourceService := service.NewAskSourceService(answerer, locks, sysLogger)
	projectService := service.NewProjectService(cfg.Projects.Catalog)

	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Events.ChatTopic,
		exporter,
		wsHub,
		sysLogger,
	)

	// 5. Controllers
	c.ChatController = controller.NewChatController(chatService, auth)
	c.AskSourceController = controller.NewAskSourceController(askSourceService, auth)
	c.ProjectController = controller.NewProjectController(projectService, auth)
	c.LiveUpdateHandler = handler.NewLiveUpdateHandler(wsHub, cfg.Auth.JWTSecret, sysLogger)
	c.WebSocketHub = wsHub

	return c
}

// Close releases the infrastructure clients in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

// connectRedis returns nil when Redis is not configured or does not answer a ping.
func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Container", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Container", "Redis unavailable, falling back to in-process lock", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
