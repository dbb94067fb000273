package handler

import (
	"asksource-be/internal/pkg/logger"
	"asksource-be/internal/pkg/serverutils"
	internalWS "asksource-be/internal/websocket"
	"asksource-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// LiveUpdateHandler upgrades authenticated requests to a push-only websocket
// carrying the caller's chat events.
type LiveUpdateHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewLiveUpdateHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *LiveUpdateHandler {
	return &LiveUpdateHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// Authenticate resolves the token from the "token" query (browsers cannot set headers on
// websocket handshakes) or from the Authorization header.
func (h *LiveUpdateHandler) Authenticate(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c.Get("Authorization"))
	}
	if tokenStr == "" {
		return apperror.New(apperror.KindUnauthenticated, "Missing token (Query 'token' or Header 'Authorization')")
	}

	userID, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("LiveUpdateHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals("user_id", userID.String())
	return c.Next()
}

func (h *LiveUpdateHandler) serve(c *websocket.Conn) {
	userID, err := uuid.Parse(c.Locals("user_id").(string))
	if err != nil {
		c.Close()
		return
	}

	h.logger.Info("LiveUpdateHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
	internalWS.NewClient(h.hub, c, userID).Serve()
	h.logger.Info("LiveUpdateHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
}

func (h *LiveUpdateHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.Authenticate, websocket.New(h.serve))
}
