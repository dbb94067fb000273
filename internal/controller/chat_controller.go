package controller

import (
	"asksource-be/internal/dto"
	"asksource-be/internal/pkg/serverutils"
	"asksource-be/internal/service"
	"asksource-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	AppendMessage(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	auth    fiber.Handler
}

func NewChatController(service service.IChatService, auth fiber.Handler) IChatController {
	return &chatController{service: service, auth: auth}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(c.auth)
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Post(":id/messages", c.AppendMessage)
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return apperror.Wrap(apperror.KindValidationError, err, "invalid request body")
	}
	return serverutils.ValidateRequest(out)
}

func conversationID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.KindValidationError, "invalid conversation id %q", ctx.Params("id"))
	}
	return id, nil
}

func (c *chatController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.ListConversations(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all conversations", res))
}

func (c *chatController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateConversationRequest
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
	}

	res, err := c.service.CreateConversation(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create conversation", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetConversation(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show conversation", res))
}

func (c *chatController) AppendMessage(ctx *fiber.Ctx) error {
	id, err := conversationID(ctx)
	if err != nil {
		return err
	}

	var req dto.AppendMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.AppendTurn(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success append message", res))
}
