package controller

import (
	"asksource-be/internal/dto"
	"asksource-be/internal/pkg/serverutils"
	"asksource-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAskSourceController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
}

type askSourceController struct {
	service service.IAskSourceService
	auth    fiber.Handler
}

func NewAskSourceController(service service.IAskSourceService, auth fiber.Handler) IAskSourceController {
	return &askSourceController{service: service, auth: auth}
}

func (c *askSourceController) RegisterRoutes(r fiber.Router) {
	r.Post("/asksource", c.auth, c.Ask)
}

func (c *askSourceController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskSourceRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ask source", res))
}
