package controller

import (
	"asksource-be/internal/pkg/serverutils"
	"asksource-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProjectController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
}

type projectController struct {
	service service.IProjectService
	auth    fiber.Handler
}

func NewProjectController(service service.IProjectService, auth fiber.Handler) IProjectController {
	return &projectController{service: service, auth: auth}
}

func (c *projectController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/project/v1")
	h.Use(c.auth)
	h.Get("", c.GetAll)
}

func (c *projectController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.ListProjects(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all projects", res))
}
