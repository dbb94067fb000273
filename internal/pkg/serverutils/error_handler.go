package serverutils

import (
	"errors"
	"log"

	"asksource-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error onto the HTTP status the API answers with.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}

	switch appErr.Kind {
	case apperror.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperror.KindNoProjectSelected, apperror.KindEmptyPrompt, apperror.KindInvalidStrategy,
		apperror.KindInvalidParameter, apperror.KindMissingProject, apperror.KindValidationError:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindConversationBusy:
		return fiber.StatusConflict
	case apperror.KindBackendRejected:
		if appErr.Status >= 400 {
			return appErr.Status
		}
		return fiber.StatusBadGateway
	case apperror.KindNetworkFailure:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware renders any error returned down the chain as an ErrorResponse.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := StatusFor(err)
		message := apperror.Message(err)
		if status == fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
			message = "internal server error"
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
