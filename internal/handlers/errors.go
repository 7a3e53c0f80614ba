package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/bizengo/internal/middleware"
	"github.com/example/bizengo/internal/services"
	"github.com/example/bizengo/internal/utils"
)

var kindStatus = map[services.Kind]int{
	services.KindValidation:        fiber.StatusBadRequest,
	services.KindUnauthorized:      fiber.StatusUnauthorized,
	services.KindForbidden:         fiber.StatusForbidden,
	services.KindNotFound:          fiber.StatusNotFound,
	services.KindConflict:          fiber.StatusConflict,
	services.KindInsufficientStock: fiber.StatusBadRequest,
	services.KindInvalidSignature:  fiber.StatusBadRequest,
	services.KindExpired:           fiber.StatusBadRequest,
	services.KindInvalidCode:       fiber.StatusBadRequest,
	services.KindUpstream:          fiber.StatusBadGateway,
}

// fail converts a service error into a fiber error. Internal failures are
// returned unchanged so the error handler can log them and hide the detail.
func fail(err error) error {
	var se *services.Error
	if !errors.As(err, &se) {
		return err
	}
	if status, ok := kindStatus[se.Kind]; ok {
		return fiber.NewError(status, se.Message)
	}
	return err
}

// ErrorHandler renders every error as {"success": false, "message": ...}.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "An internal error occurred"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status, message = fe.Code, fe.Message
		}
		if status >= fiber.StatusInternalServerError && status != fiber.StatusBadGateway {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
			message = "An internal error occurred"
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}

func identity(c *fiber.Ctx) (utils.Identity, error) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return utils.Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Token is missing")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func list(c *fiber.Ctx, data any, pg utils.Pagination, total int64) error {
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       data,
		"pagination": pg.Meta(total),
	})
}
