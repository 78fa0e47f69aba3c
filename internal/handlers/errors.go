package handlers

import (
	"errors"
	"log/slog"

	"github.com/codeschool/accounts/internal/dto"
	"github.com/codeschool/accounts/internal/services"
	"github.com/codeschool/accounts/internal/validator"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without details.
func respondError(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: ve.Error(), Details: ve,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrSchoolIDTaken),
		errors.Is(err, services.ErrAccountExists):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProfileNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrNotImplemented):
		status = fiber.StatusNotImplemented
	}

	if status == fiber.StatusInternalServerError {
		slog.ErrorContext(c.UserContext(), "request failed",
			"action", c.Method()+" "+c.Route().Path,
			"error", err.Error(),
		)
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: "Internal server error"})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

// parseBody decodes and validates the request body into req.
func parseBody(c *fiber.Ctx, v *validator.Validator, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, badBody(c)
	}
	if err := v.Struct(req); err != nil {
		return false, respondError(c, err)
	}
	return true, nil
}
