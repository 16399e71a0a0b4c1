package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

// parseBody decodes the request body. An empty body leaves out untouched.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

// fail writes the response for a service error. Unknown errors are returned
// to the app error handler.
func fail(c *fiber.Ctx, err error) error {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error:   true,
			Message: "Validation failed",
			Fields:  verrs.Fields,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrLoginTypeMismatch):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrMissingAccessToken),
		errors.Is(err, services.ErrGoogleTokenRejected),
		errors.Is(err, services.ErrGoogleEmailMissing),
		errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInactiveUser),
		errors.Is(err, services.ErrInvalidToken):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrUpstreamUnavailable):
		status = fiber.StatusBadGateway
	default:
		return err
	}

	message := err.Error()
	if status == fiber.StatusBadGateway {
		message = services.ErrUpstreamUnavailable.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}
