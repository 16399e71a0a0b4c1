package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type GoogleHandler struct {
	googleService *services.GoogleService
}

func NewGoogleHandler(googleService *services.GoogleService) *GoogleHandler {
	return &GoogleHandler{googleService: googleService}
}

// LoginConfig hands the frontend what it needs to start the OAuth implicit flow.
func (h *GoogleHandler) LoginConfig(c *fiber.Ctx) error {
	return c.JSON(h.googleService.LoginConfig())
}

func (h *GoogleHandler) Exchange(c *fiber.Ctx) error {
	var req dto.GoogleTokenRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	pair, err := h.googleService.Exchange(c.UserContext(), req.AccessToken)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(pair)
}
