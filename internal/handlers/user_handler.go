package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	if _, err := h.userService.SignUp(c.UserContext(), &req); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "User created successfully."})
}

// Deactivate is the sign-out operation: the account is kept but marked inactive.
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return unauthenticated(c)
	}

	var req dto.SignOutRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	if err := h.userService.Deactivate(c.UserContext(), callerID, &req); err != nil {
		return fail(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "User deactivated successfully."})
}

// Retrieve returns the user named by :id, or the caller when no id is given.
// Only the owner sees the email address. Anonymous requests without an id
// have nothing to resolve and get 404.
func (h *UserHandler) Retrieve(c *fiber.Ctx) error {
	callerID, authenticated := middleware.CallerID(c)

	targetID := callerID
	if raw := c.Params("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fail(c, services.ErrUserNotFound)
		}
		targetID = id
	} else if !authenticated {
		return fail(c, services.ErrUserNotFound)
	}

	if authenticated && targetID == callerID {
		user, err := h.userService.Current(c.UserContext(), callerID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(dto.NewUserResponse(user))
	}

	user, err := h.userService.Retrieve(c.UserContext(), targetID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.NewPublicUserResponse(user))
}

func (h *UserHandler) Edit(c *fiber.Ctx) error {
	callerID, ok := middleware.CallerID(c)
	if !ok {
		return unauthenticated(c)
	}

	var req dto.EditUserRequest
	if err := parseBody(c, &req); err != nil {
		return invalidBody(c)
	}

	if _, err := h.userService.Edit(c.UserContext(), callerID, &req); err != nil {
		return fail(c, err)
	}

	return c.JSON(dto.MessageResponse{Message: "User updated successfully."})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Authentication credentials were not provided.",
	})
}
