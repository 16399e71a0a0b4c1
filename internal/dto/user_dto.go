package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
)

type SignUpRequest struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
	Password2 string `json:"password2" validate:"required"`
}

type SignOutRequest struct {
	Password string `json:"password"`
}

// EditUserRequest is a partial update: nil fields are left untouched.
type EditUserRequest struct {
	CurrentPassword string  `json:"current_password"`
	Username        *string `json:"username" validate:"omitnil,min=1,max=150,username"`
	Email           *string `json:"email" validate:"omitnil,min=1,email,max=254"`
	Password        *string `json:"password" validate:"omitnil,min=6,max=128"`
	Password2       *string `json:"password2"`
}

// GoogleSignUp is the record the Google bridge provisions on first login.
type GoogleSignUp struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

type UserResponse struct {
	ID        uuid.UUID        `json:"id"`
	Username  string           `json:"username"`
	Email     string           `json:"email,omitempty"`
	IsActive  bool             `json:"is_active"`
	LoginType models.LoginType `json:"logintype"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsActive:  user.IsActive,
		LoginType: user.LoginType,
		CreatedAt: user.CreatedAt,
	}
}

// NewPublicUserResponse is what callers other than the owner get back.
func NewPublicUserResponse(user *models.User) UserResponse {
	resp := NewUserResponse(user)
	resp.Email = ""
	return resp
}
