package handlers

import (
	"errors"

	"streampay/internal/services/auth"
	"streampay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a platform account. Wallets are created separately,
// one per currency.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "email and password are required")
	}
	if len(input.Password) < 8 {
		return utils.BadRequest(c, "password must be at least 8 characters")
	}

	user, err := h.authService.Register(c.Context(), input.Email, input.Password, input.DisplayName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return utils.Conflict(c, "email already registered")
		}
		return utils.InternalError(c, "registration failed")
	}

	return utils.Created(c, fiber.Map{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	})
}

// Login authenticates a user and returns JWT tokens.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "email and password are required")
	}

	user, accessToken, refreshToken, err := h.authService.Login(c.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return utils.Unauthorized(c, "invalid email or password")
		}
		return utils.InternalError(c, "authentication failed")
	}

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
