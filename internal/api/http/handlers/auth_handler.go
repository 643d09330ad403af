package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/api/dto"
	"github.com/spec-kit/mission-service/internal/service"
	apperrors "github.com/spec-kit/mission-service/pkg/util"
)

// AuthHandler exposes login, logout and self-service endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password, clientMeta(c))
	if err != nil {
		return err
	}
	return ok(c, "login successful", dto.LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), identity, clientMeta(c)); err != nil {
		return err
	}
	return ok(c, "logout successful", nil)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return ok(c, "", dto.NewUserResponse(user))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("currentPassword and newPassword are required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, "password changed", nil)
}
