package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"

	"github.com/spec-kit/student-auth/internal/api/dto"
	"github.com/spec-kit/student-auth/internal/auth"
	"github.com/spec-kit/student-auth/internal/service"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// AuthHandler exposes registration, login and token lifecycle endpoints.
type AuthHandler struct {
	auth        *service.AuthService
	clock       clock.Clock
	serviceName string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, clk clock.Clock, serviceName string) *AuthHandler {
	if clk == nil {
		clk = clock.WallClock
	}
	return &AuthHandler{auth: authService, clock: clk, serviceName: serviceName}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}

	resp, err := h.auth.Register(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}

	resp, err := h.auth.Login(c.UserContext(), service.LoginInput{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload(err)
	}

	resp, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Logout handles POST /api/auth/logout. The body is optional.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if len(c.Body()) > 0 {
		// a malformed body still logs out
		_ = c.BodyParser(&req)
	}
	return c.JSON(h.auth.Logout(c.UserContext(), req.RefreshToken))
}

// Profile handles GET /api/auth/profile.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	info, err := h.auth.Profile(c.UserContext(), caller.Username)
	if err != nil {
		return err
	}
	return c.JSON(info)
}

// Validate handles GET /api/auth/validate.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	token, err := auth.TokenFromRequest(c)
	if err != nil {
		return err
	}

	resp, err := h.auth.Validate(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Status handles GET /api/auth/status.
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	return c.SendString("Auth Service is running")
}

// Health handles GET /api/auth/health.
func (h *AuthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.StatusResponse{
		Status:    "UP",
		Module:    "Auth Module",
		Service:   h.serviceName,
		Message:   "Authentication service is healthy",
		Timestamp: h.clock.Now().UnixMilli(),
	})
}

func invalidPayload(err error) error {
	return apperrors.NewValidationError("invalid payload", map[string]any{"body": err.Error()})
}
