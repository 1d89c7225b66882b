package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/student-auth/internal/domain"
	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

const (
	callerKey         = "auth_caller"
	accessTokenCookie = "accessToken"
)

// AuthMiddleware validates bearer tokens and stores the caller identity.
type AuthMiddleware struct {
	validator *Validator
	logger    *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(validator *Validator, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{validator: validator, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, err := TokenFromRequest(c)
	if err != nil {
		return err
	}

	caller, err := m.validator.Authenticate(token)
	if err != nil {
		m.logger.Debug("access token rejected", zap.String("path", c.Path()), zap.Error(err))
		return err
	}

	c.Locals(callerKey, caller)
	return c.Next()
}

// TokenFromRequest reads the access token from the Authorization header,
// falling back to the accessToken cookie.
func TokenFromRequest(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if cookie := c.Cookies(accessTokenCookie); cookie != "" {
			return cookie, nil
		}
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// CallerFromContext retrieves the authenticated identity.
func CallerFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	caller, ok := c.Locals(callerKey).(domain.Identity)
	return caller, ok
}
