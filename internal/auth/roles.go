package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/student-auth/pkg/util"
)

// RequirePermission rejects callers whose role has no scope for op.
// Record-level checks stay in the service.
func RequirePermission(op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if ScopeFor(caller, op) == ScopeNone {
			return apperrors.NewAccessDenied("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a caller was resolved by the middleware.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CallerFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
