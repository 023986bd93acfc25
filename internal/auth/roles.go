package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

// RequireRole ensures the principal carries roleRef.
func RequireRole(roleRef string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Actor.HasRole(roleRef) {
			return apperrors.NewForbidden("support role required")
		}
		return c.Next()
	}
}
