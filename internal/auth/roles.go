package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/chamado-hq/helpdesk-service/internal/domain"
	apperrors "github.com/chamado-hq/helpdesk-service/pkg/util/errorutil"
)

// RequireAuthenticated ensures a caller is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller holds the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}
