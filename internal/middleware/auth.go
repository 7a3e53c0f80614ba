package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

const identityContextKey = "currentIdentity"

// AuthMiddleware validates bearer tokens and loads the caller's identity into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Token is missing")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header")
		}

		identity, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(identityContextKey, identity)
		return c.Next()
	}
}

// RequireRole lets the request through only when the authenticated role is one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := GetIdentity(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Token is missing")
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Unauthorized access")
	}
}

// GetIdentity extracts the authenticated identity from context.
func GetIdentity(c *fiber.Ctx) (utils.Identity, bool) {
	identity, ok := c.Locals(identityContextKey).(utils.Identity)
	return identity, ok
}
