// middleware/auth.go
package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PatGaj/SnakeCoder-sub000/utils"
)

// UserContextMiddleware extracts the learner identity forwarded by the
// Gateway. Session management lives upstream; this service only trusts the
// X-User-ID header that the gateway injects after authentication.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return utils.Respond(c, utils.ErrUnauthorized())
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID reads the authenticated learner id set by UserContextMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
