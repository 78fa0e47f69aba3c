package middleware

import (
	"github.com/codeschool/accounts/internal/logging"
	"github.com/gofiber/fiber/v2"
)

// RequestContext carries the request id set by the requestid middleware into
// the user context, where services and the logger pick it up.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}
