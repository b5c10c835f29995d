package transport

import (
	"strings"

	"github.com/cauafreitas/portfolio-api/internal/observability"
	"github.com/gofiber/fiber/v2"
)

// RequestContext copies the request id assigned by the requestid middleware
// into the user context so downstream logs carry it.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(id) != "" {
			c.SetUserContext(observability.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}
