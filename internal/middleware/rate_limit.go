package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-session rate limiter middleware instance.
// Requests without an authenticated session fall back to the client IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			sessionID, _ := c.Locals("session_id").(string)
			if sessionID == "" {
				sessionID = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, sessionID)
		},
	})
}
