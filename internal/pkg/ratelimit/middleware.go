package ratelimit

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// KeyFunc derives the limiter key for a request. Returning "" skips limiting.
type KeyFunc func(c *fiber.Ctx) string

// Middleware rejects requests over the limit with 429 and a Retry-After
// header in whole seconds.
func (l *Limiter) Middleware(keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		if key == "" {
			return c.Next()
		}
		res := l.Allow(c.UserContext(), key)
		if res.Limit > 0 {
			c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests")
		}
		return c.Next()
	}
}
