package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ServiceAngles are the angles offered in the dashboard. Free-form angles are
// accepted by /api/generate as well.
var ServiceAngles = []string{
	"Ads",
	"Apps, integrations & automation",
	"Branding",
	"Copywriting",
	"E-commerce optimization",
	"Email marketing",
	"Funnels",
	"Growth marketing",
	"Opt-in forms",
	"SEO",
	"Web design & UI",
}

// HandleServiceAngles lists the known service angles.
func HandleServiceAngles(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": ServiceAngles})
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

// HandleHealth returns a handler reporting each named check. Any failing
// check turns the response into a 503.
func HandleHealth(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		result := fiber.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = fiber.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		ok := status == fiber.StatusOK
		return c.Status(status).JSON(fiber.Map{"ok": ok, "checks": result})
	}
}
