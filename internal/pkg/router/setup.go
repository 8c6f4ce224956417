package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/ScoreEngine/app/controllers"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ratelimit"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the long-lived handles the routes are wired to.
type Dependencies struct {
	Config    *config.Config
	Repos     *repository.Repositories
	Sessions  *session.Store
	Extractor controllers.SignalExtractor
	Generator controllers.EmailGenerator
	Recorder  controllers.GenerationRecorder
	Billing   controllers.BillingService
	Limiter   *ratelimit.Limiter
	Health    map[string]controllers.HealthCheck
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// HttpRouter installs the UserContext middleware the API routes rely on,
	// so it goes first.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
