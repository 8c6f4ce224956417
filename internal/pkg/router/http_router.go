package router

import (
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/ScoreEngine/app/controllers"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/middleware"
)

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Sessions, []byte(h.deps.Config.Auth.JWTSigningKey)))

	auth := controllers.NewAuthController(h.deps.Repos, h.deps.Sessions, h.deps.Config.App.OwnerEmail)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", auth.HandleOAuthCallback)
	app.Post("/logout", auth.HandleLogout)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
