package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ScoreEngine/app/controllers"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/middleware"
)

// WebhookPath is the public, signature-verified billing endpoint.
const WebhookPath = "/api/lsz/webhook"

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config

	// /api/generate is the only rate-limited route
	api := app.Group("/api")

	// public
	api.Get("/health", controllers.HandleHealth(h.deps.Health))
	api.Get("/service-angles", controllers.HandleServiceAngles)

	billingController := controllers.NewBillingController(h.deps.Billing)
	api.Post("/lsz/webhook", billingController.HandleLemonSqueezyWebhook)

	// authenticated
	account := controllers.NewAccountController(h.deps.Repos, cfg.App.OwnerEmail)
	tokens := controllers.NewTokenController([]byte(cfg.Auth.JWTSigningKey), cfg.Auth.TokenTTL)
	generate := controllers.NewGenerateController(h.deps.Repos, h.deps.Extractor, h.deps.Generator, h.deps.Recorder, cfg.App.OwnerEmail)

	api.Get("/me", middleware.RequireAPIAuth, account.HandleMe)
	api.Get("/audits", middleware.RequireAPIAuth, account.HandleAudits)
	api.Post("/track", middleware.RequireAPIAuth, account.HandleTrack)
	api.Post("/token", middleware.RequireAPIAuth, tokens.HandleIssueToken)
	api.Post("/generate", middleware.RequireAPIAuth, h.deps.Limiter.Middleware(controllers.GenerateRateKey), generate.HandleGenerate)
	api.Post("/credits/checkout", middleware.RequireAPIAuth, billingController.HandleCreditsCheckout)
	api.Post("/subscription/checkout", middleware.RequireAPIAuth, billingController.HandleSubscriptionCheckout)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
