package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/ScoreEngine/app/controllers"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/archive"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/billing"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/cache"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/database"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/env"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/generator"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ledger"
	applogger "github.com/ManuelReschke/ScoreEngine/internal/pkg/logger"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/oauth"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ratelimit"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/router"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/session"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/signals"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cfg := NewApplication(ctx)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("Shutdown failed: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func NewApplication(ctx context.Context) (*fiber.App, *config.Config) {
	envFile := env.SetupEnvFile()
	cfg := config.MustLoad()
	applogger.Setup(cfg.App.Env, os.Stdout)
	if envFile != "" {
		log.Infof("Loaded env file: %s", envFile)
	}

	database.SetupDatabase(ctx, cfg)
	cache.SetupCache(cfg.Cache)
	db := database.GetDB()
	repository.InitializeFactory(db)
	factory := repository.GetGlobalFactory()

	// session + oauth
	sessions := session.NewSessionStore(cfg)
	oauth.Setup(cfg)

	gen := generator.NewFromAPIKey(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	if gen.Offline() {
		log.Warn("OPENAI_API_KEY not set, serving placeholder emails")
	}

	billingOpts := []billing.Option{
		billing.WithCheckoutClient(billing.NewLemonSqueezyClient(cfg.LemonSqueezy.APIKey, cfg.LemonSqueezy.StoreID, cfg.LemonSqueezy.APIBaseURL)),
		billing.WithWebhookSecret(cfg.LemonSqueezy.WebhookSecret),
		billing.WithBaseURL(cfg.App.BaseURL),
		billing.WithPrices(billing.PriceTable{
			TopupSmall:   cfg.LemonSqueezy.PriceIDTopupSmall,
			TopupLarge:   cfg.LemonSqueezy.PriceIDTopupLarge,
			Subscription: cfg.LemonSqueezy.PriceIDSubscription,
		}),
	}
	webhookArchive, err := archive.NewS3Archive(ctx, cfg.Archive)
	if err != nil {
		log.Errorf("Webhook archive disabled: %v", err)
	} else if webhookArchive != nil {
		billingOpts = append(billingOpts, billing.WithArchiver(webhookArchive))
	}

	limiter := ratelimit.New(
		ratelimit.NewRedisStore(cache.GetClient()),
		cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Prefix,
	)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitMB * 1024 * 1024,
	})

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// metrics
	if cfg.Metrics.Password != "" {
		metricsAuth := basicauth.New(basicauth.Config{
			Users: map[string]string{
				cfg.Metrics.Username: cfg.Metrics.Password,
			},
		})
		app.Get("/metrics", metricsAuth, adaptor.HTTPHandler(promhttp.Handler()))
		app.Get("/monitor", metricsAuth, monitor.New())
	}

	// SWAGGER / OPENAPI
	if specPath := findProjectFile("public/docs/v1/openapi.yml"); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Config:   cfg,
		Repos:    factory.GetRepositories(),
		Sessions: sessions,
		Extractor: signals.NewExtractor(
			signals.WithTimeout(cfg.Scraper.Timeout),
			signals.WithUserAgent(cfg.Scraper.UserAgent),
		),
		Generator: gen,
		Recorder:  ledger.New(factory.DB()),
		Billing:   billing.NewServiceFromDB(factory.DB(), billingOpts...),
		Limiter:   limiter,
		Health: map[string]controllers.HealthCheck{
			"database": database.Ping,
			"redis":    cache.Ping,
		},
	})

	return app, cfg
}

// findProjectFile resolves rel from the working directory or the project
// root when started from cmd/scoreengine.
func findProjectFile(rel string) string {
	for _, base := range []string{"./", "../../", "../../../"} {
		if _, err := os.Stat(base + rel); err == nil {
			return base + rel
		}
	}
	return ""
}
