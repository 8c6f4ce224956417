package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/entitlements"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/generator"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ledger"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/metrics"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ratelimit"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/signals"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/siteurl"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// EmailGenerator produces a validated email for a request.
type EmailGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.EmailResult, error)
}

// SignalExtractor fetches best-effort site signals. It never fails.
type SignalExtractor interface {
	Extract(ctx context.Context, url string) signals.SiteSignals
}

// GenerationRecorder persists a successful generation.
type GenerationRecorder interface {
	RecordGeneration(ctx context.Context, e ledger.Entry) (*models.Audit, error)
}

// GenerateController runs the generate pipeline: validate, entitle, extract,
// generate, record.
type GenerateController struct {
	repos      *repository.Repositories
	extractor  SignalExtractor
	generator  EmailGenerator
	recorder   GenerationRecorder
	ownerEmail string
	validate   *validator.Validate
	now        func() time.Time
}

func NewGenerateController(repos *repository.Repositories, extractor SignalExtractor, gen EmailGenerator, recorder GenerationRecorder, ownerEmail string) *GenerateController {
	return &GenerateController{
		repos:      repos,
		extractor:  extractor,
		generator:  gen,
		recorder:   recorder,
		ownerEmail: ownerEmail,
		validate:   validator.New(),
		now:        time.Now,
	}
}

type generateRequest struct {
	URL          string `json:"url"`
	ServiceAngle string `json:"serviceAngle" validate:"required,max=120"`
	RecentUpdate string `json:"recentUpdate" validate:"max=1000"`
	Locale       string `json:"locale" validate:"max=16"`
	Tone         string `json:"tone" validate:"max=64"`
}

func (req *generateRequest) trim() {
	req.URL = strings.TrimSpace(req.URL)
	req.ServiceAngle = strings.TrimSpace(req.ServiceAngle)
	req.RecentUpdate = strings.TrimSpace(req.RecentUpdate)
	req.Locale = strings.TrimSpace(req.Locale)
	req.Tone = strings.TrimSpace(req.Tone)
}

// GenerateRateKey keys the generate limiter by user and X-Forwarded-For
// origin. Anonymous requests are not limited here; auth rejects them.
func GenerateRateKey(c *fiber.Ctx) string {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return ""
	}
	return ratelimit.Key(userID, c.Get(fiber.HeaderXForwardedFor))
}

// HandleGenerate creates one email. Rate limiting runs in front of it.
func (gc *GenerateController) HandleGenerate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}
	ctx := c.UserContext()

	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.Generations.WithLabelValues("invalid").Inc()
		return c.Status(fiber.StatusBadRequest).SendString("Invalid JSON body")
	}
	req.trim()

	target, err := siteurl.Parse(req.URL)
	if err != nil {
		fiberlog.Infof("[Generate] Rejected url %q for user %s: %v", req.URL, userCtx.UserID, err)
		metrics.Generations.WithLabelValues("invalid").Inc()
		return c.Status(fiber.StatusBadRequest).SendString("Invalid URL")
	}
	if err := gc.validate.Struct(req); err != nil {
		metrics.Generations.WithLabelValues("invalid").Inc()
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs[0].Field() == "ServiceAngle" && verrs[0].Tag() == "required" {
			return c.Status(fiber.StatusBadRequest).SendString("Service angle is required")
		}
		return c.Status(fiber.StatusBadRequest).SendString("Invalid request")
	}
	url := target.String()

	now := clock(gc.now)
	if _, err := ensureUser(ctx, gc.repos.User, userCtx, gc.ownerEmail, now); err != nil {
		fiberlog.Errorf("[Generate] Failed to upsert user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load user")
	}
	user, err := gc.repos.User.GetWithSubscriptions(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("User not found")
		}
		fiberlog.Errorf("[Generate] Failed to load user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load user")
	}

	decision := entitlements.Check(user, user.Subscriptions, now)
	if !decision.Allowed {
		fiberlog.Infof("[Generate] Denied for user %s (credits=%d)", userCtx.UserID, user.Credits)
		metrics.Generations.WithLabelValues("denied").Inc()
		return c.Status(fiber.StatusPaymentRequired).SendString("Insufficient credits")
	}

	siteSignals := gc.extractor.Extract(ctx, url)

	result, err := gc.generator.Generate(ctx, generator.Request{
		URL:          url,
		ServiceAngle: req.ServiceAngle,
		RecentUpdate: req.RecentUpdate,
		Locale:       req.Locale,
		Tone:         req.Tone,
		Signals:      siteSignals,
	})
	if err != nil {
		fiberlog.Errorf("[Generate] Generation failed for %s (user %s): %v", url, userCtx.UserID, err)
		metrics.Generations.WithLabelValues("generation_failed").Inc()
		return c.Status(fiber.StatusInternalServerError).SendString("Generation failed: " + err.Error())
	}

	_, err = gc.recorder.RecordGeneration(ctx, ledger.Entry{
		UserID:              user.ID,
		URL:                 url,
		ServiceAngle:        req.ServiceAngle,
		Locale:              req.Locale,
		RecentUpdate:        req.RecentUpdate,
		Result:              result,
		ExemptFromDecrement: decision.ExemptFromDecrement,
		RequireCredit:       !decision.TrialActive && !decision.ActiveSubscription,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			metrics.Generations.WithLabelValues("denied").Inc()
			return c.Status(fiber.StatusPaymentRequired).SendString("Insufficient credits")
		}
		fiberlog.Errorf("[Generate] Failed to record generation for user %s: %v", userCtx.UserID, err)
		metrics.Generations.WithLabelValues("ledger_failed").Inc()
		return c.Status(fiber.StatusInternalServerError).SendString("Generation failed: " + err.Error())
	}

	metrics.Generations.WithLabelValues("success").Inc()
	return c.JSON(result)
}
