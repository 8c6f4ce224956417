package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/entitlements"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// AccountController serves the account summary, audit history and
// client-side event tracking.
type AccountController struct {
	repos      *repository.Repositories
	ownerEmail string
	now        func() time.Time
}

// NewAccountController creates a new account controller with repository dependencies
func NewAccountController(repos *repository.Repositories, ownerEmail string) *AccountController {
	return &AccountController{
		repos:      repos,
		ownerEmail: ownerEmail,
		now:        time.Now,
	}
}

type meResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Credits      int        `json:"credits"`
	TrialEndsAt  *time.Time `json:"trialEndsAt"`
	HasActiveSub bool       `json:"hasActiveSub"`
}

// HandleMe returns the caller's balance and subscription state.
func (ac *AccountController) HandleMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}
	ctx := c.UserContext()
	now := clock(ac.now)

	if _, err := ensureUser(ctx, ac.repos.User, userCtx, ac.ownerEmail, now); err != nil {
		fiberlog.Errorf("[Account] Failed to upsert user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load user")
	}

	user, err := ac.repos.User.GetWithSubscriptions(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load user")
	}

	return c.JSON(meResponse{
		ID:           user.ID,
		Email:        user.Email,
		Credits:      user.Credits,
		TrialEndsAt:  user.TrialEndsAt,
		HasActiveSub: entitlements.HasActiveSubscription(user.Subscriptions, now),
	})
}

// HandleAudits returns one page of the caller's audits, newest first.
func (ac *AccountController) HandleAudits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	page, err := ac.repos.Audit.ListByUser(c.UserContext(), userCtx.UserID, strings.TrimSpace(c.Query("cursor")))
	if err != nil {
		fiberlog.Errorf("[Account] Failed to list audits for user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load audits")
	}
	return c.JSON(page)
}

type trackRequest struct {
	AuditID string `json:"auditId"`
	Metric  string `json:"metric"`
	Value   any    `json:"value"`
}

// HandleTrack records a client-side event such as "copied" or "sent".
func (ac *AccountController) HandleTrack(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	var req trackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid body")
	}

	if strings.TrimSpace(req.Metric) == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid body")
	}

	ctx := c.UserContext()
	if _, err := ensureUser(ctx, ac.repos.User, userCtx, ac.ownerEmail, clock(ac.now)); err != nil {
		fiberlog.Errorf("[Account] Failed to upsert user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to record event")
	}

	_, err := ac.repos.Event.Create(ctx, userCtx.UserID, req.Metric, map[string]any{
		"auditId": req.AuditID,
		"value":   req.Value,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEventTypeRequired) {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid body")
		}
		fiberlog.Errorf("[Account] Failed to record event %q for user %s: %v", req.Metric, userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to record event")
	}
	return c.JSON(fiber.Map{"success": true})
}
