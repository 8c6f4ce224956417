package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/middleware"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// TokenController hands out bearer tokens to signed-in users so scripts and
// extensions can call the API without the session cookie.
type TokenController struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenController(key []byte, ttl time.Duration) *TokenController {
	return &TokenController{key: key, ttl: ttl, now: time.Now}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleIssueToken signs a token for the current identity. Only session
// logins may mint tokens; a bearer token cannot extend itself.
func (tc *TokenController) HandleIssueToken(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}
	if userCtx.Method != usercontext.MethodSession {
		return c.Status(fiber.StatusForbidden).SendString("Tokens are issued to session logins only")
	}
	if len(tc.key) == 0 || tc.ttl <= 0 {
		fiberlog.Errorf("[Token] Signing key or token TTL not configured")
		return c.Status(fiber.StatusInternalServerError).SendString("Token issuing is not configured")
	}

	now := clock(tc.now)
	token, err := middleware.IssueToken(tc.key, userCtx.UserID, userCtx.Email, userCtx.Name, tc.ttl, now)
	if err != nil {
		fiberlog.Errorf("[Token] Failed to sign token for %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to issue token")
	}
	return c.JSON(tokenResponse{Token: token, ExpiresAt: now.Add(tc.ttl).UTC().Truncate(time.Second)})
}
