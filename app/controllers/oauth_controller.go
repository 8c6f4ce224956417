package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/oauth"
	appsession "github.com/ManuelReschke/ScoreEngine/internal/pkg/session"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// AuthController completes provider logins and manages the app session.
type AuthController struct {
	repos      *repository.Repositories
	sessions   *session.Store
	ownerEmail string
	// completeAuth is swapped in tests.
	completeAuth func(c *fiber.Ctx) (goth.User, error)
	now          func() time.Time
}

func NewAuthController(repos *repository.Repositories, sessions *session.Store, ownerEmail string) *AuthController {
	return &AuthController{
		repos:      repos,
		sessions:   sessions,
		ownerEmail: ownerEmail,
		completeAuth: func(c *fiber.Ctx) (goth.User, error) {
			return gothfiber.CompleteUserAuth(c)
		},
		now: time.Now,
	}
}

// HandleOAuthCallback completes the provider flow and logs the user in
func (ac *AuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := ac.completeAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	userCtx := usercontext.UserContext{
		UserID:     oauth.UserID(u),
		Email:      u.Email,
		Name:       oauth.DisplayName(u),
		IsLoggedIn: true,
		Method:     usercontext.MethodSession,
	}
	if _, err := ensureUser(c.UserContext(), ac.repos.User, userCtx, ac.ownerEmail, clock(ac.now)); err != nil {
		fiberlog.Errorf("[OAuth] Failed to upsert user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("create user failed")
	}

	err = appsession.SetSessionValues(ac.sessions, c, map[string]string{
		usercontext.KeyUserID: userCtx.UserID,
		usercontext.KeyEmail:  userCtx.Email,
		usercontext.KeyName:   userCtx.Name,
	})
	if err != nil {
		fiberlog.Errorf("[OAuth] Session save failed for user %s: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	return c.Redirect("/dashboard", fiber.StatusSeeOther)
}

// HandleLogout clears the app session and the provider session.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if err := appsession.Destroy(ac.sessions, c); err != nil {
		fiberlog.Warnf("[OAuth] Failed to destroy session: %v", err)
	}
	if gothfiber.SessionStore != nil {
		_ = gothfiber.Logout(c)
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return c.Redirect("/", fiber.StatusSeeOther)
}
