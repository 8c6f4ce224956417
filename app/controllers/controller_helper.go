package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// ensureUser creates the user on first authenticated access and refreshes
// email and name afterwards. The owner email gets the admin flag.
func ensureUser(ctx context.Context, users repository.UserRepository, u usercontext.UserContext, ownerEmail string, now time.Time) (*models.User, error) {
	user, err := users.Upsert(ctx, models.NewUser(u.UserID, u.Email, u.Name, now))
	if err != nil {
		return nil, err
	}
	if isOwner(user.Email, ownerEmail) && !user.IsAdmin {
		if err := users.SetAdmin(ctx, user.ID, true); err != nil {
			fiberlog.Warnf("Failed to mark owner %s as admin: %v", user.ID, err)
		} else {
			user.IsAdmin = true
		}
	}
	return user, nil
}

func isOwner(email, ownerEmail string) bool {
	ownerEmail = strings.TrimSpace(ownerEmail)
	return ownerEmail != "" && strings.EqualFold(strings.TrimSpace(email), ownerEmail)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
}

// clock returns now or time.Now when nil.
func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
