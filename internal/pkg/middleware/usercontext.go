package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the caller from a bearer token first, then
// from the app session. Anonymous requests pass through with an empty context.
func UserContextMiddleware(store *session.Store, jwtKey []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Goth keeps its own session on /auth/*; skip ours there.
		if strings.HasPrefix(c.Path(), "/auth/") {
			return c.Next()
		}

		if token := bearerToken(c.Get(fiber.HeaderAuthorization)); token != "" {
			claims, err := ParseToken(jwtKey, token)
			if err != nil {
				log.Debugf("Rejected bearer token: %v", err)
				usercontext.SetUserContext(c, usercontext.UserContext{})
				return c.Next()
			}
			usercontext.SetUserContext(c, usercontext.UserContext{
				UserID:     claims.Subject,
				Email:      claims.Email,
				Name:       claims.Name,
				IsLoggedIn: true,
				Method:     usercontext.MethodBearer,
			})
			return c.Next()
		}

		if store == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}
		sess, err := store.Get(c)
		if err != nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, _ := sess.Get(usercontext.KeyUserID).(string)
		if userID == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}
		email, _ := sess.Get(usercontext.KeyEmail).(string)
		name, _ := sess.Get(usercontext.KeyName).(string)
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Email:      email,
			Name:       name,
			IsLoggedIn: true,
			Method:     usercontext.MethodSession,
		})
		return c.Next()
	}
}
