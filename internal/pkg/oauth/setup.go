package oauth

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	appsession "github.com/ManuelReschke/ScoreEngine/internal/pkg/session"
)

// Providers returns the configured identity providers. A provider without a
// client key is skipped.
func Providers(cfg *config.Config) []goth.Provider {
	base := cfg.App.BaseURL
	var providers []goth.Provider
	if cfg.Auth.GoogleClientKey != "" {
		providers = append(providers, google.New(
			cfg.Auth.GoogleClientKey,
			cfg.Auth.GoogleClientSecret,
			base+"/auth/google/callback",
			"email", "profile",
		))
	}
	if cfg.Auth.GithubClientKey != "" {
		providers = append(providers, github.New(
			cfg.Auth.GithubClientKey,
			cfg.Auth.GithubClientSecret,
			base+"/auth/github/callback",
			"read:user", "user:email",
		))
	}
	return providers
}

// Setup registers the providers and keeps OAuth state in redis DB 2.
// It is safe to call multiple times; providers will just be re-registered.
func Setup(cfg *config.Config) {
	goth.UseProviders(Providers(cfg)...)

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        appsession.RedisStorage(cfg.Cache, appsession.OAuthDB),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !cfg.IsDev(),
		Expiration:     72 * time.Hour,
	})
}

// UserID is the stable ScoreEngine identity for a provider account.
func UserID(u goth.User) string {
	return u.Provider + ":" + u.UserID
}

// DisplayName picks the first non-empty name the provider returned.
func DisplayName(u goth.User) string {
	for _, v := range []string{u.FirstName, u.Name, u.NickName} {
		if v != "" {
			return v
		}
	}
	return ""
}
