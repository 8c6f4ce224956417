package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

var testKey = []byte("test-signing-key")

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	token, err := IssueToken(testKey, "google:1", "a@b.co", "Ann", time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(testKey, token)
	require.NoError(t, err)
	assert.Equal(t, "google:1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, "Ann", claims.Name)
}

func TestParseTokenRejects(t *testing.T) {
	now := time.Now()
	expired, err := IssueToken(testKey, "u1", "", "", time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	otherKey, err := IssueToken([]byte("other"), "u1", "", "", time.Hour, now)
	require.NoError(t, err)
	noSubject, err := IssueToken(testKey, "", "", "", time.Hour, now)
	require.NoError(t, err)

	tests := []struct {
		name  string
		key   []byte
		token string
	}{
		{"expired", testKey, expired},
		{"wrong key", testKey, otherKey},
		{"missing subject", testKey, noSubject},
		{"garbage", testKey, "not-a-jwt"},
		{"no key configured", nil, otherKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.key, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}

func newApp(store *session.Store) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware(store, testKey))
	app.Post("/login", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		sess.Set(usercontext.KeyUserID, "github:9")
		sess.Set(usercontext.KeyEmail, "s@b.co")
		return sess.Save()
	})
	app.Get("/api/whoami", RequireAPIAuth, func(c *fiber.Ctx) error {
		u := usercontext.GetUserContext(c)
		return c.SendString(u.Method + " " + u.UserID)
	})
	return app
}

func TestRequireAPIAuthAnonymous(t *testing.T) {
	app := newApp(session.New())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Unauthorized", string(body))
}

func TestUserContextFromBearer(t *testing.T) {
	app := newApp(session.New())
	token, err := IssueToken(testKey, "google:1", "a@b.co", "", time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "bearer google:1", string(body))

	req = httptest.NewRequest("GET", "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserContextFromSession(t *testing.T) {
	app := newApp(session.New())

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Cookies())

	req := httptest.NewRequest("GET", "/api/whoami", nil)
	req.AddCookie(resp.Cookies()[0])
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "session github:9", string(body))
}
