package controllers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// asUser installs a fixed identity; an empty id leaves the request anonymous.
func asUser(id, email string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id != "" {
			usercontext.SetUserContext(c, usercontext.UserContext{
				UserID: id, Email: email, IsLoggedIn: true, Method: usercontext.MethodBearer,
			})
		}
		return c.Next()
	}
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}
