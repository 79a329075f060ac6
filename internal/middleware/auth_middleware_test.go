package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]service.Actor

func (s stubValidator) ValidateToken(token string) (service.Actor, error) {
	a, ok := s[token]
	if !ok {
		return service.Actor{}, errors.New("bad token")
	}
	return a, nil
}

func newApp() *fiber.App {
	tokens := stubValidator{
		"admin-token":  {ID: "1", Username: "admin", Role: model.RoleAdmin},
		"seller-token": {ID: "2", Username: "somsri", Role: model.RoleSeller},
	}
	app := fiber.New()
	app.Use(RequireAuth(tokens))
	app.Get("/me", func(c *fiber.Ctx) error {
		actor, _ := ActorFrom(c)
		return c.SendString(actor.Username)
	})
	app.Get("/admin", RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(204)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, auth string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	app := newApp()

	assert.Equal(t, 401, do(t, app, "/me", ""))
	assert.Equal(t, 401, do(t, app, "/me", "Token admin-token"))
	assert.Equal(t, 401, do(t, app, "/me", "Bearer nope"))
	assert.Equal(t, 200, do(t, app, "/me", "Bearer admin-token"))
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	assert.Equal(t, 204, do(t, app, "/admin", "Bearer admin-token"))
	assert.Equal(t, 403, do(t, app, "/admin", "Bearer seller-token"))
}
