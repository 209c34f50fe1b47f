package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	config "github.com/rosterline/backstage/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(secret string, allowQuery bool) *fiber.App {
	app := fiber.New()
	m := NewCronMiddleware(config.Config{CronSecret: secret})
	app.Get("/guarded", m.RequireSecret(allowQuery), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireSecretHeader(t *testing.T) {
	app := newTestApp("s3cret", false)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"exact match", "Bearer s3cret", fiber.StatusOK},
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer nope", fiber.StatusUnauthorized},
		{"lowercase scheme", "bearer s3cret", fiber.StatusUnauthorized},
		{"trailing space", "Bearer s3cret ", fiber.StatusUnauthorized},
		{"secret only", "s3cret", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireSecretQueryFallback(t *testing.T) {
	// fallback disabled
	app := newTestApp("s3cret", false)
	resp, err := app.Test(httptest.NewRequest("GET", "/guarded?secret=s3cret", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// fallback enabled
	app = newTestApp("s3cret", true)
	resp, err = app.Test(httptest.NewRequest("GET", "/guarded?secret=s3cret", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/guarded?secret=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireSecretUnconfigured(t *testing.T) {
	app := newTestApp("", true)
	resp, err := app.Test(httptest.NewRequest("GET", "/guarded?secret=", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
