package fiber_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnoidc/oidcfiber/internal/logger"
	adapter "github.com/bnoidc/oidcfiber/internal/logger/adapter/fiber"
	"github.com/bnoidc/oidcfiber/oidcauth"
)

// accessLogEntry implements the logged json format.
type accessLogEntry struct {
	IP     string `json:"IP"`
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
	User   string `json:"user"`
	Error  string `json:"error"`
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		targetPath string
		config     adapter.Config
		want       *accessLogEntry
	}{
		{
			name:       "get /",
			targetPath: "/",
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 200, URI: "/", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:       "get with params",
			targetPath: "/?test=123",
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 200, URI: "/?test=123", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:       "not found",
			targetPath: "/no_path?test=123",
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 404, URI: "/no_path?test=123", Method: fiber.MethodGet, Host: "example.com", Error: "Cannot GET /no_path"},
		},
		{
			name:       "authenticated user",
			targetPath: "/me",
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 200, URI: "/me", Method: fiber.MethodGet, Host: "example.com", User: "alice"},
		},
		{
			name:       "guard error resolved by error handler",
			targetPath: "/private",
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 401, URI: "/private", Method: fiber.MethodGet, Host: "example.com", Error: "user is not logged in"},
		},
		{
			name:       "check alive skipped",
			targetPath: "/checkalive",
			config: adapter.Config{
				Config:        logger.Log{DisableCheckAlive: true},
				CheckAliveURI: "/checkalive",
			},
		},
		{
			name:       "check alive logged",
			targetPath: "/checkalive",
			config:     adapter.Config{CheckAliveURI: "/checkalive"},
			want:       &accessLogEntry{IP: "0.0.0.0", Status: 200, URI: "/checkalive", Method: fiber.MethodGet, Host: "example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)

			output := testMiddlewareHelper(t, tt.targetPath, tt.config)

			if tt.want == nil {
				assert.Empty(output)

				return
			}

			var got accessLogEntry
			require.NoError(json.Unmarshal([]byte(strings.TrimSpace(output)), &got), output)
			assert.Equal(*tt.want, got)
		})
	}
}

func TestNewWithoutWriters(t *testing.T) {
	app := fiber.New()
	app.Use(adapter.New())
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("hello test")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Performance"))
}

func testMiddlewareHelper(t *testing.T, targetPath string, cfg adapter.Config) string {
	t.Helper()

	var buf bytes.Buffer

	cfg.Output = &buf

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(oidcauth.StatusCode(err)).SendString(err.Error())
		},
	})

	app.Use(adapter.New(cfg))

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("hello test")
	})
	app.Get("/checkalive", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})
	app.Get("/me", func(ctx *fiber.Ctx) error {
		ctx.Locals("oidcauth.context", &oidcauth.RequestContext{
			IsAuthenticated: true,
			User:            &oidcauth.User{ID: "alice"},
		})

		return ctx.SendString("alice")
	})
	app.Get("/private", func(*fiber.Ctx) error {
		return &oidcauth.UnauthenticatedError{}
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, targetPath, nil), -1)
	require.NoError(t, err)
	require.NotNil(t, resp)

	return buf.String()
}
