package oidcauth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bnoidc/oidcfiber/oidcauth/oidctest"
)

const testBaseURL = "http://app.test"

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func testConfig(t *testing.T, tp *oidctest.Provider) ClientConfig {
	t.Helper()

	logger := zerolog.Nop()

	return ClientConfig{
		ClientID:      tp.ClientID(),
		IssuerBaseURL: tp.IssuerURL(),
		BaseURL:       mustParseURL(t, testBaseURL),
		Logger:        &logger,
	}
}

func testErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(StatusCode(err)).SendString(err.Error())
}

// newTestApp mounts a middleware for tp on an app with a few guarded routes
// and waits for initialization.
func newTestApp(t *testing.T, tp *oidctest.Provider, mutate ...func(cfg *ClientConfig)) (*Middleware, *fiber.App) {
	t.Helper()

	cfg := testConfig(t, tp)
	for _, fn := range mutate {
		fn(&cfg)
	}

	m, err := New(context.Background(), cfg)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	m.Register(app)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("home")
	})
	app.Get("/me", IsAuthenticated(), func(c *fiber.Ctx) error {
		return c.JSON(FromContext(c).User)
	})
	app.Get("/premium", IsEntitled("premium"), func(c *fiber.Ctx) error {
		return c.SendString("premium")
	})

	return m, app
}

func doRequest(t *testing.T, app *fiber.App, target string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(b)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	var found *http.Cookie

	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			found = ck
		}
	}

	return found
}

func locationURL(t *testing.T, resp *http.Response) *url.URL {
	t.Helper()

	return mustParseURL(t, resp.Header.Get(fiber.HeaderLocation))
}

// sessionCookie returns a tokens cookie as the middleware would have set it.
func sessionCookie(t *testing.T, m *Middleware, tokens oidctest.Tokens) *http.Cookie {
	t.Helper()

	value, err := m.cookies.encode(&TokenSet{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
	require.NoError(t, err)

	return &http.Cookie{Name: m.cfg.Cookies.Tokens, Value: value}
}

func decodeCookie(t *testing.T, m *Middleware, ck *http.Cookie, v interface{}) {
	t.Helper()

	require.NotNil(t, ck)
	require.NoError(t, m.cookies.decode(ck.Value, v))
}

func isCleared(ck *http.Cookie) bool {
	return ck != nil && ck.Value == ""
}
