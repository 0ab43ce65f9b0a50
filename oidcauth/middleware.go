package oidcauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	providerLocalsKey = "oidcauth.provider"
	contextLocalsKey  = "oidcauth.context"

	verifyLeeway = 5 * time.Second
)

// Middleware is an OIDC relying party mounted on a Fiber application.
type Middleware struct {
	cfg     ClientConfig
	log     zerolog.Logger
	client  *http.Client
	cookies *cookieStore
	metrics *metrics
	init    *initializer
}

// New validates cfg, applies defaults and starts provider discovery in the
// background. ctx bounds the discovery; requests arriving before it completes
// wait for the shared result.
func New(ctx context.Context, cfg ClientConfig) (*Middleware, error) {
	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	logger = logger.With().Str("component", "oidcauth").Logger()

	client := cfg.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = cfg.HTTPTimeout
	}

	cookies, err := newCookieStore(&cfg, logger)
	if err != nil {
		return nil, &SetupError{Err: err}
	}

	m := &Middleware{
		cfg:     cfg,
		log:     logger,
		client:  client,
		cookies: cookies,
		metrics: newMetrics(cfg.Registerer),
		init:    newInitializer(),
	}

	m.init.start(func() (*Provider, error) {
		p, err := Discover(ctx, m.client, &m.cfg, m.log)
		m.metrics.discovery.WithLabelValues(resultLabel(err)).Inc()

		if err != nil {
			m.log.Error().Err(err).Str("issuer", m.cfg.IssuerBaseURL.String()).Msg("oidc initialization failed")
		}

		return p, err
	})

	return m, nil
}

// Wait blocks until initialization finished and returns its result.
func (m *Middleware) Wait(ctx context.Context) (*Provider, error) {
	return m.init.wait(ctx)
}

// Handlers returns the request pipeline in the order it must run.
func (m *Middleware) Handlers() []fiber.Handler {
	return []fiber.Handler{m.ensureInitialized, m.requestContext, m.idToken, m.queryParams}
}

// Register mounts the request pipeline and the four protocol routes on the
// root router. Routes registered on r before Register bypass the middleware.
func (m *Middleware) Register(r fiber.Router) {
	for _, h := range m.Handlers() {
		r.Use(h)
	}

	r.Get(m.cfg.LoginPath, func(c *fiber.Ctx) error {
		return FromContext(c).Login(LoginOptions{ReturnPath: c.Query(returnPathParam)})
	})
	r.Get(m.cfg.LoginCallbackPath, func(c *fiber.Ctx) error {
		return FromContext(c).LoginCallback()
	})
	r.Get(m.cfg.LogoutPath, func(c *fiber.Ctx) error {
		return FromContext(c).Logout(LogoutOptions{ReturnPath: c.Query(returnPathParam)})
	})
	r.Get(m.cfg.LogoutCallbackPath, func(c *fiber.Ctx) error {
		return FromContext(c).LogoutCallback()
	})
}

// ensureInitialized waits for discovery. It also replaces the user context
// with one that is cancelled when the server shuts down or the request ends,
// so provider calls and cookie writes stop with the request.
func (m *Middleware) ensureInitialized(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(c.UserContext())
	stop := context.AfterFunc(c.Context(), cancel)

	defer func() {
		stop()
		cancel()
	}()

	c.SetUserContext(ctx)

	p, err := m.init.wait(ctx)
	if err != nil {
		return err
	}

	c.Locals(providerLocalsKey, p)

	return c.Next()
}

func (m *Middleware) requestContext(c *fiber.Ctx) error {
	p, ok := c.Locals(providerLocalsKey).(*Provider)
	if !ok {
		return ErrNotInitialized
	}

	rc := &RequestContext{
		Config:   &m.cfg,
		Provider: p,
		m:        m,
		c:        c,
	}

	if tokens, ok := m.cookies.tokens(c); ok {
		rc.Tokens = tokens
	}

	c.Locals(contextLocalsKey, rc)

	return c.Next()
}

// idToken authenticates the request from the token cookie. A token that fails
// verification is refreshed once; when that fails too the session is dropped
// and the user is sent to login. The callback and logout routes handle the
// cookie themselves and are skipped.
func (m *Middleware) idToken(c *fiber.Ctx) error {
	switch c.Path() {
	case m.cfg.LoginCallbackPath, m.cfg.LogoutPath, m.cfg.LogoutCallbackPath:
		return c.Next()
	}

	rc := FromContext(c)
	if rc.Tokens == nil || rc.Tokens.IDToken == "" {
		return c.Next()
	}

	claims, err := m.verify(c.UserContext(), rc.Provider, rc.Tokens.IDToken)
	if err == nil {
		rc.authenticate(claims)

		return c.Next()
	}

	m.log.Debug().Err(err).Bool("expired", errors.Is(err, ErrTokenExpired)).Msg("id token rejected")

	if rc.Tokens.RefreshToken != "" {
		rerr := rc.Refresh()
		if rerr == nil {
			return c.Next()
		}

		m.log.Warn().Err(rerr).Msg("session refresh failed")
	}

	m.cookies.unsetTokens(c)
	rc.clear()

	return rc.Login(LoginOptions{ReturnPath: c.OriginalURL()})
}

// queryParams handles the idlogin and idrefresh triggers.
func (m *Middleware) queryParams(c *fiber.Ctx) error {
	rc := FromContext(c)

	switch idlogin := c.Query("idlogin"); idlogin {
	case "true", "silent":
		opts := LoginOptions{ReturnPath: pathWithoutTriggers(c)}
		if idlogin == "silent" {
			opts.Prompts = []string{"none"}
		}

		return rc.Login(opts)
	}

	if c.Query("idrefresh") == "true" {
		if err := rc.Refresh(); err != nil {
			m.log.Warn().Err(err).Msg("requested refresh failed")
		}
	}

	return c.Next()
}

// pathWithoutTriggers returns the request path and query without idlogin and idrefresh.
func pathWithoutTriggers(c *fiber.Ctx) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	c.Request().URI().QueryArgs().CopyTo(args)
	args.Del("idlogin")
	args.Del("idrefresh")

	if args.Len() == 0 {
		return c.Path()
	}

	return c.Path() + "?" + args.String()
}

// verify checks an ID token against the provider keys. A token signed with an
// unknown key triggers a rate limited refetch of the key set and one retry.
func (m *Middleware) verify(ctx context.Context, p *Provider, token string) (Claims, error) {
	opts := VerifyOptions{
		Issuer:   p.Metadata.Issuer,
		Audience: m.cfg.ClientID,
		Leeway:   verifyLeeway,
	}

	claims, err := VerifyIDToken(token, p.Keys(), opts)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		if kid, kerr := tokenKeyID(token); kerr == nil && kid != "" && !hasKeyID(p.Keys(), kid) {
			rerr := p.keys.refresh(ctx)

			switch {
			case rerr == nil:
				claims, err = VerifyIDToken(token, p.Keys(), opts)
			case !errors.Is(rerr, errRefetchTooSoon):
				m.log.Warn().Err(rerr).Str("kid", kid).Msg("signing key refetch failed")
			}
		}
	}

	m.metrics.verifications.WithLabelValues(resultLabel(err)).Inc()

	return claims, err
}
