package oidcauth

import (
	"github.com/gofiber/fiber/v2"
)

// refresh exchanges the session's refresh token, verifies the new ID token
// and overwrites the token cookie. It never redirects.
func (m *Middleware) refresh(c *fiber.Ctx, rc *RequestContext) (err error) {
	defer func() {
		m.metrics.refreshes.WithLabelValues(resultLabel(err)).Inc()
	}()

	if rc.Tokens == nil || rc.Tokens.RefreshToken == "" {
		return &RefreshError{Err: ErrNoRefreshToken}
	}

	ctx := c.UserContext()

	tokens, err := ExchangeRefreshToken(ctx, m.client, RefreshTokenRequest{
		TokenEndpoint: rc.Provider.Metadata.TokenEndpoint,
		ClientID:      m.cfg.ClientID,
		ClientSecret:  m.cfg.ClientSecret,
		RefreshToken:  rc.Tokens.RefreshToken,
	})
	if err != nil {
		return &RefreshError{Err: err}
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = rc.Tokens.RefreshToken
	}

	claims, err := m.verify(ctx, rc.Provider, tokens.IDToken)
	if err != nil {
		return &RefreshError{Err: err}
	}

	if err = ctx.Err(); err != nil {
		return &RefreshError{Err: err}
	}

	if err = m.cookies.setTokens(c, tokens); err != nil {
		return &RefreshError{Err: err}
	}

	rc.Tokens = tokens
	rc.authenticate(claims)

	m.log.Debug().Str("sub", claims.Subject()).Msg("session refreshed")

	return nil
}
