package oidcauth

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
)

var errNonceMismatch = errors.New("nonce does not match the login request")

// loginCallback redeems the authorization code and stores the token set.
// The auth params cookie is single use and cleared on every path.
func (m *Middleware) loginCallback(c *fiber.Ctx, rc *RequestContext) (err error) {
	defer m.cookies.unsetAuthParams(c)
	defer func() {
		m.metrics.callbacks.WithLabelValues(resultLabel(err)).Inc()

		if err != nil {
			m.log.Warn().Err(err).Msg("login callback failed")
		}
	}()

	params, ok := m.cookies.authParams(c)
	if !ok || !equalState(c.Query("state"), params.State) {
		return &InvalidStateError{}
	}

	if code := c.Query("error"); code != "" {
		return &AuthorizationError{
			Code:        code,
			Description: c.Query("error_description"),
			URI:         c.Query("error_uri"),
		}
	}

	returnPath := SanitizeReturnPath(c.Query(returnPathParam))
	ctx := c.UserContext()

	tokens, err := ExchangeAuthorizationCode(ctx, m.client, AuthorizationCodeRequest{
		TokenEndpoint: rc.Provider.Metadata.TokenEndpoint,
		ClientID:      m.cfg.ClientID,
		ClientSecret:  m.cfg.ClientSecret,
		Code:          c.Query("code"),
		RedirectURI:   m.callbackURL(m.cfg.LoginCallbackPath, returnPath),
		CodeVerifier:  params.CodeVerifier,
	})
	if err != nil {
		return err
	}

	claims, err := m.verify(ctx, rc.Provider, tokens.IDToken)
	if err != nil {
		return err
	}

	if !equalState(claims.String("nonce"), params.Nonce) {
		return &InvalidIDTokenError{Err: errNonceMismatch}
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	if err = m.cookies.setTokens(c, tokens); err != nil {
		return err
	}

	rc.Tokens = tokens
	rc.authenticate(claims)

	m.log.Debug().Str("sub", claims.Subject()).Msg("login completed")

	return c.Redirect(returnPath, fiber.StatusFound)
}

// equalState compares a received state or nonce with the stored one. Empty values never match.
func equalState(received, stored string) bool {
	if received == "" || stored == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(received), []byte(stored)) == 1
}
