package oidcauth

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// LogoutOptions adjust a single logout request.
type LogoutOptions struct {
	// ReturnPath is where the user lands after the logout callback. Defaults to "/".
	ReturnPath string
}

// EndSessionURLOptions are the inputs of BuildEndSessionURL.
type EndSessionURLOptions struct {
	EndSessionEndpoint    string
	ClientID              string
	PostLogoutRedirectURI string
	State                 string
	IDTokenHint           string
}

// BuildEndSessionURL returns the RP initiated logout URL. id_token_hint is
// only present when set.
func BuildEndSessionURL(o EndSessionURLOptions) (string, error) {
	u, err := url.Parse(o.EndSessionEndpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("client_id", o.ClientID)
	q.Set("post_logout_redirect_uri", o.PostLogoutRedirectURI)
	q.Set("state", o.State)

	if o.IDTokenHint != "" {
		q.Set("id_token_hint", o.IDTokenHint)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// logout clears the session cookies and sends the user to the provider. The
// logout state is kept for the callback. Without an end session endpoint the
// user is redirected to the return path directly.
func (m *Middleware) logout(c *fiber.Ctx, rc *RequestContext, opts LogoutOptions) error {
	returnPath := SanitizeReturnPath(opts.ReturnPath)

	var idTokenHint string
	if rc.Tokens != nil {
		idTokenHint = rc.Tokens.IDToken
	}

	m.cookies.unsetAuthParams(c)
	m.cookies.unsetTokens(c)
	rc.clear()
	m.metrics.logouts.Inc()

	endpoint := rc.Provider.Metadata.EndSessionEndpoint
	if endpoint == "" {
		m.log.Debug().Msg("provider has no end session endpoint, logging out locally")

		return c.Redirect(returnPath, fiber.StatusFound)
	}

	state := GenerateState()

	logoutURL, err := BuildEndSessionURL(EndSessionURLOptions{
		EndSessionEndpoint:    endpoint,
		ClientID:              m.cfg.ClientID,
		PostLogoutRedirectURI: m.callbackURL(m.cfg.LogoutCallbackPath, returnPath),
		State:                 state,
		IDTokenHint:           idTokenHint,
	})
	if err != nil {
		return err
	}

	if err := m.cookies.setLogoutState(c, LogoutState{State: state}); err != nil {
		return err
	}

	return c.Redirect(logoutURL, fiber.StatusFound)
}

// logoutCallback checks the logout state, runs the post logout callback and
// redirects to the return path. The logout cookie is cleared on every path.
func (m *Middleware) logoutCallback(c *fiber.Ctx, _ *RequestContext) error {
	defer m.cookies.unsetLogoutState(c)

	stored, _ := m.cookies.logoutState(c)

	if state := c.Query("state"); state != "" && !equalState(state, stored.State) {
		m.log.Warn().Msg("logout callback state mismatch")

		return c.Redirect("/", fiber.StatusFound)
	}

	returnPath := SanitizeReturnPath(c.Query(returnPathParam))

	if cb := m.cfg.PostLogoutCallback; cb != nil {
		if err := cb(c); err != nil {
			return err
		}

		if responded(c) {
			return nil
		}
	}

	return c.Redirect(returnPath, fiber.StatusFound)
}

// responded reports whether a handler already produced a redirect or a body.
func responded(c *fiber.Ctx) bool {
	resp := c.Response()

	if resp.StatusCode() >= fiber.StatusMultipleChoices && len(resp.Header.Peek(fiber.HeaderLocation)) > 0 {
		return true
	}

	return len(resp.Body()) > 0
}
