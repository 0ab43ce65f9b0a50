package oidcauth

import (
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

// User is the identity derived from verified ID token claims.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// RequestContext is the per request authentication state. Handlers obtain it
// with FromContext once the middleware ran.
type RequestContext struct {
	// Config is shared by all requests and must not be modified.
	Config   *ClientConfig
	Provider *Provider
	// Tokens is nil when the request carries no token cookie.
	Tokens *TokenSet

	IsAuthenticated bool
	IDTokenClaims   Claims
	User            *User

	m *Middleware
	c *fiber.Ctx
}

// FromContext returns the request context stored by the middleware, or nil.
func FromContext(c *fiber.Ctx) *RequestContext {
	rc, _ := c.Locals(contextLocalsKey).(*RequestContext)

	return rc
}

// Login redirects the user to the provider's authorization endpoint.
func (rc *RequestContext) Login(opts LoginOptions) error {
	return rc.m.login(rc.c, rc, opts)
}

// LoginCallback completes a login started by Login.
func (rc *RequestContext) LoginCallback() error {
	return rc.m.loginCallback(rc.c, rc)
}

// Logout ends the session and redirects to the provider's end session endpoint.
func (rc *RequestContext) Logout(opts LogoutOptions) error {
	return rc.m.logout(rc.c, rc, opts)
}

// LogoutCallback completes a logout started by Logout.
func (rc *RequestContext) LogoutCallback() error {
	return rc.m.logoutCallback(rc.c, rc)
}

// Refresh renews the token set with the refresh token and stores the result.
func (rc *RequestContext) Refresh() error {
	return rc.m.refresh(rc.c, rc)
}

// Entitlements returns the entitlements claim of the verified ID token.
func (rc *RequestContext) Entitlements() []string {
	if !rc.IsAuthenticated {
		return nil
	}

	return rc.IDTokenClaims.Strings(rc.Config.EntitlementsClaim)
}

// UserInfo fetches the userinfo endpoint with the session's access token and
// decodes the response into v.
func (rc *RequestContext) UserInfo(v interface{}) error {
	if !rc.IsAuthenticated || rc.Tokens == nil {
		return &UnauthenticatedError{}
	}

	ctx := gooidc.ClientContext(rc.c.UserContext(), rc.m.client)

	info, err := rc.Provider.oidc.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: rc.Tokens.AccessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return err
	}

	return info.Claims(v)
}

func (rc *RequestContext) authenticate(claims Claims) {
	rc.IsAuthenticated = true
	rc.IDTokenClaims = claims
	rc.User = &User{ID: claims.Subject(), Email: claims.Email()}
}

func (rc *RequestContext) clear() {
	rc.Tokens = nil
	rc.IsAuthenticated = false
	rc.IDTokenClaims = nil
	rc.User = nil
}
