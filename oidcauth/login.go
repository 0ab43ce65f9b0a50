package oidcauth

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
)

const returnPathParam = "return-path"

// LoginOptions adjust a single login request.
type LoginOptions struct {
	// ReturnPath is where the user lands after the callback. Defaults to "/".
	ReturnPath string
	// Scopes are requested in addition to the configured scopes.
	Scopes []string
	// Prompts are sent in addition to the configured prompts.
	Prompts []string
}

// AuthorizationURLOptions are the inputs of BuildAuthorizationURL.
type AuthorizationURLOptions struct {
	AuthorizationEndpoint string
	ClientID              string
	RedirectURI           string
	State                 string
	Nonce                 string
	CodeChallenge         string
	Locale                string
	Scopes                []string
	Prompts               []string
}

// BuildAuthorizationURL returns the authorization request URL for the code
// flow with an S256 code challenge. prompt and ui_locales are only present
// when set.
func BuildAuthorizationURL(o AuthorizationURLOptions) string {
	conf := oauth2.Config{
		ClientID:    o.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: o.AuthorizationEndpoint},
		RedirectURL: o.RedirectURI,
		Scopes:      o.Scopes,
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", o.Nonce),
		oauth2.SetAuthURLParam("code_challenge", o.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}

	if len(o.Prompts) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", strings.Join(o.Prompts, " ")))
	}

	if o.Locale != "" {
		opts = append(opts, oauth2.SetAuthURLParam("ui_locales", o.Locale))
	}

	return conf.AuthCodeURL(o.State, opts...)
}

// SanitizeReturnPath returns p when it is a local absolute path and "/" otherwise.
func SanitizeReturnPath(p string) string {
	if p == "" || p[0] != '/' || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}

	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}

	return p
}

// callbackURL returns {BaseURL}{path}?return-path={returnPath}.
func (m *Middleware) callbackURL(path, returnPath string) string {
	u := *m.cfg.BaseURL
	u.Path = path
	u.RawPath = ""
	u.RawQuery = url.Values{returnPathParam: {returnPath}}.Encode()
	u.Fragment = ""

	return u.String()
}

func (m *Middleware) login(c *fiber.Ctx, rc *RequestContext, opts LoginOptions) error {
	returnPath := SanitizeReturnPath(opts.ReturnPath)

	params := AuthParams{
		State:        GenerateState(),
		Nonce:        GenerateNonce(),
		CodeVerifier: GenerateCodeVerifier(),
	}

	if err := m.cookies.setAuthParams(c, params); err != nil {
		return err
	}

	authURL := BuildAuthorizationURL(AuthorizationURLOptions{
		AuthorizationEndpoint: rc.Provider.Metadata.AuthorizationEndpoint,
		ClientID:              m.cfg.ClientID,
		RedirectURI:           m.callbackURL(m.cfg.LoginCallbackPath, returnPath),
		State:                 params.State,
		Nonce:                 params.Nonce,
		CodeChallenge:         GenerateCodeChallenge(params.CodeVerifier),
		Locale:                m.cfg.Locale,
		Scopes:                union([]string{ScopeOpenID}, m.cfg.Scopes, opts.Scopes),
		Prompts:               union(m.cfg.Prompts, opts.Prompts),
	})

	m.metrics.logins.Inc()
	m.log.Debug().Str("return_path", returnPath).Strs("prompts", opts.Prompts).Msg("redirecting to provider for login")

	return c.Redirect(authURL, fiber.StatusFound)
}
