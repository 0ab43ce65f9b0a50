package oidcauth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Default values applied by New for every unset ClientConfig field.
const (
	DefaultLoginPath          = "/id/login"
	DefaultLogoutPath         = "/id/logout"
	DefaultLoginCallbackPath  = "/id/login/callback"
	DefaultLogoutCallbackPath = "/id/logout/callback"

	DefaultAuthParamsCookie = "bnoidcauthparams"
	DefaultTokensCookie     = "bnoidctokens"
	DefaultLogoutCookie     = "bnoidclogout"

	DefaultEntitlementsClaim = "ent"
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultJWKSTimeout       = 5 * time.Second

	// ScopeOpenID is always requested.
	ScopeOpenID = "openid"
)

// DefaultScopes are requested when ClientConfig.Scopes is nil.
func DefaultScopes() []string {
	return []string{ScopeOpenID, "entitlements", "offline_access"}
}

// ClientSecret is a string that never prints its value.
type ClientSecret string

const redacted = "[REDACTED]"

// String redacts the secret.
func (s ClientSecret) String() string {
	if s == "" {
		return ""
	}

	return redacted
}

// MarshalJSON redacts the secret.
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// CookieNames are the names of the three cookies the middleware owns.
type CookieNames struct {
	AuthParams string `validate:"required"`
	Tokens     string `validate:"required"`
	Logout     string `validate:"required"`
}

// PostLogoutCallback runs on the logout callback route after the state check.
// It may write its own response; when it does not, the user is redirected to
// the return path.
type PostLogoutCallback func(c *fiber.Ctx) error

// ClientConfig configures the relying party.
type ClientConfig struct {
	// ClientID is the OAuth2 client identifier registered with the provider.
	ClientID string
	// ClientSecret is optional; public clients rely on PKCE alone.
	ClientSecret ClientSecret
	// IssuerBaseURL is the provider base URL. Discovery reads
	// {IssuerBaseURL}/oauth/.well-known/openid-configuration.
	IssuerBaseURL *url.URL
	// BaseURL is the externally visible URL of this application.
	BaseURL *url.URL

	LoginPath          string
	LogoutPath         string
	LoginCallbackPath  string
	LogoutCallbackPath string

	// CookieDomainURL overrides the cookie domain and secure flag derived from BaseURL.
	CookieDomainURL *url.URL
	// Locale is sent to the provider as ui_locales when set.
	Locale string
	// Scopes requested on login. openid is always added.
	Scopes []string
	// Prompts sent on every login, e.g. "login" or "consent".
	Prompts []string
	Cookies CookieNames
	// CookieSecret seals cookie values with AES-GCM when set.
	CookieSecret string
	// EntitlementsClaim names the ID token claim holding the user's entitlements.
	EntitlementsClaim string

	// HTTPTimeout bounds discovery and token endpoint requests.
	HTTPTimeout time.Duration
	// JWKSTimeout bounds signing key fetches.
	JWKSTimeout time.Duration
	// HTTPClient replaces the pooled client used for all provider calls.
	HTTPClient *http.Client

	PostLogoutCallback PostLogoutCallback
	Logger             *zerolog.Logger
	// Registerer receives the middleware's metrics. A private registry is used when nil.
	Registerer prometheus.Registerer
}

// withDefaults returns a copy of c with defaults filled in and the scopes normalized.
func (c ClientConfig) withDefaults() ClientConfig {
	setDefault(&c.LoginPath, DefaultLoginPath)
	setDefault(&c.LogoutPath, DefaultLogoutPath)
	setDefault(&c.LoginCallbackPath, DefaultLoginCallbackPath)
	setDefault(&c.LogoutCallbackPath, DefaultLogoutCallbackPath)
	setDefault(&c.Cookies.AuthParams, DefaultAuthParamsCookie)
	setDefault(&c.Cookies.Tokens, DefaultTokensCookie)
	setDefault(&c.Cookies.Logout, DefaultLogoutCookie)
	setDefault(&c.EntitlementsClaim, DefaultEntitlementsClaim)

	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}

	if c.JWKSTimeout <= 0 {
		c.JWKSTimeout = DefaultJWKSTimeout
	}

	if c.Scopes == nil {
		c.Scopes = DefaultScopes()
	}

	c.Scopes = union([]string{ScopeOpenID}, c.Scopes)
	c.Prompts = union(nil, c.Prompts)

	return c
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// union appends the values of every set to base, skipping blanks and duplicates.
func union(base []string, sets ...[]string) []string {
	out := make([]string, 0, len(base))
	seen := make(map[string]struct{})

	for _, set := range append([][]string{base}, sets...) {
		for _, v := range set {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}

			if _, ok := seen[v]; ok {
				continue
			}

			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}

type configValidation struct {
	ClientID           string `validate:"required"`
	IssuerBaseURL      string `validate:"required,http_url"`
	BaseURL            string `validate:"required,http_url"`
	CookieDomainURL    string `validate:"omitempty,http_url"`
	LoginPath          string `validate:"required,startswith=/"`
	LogoutPath         string `validate:"required,startswith=/"`
	LoginCallbackPath  string `validate:"required,startswith=/"`
	LogoutCallbackPath string `validate:"required,startswith=/"`
	EntitlementsClaim  string `validate:"required"`
	Cookies            CookieNames
}

// Validate checks that the configuration is usable. Defaults are not applied.
func (c ClientConfig) Validate() error {
	v := configValidation{
		ClientID:           c.ClientID,
		IssuerBaseURL:      urlString(c.IssuerBaseURL),
		BaseURL:            urlString(c.BaseURL),
		CookieDomainURL:    urlString(c.CookieDomainURL),
		LoginPath:          c.LoginPath,
		LogoutPath:         c.LogoutPath,
		LoginCallbackPath:  c.LoginCallbackPath,
		LogoutCallbackPath: c.LogoutCallbackPath,
		EntitlementsClaim:  c.EntitlementsClaim,
		Cookies:            c.Cookies,
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(v); err != nil {
		return &SetupError{Err: err}
	}

	return nil
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}

	return u.String()
}
