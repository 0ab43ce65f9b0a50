// Package oidctest provides an in-process OpenID provider for tests.
//
// The provider serves discovery, JWKS, authorization, token, userinfo and end
// session endpoints under /oauth on an httptest server, signs ID tokens with a
// freshly generated RSA key and counts the requests it receives.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/bnoidc/oidcfiber/internal/uniuri"
)

// Endpoint paths served by Provider.
const (
	WellKnownPath = "/oauth/.well-known/openid-configuration"
	JWKSPath      = "/oauth/jwks"
	AuthorizePath = "/oauth/authorize"
	TokenPath     = "/oauth/token"
	UserInfoPath  = "/oauth/userinfo"
	LogoutPath    = "/oauth/logout"

	DefaultClientID = "test-client"
	DefaultSubject  = "alice"
	DefaultEmail    = "alice@example.com"
)

// Tokens is a token endpoint response.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

type authRequest struct {
	redirectURI string
	nonce       string
	challenge   string
}

type signingKey struct {
	kid string
	key *rsa.PrivateKey
}

// Provider is a minimal OpenID provider backed by an httptest server.
type Provider struct {
	t      testing.TB
	server *httptest.Server

	clientID     string
	clientSecret string
	idTokenTTL   time.Duration

	discoveryDelay  time.Duration
	discoveryStatus int
	withEndSession  bool
	withJWKSURI     bool
	staticRefresh   bool

	mu            sync.Mutex
	key           signingKey
	published     []signingKey
	subject       string
	email         string
	entitlements  []string
	codes         map[string]authRequest
	refreshTokens map[string]string
	tokenStatus   int
	tokenBody     string
	lastTokenForm url.Values

	discoveryRequests atomic.Int64
	jwksRequests      atomic.Int64
	tokenRequests     atomic.Int64
	logoutRequests    atomic.Int64
}

// Option configures a Provider.
type Option func(p *Provider)

// WithClientID sets the only client the provider accepts.
func WithClientID(id string) Option {
	return func(p *Provider) { p.clientID = id }
}

// WithClientSecret makes the token endpoint require a client secret.
func WithClientSecret(secret string) Option {
	return func(p *Provider) { p.clientSecret = secret }
}

// WithIDTokenTTL sets the lifetime of issued ID tokens.
func WithIDTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) { p.idTokenTTL = ttl }
}

// WithDiscoveryDelay delays discovery responses.
func WithDiscoveryDelay(d time.Duration) Option {
	return func(p *Provider) { p.discoveryDelay = d }
}

// WithDiscoveryStatus makes discovery fail with the given status.
func WithDiscoveryStatus(status int) Option {
	return func(p *Provider) { p.discoveryStatus = status }
}

// WithoutEndSession removes end_session_endpoint from the metadata.
func WithoutEndSession() Option {
	return func(p *Provider) { p.withEndSession = false }
}

// WithoutJWKSURI removes jwks_uri from the metadata.
func WithoutJWKSURI() Option {
	return func(p *Provider) { p.withJWKSURI = false }
}

// WithStaticRefreshTokens keeps refresh tokens valid after use. Refresh
// grants answer with the presented refresh token instead of a new one.
func WithStaticRefreshTokens() Option {
	return func(p *Provider) { p.staticRefresh = true }
}

// NewProvider starts a provider that is shut down when the test ends.
func NewProvider(t testing.TB, opts ...Option) *Provider {
	t.Helper()

	p := &Provider{
		t:              t,
		clientID:       DefaultClientID,
		idTokenTTL:     time.Hour,
		withEndSession: true,
		withJWKSURI:    true,
		subject:        DefaultSubject,
		email:          DefaultEmail,
		codes:          make(map[string]authRequest),
		refreshTokens:  make(map[string]string),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.key = newSigningKey(t)
	p.published = []signingKey{p.key}

	mux := http.NewServeMux()
	mux.HandleFunc(WellKnownPath, p.handleDiscovery)
	mux.HandleFunc(JWKSPath, p.handleJWKS)
	mux.HandleFunc(AuthorizePath, p.handleAuthorize)
	mux.HandleFunc(TokenPath, p.handleToken)
	mux.HandleFunc(UserInfoPath, p.handleUserInfo)
	mux.HandleFunc(LogoutPath, p.handleLogout)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)

	return p
}

func newSigningKey(t testing.TB) signingKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("oidctest: failed to generate key: %v", err)
	}

	return signingKey{kid: uniuri.NewLen(8), key: key}
}

// URL returns the issuer URL.
func (p *Provider) URL() string { return p.server.URL }

// IssuerURL returns the issuer URL parsed.
func (p *Provider) IssuerURL() *url.URL {
	u, _ := url.Parse(p.server.URL)

	return u
}

// ClientID returns the accepted client id.
func (p *Provider) ClientID() string { return p.clientID }

// Client returns an HTTP client that does not follow redirects.
func (p *Provider) Client() *http.Client {
	c := p.server.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return c
}

// SetUser changes the subject, email and entitlements of issued tokens.
func (p *Provider) SetUser(subject, email string, entitlements ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subject, p.email, p.entitlements = subject, email, entitlements
}

// SetTokenError makes the token endpoint answer every request with status and body.
// A zero status restores normal operation.
func (p *Provider) SetTokenError(status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tokenStatus, p.tokenBody = status, body
}

// RotateKey replaces the signing key. The old key is no longer published.
func (p *Provider) RotateKey() {
	key := newSigningKey(p.t)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.key = key
	p.published = []signingKey{key}
}

// KeyID returns the id of the current signing key.
func (p *Provider) KeyID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.key.kid
}

// DiscoveryRequests returns the number of discovery requests served.
func (p *Provider) DiscoveryRequests() int { return int(p.discoveryRequests.Load()) }

// JWKSRequests returns the number of key set requests served.
func (p *Provider) JWKSRequests() int { return int(p.jwksRequests.Load()) }

// TokenRequests returns the number of token requests served.
func (p *Provider) TokenRequests() int { return int(p.tokenRequests.Load()) }

// LogoutRequests returns the number of end session requests served.
func (p *Provider) LogoutRequests() int { return int(p.logoutRequests.Load()) }

// LastTokenRequest returns the form of the most recent token request.
func (p *Provider) LastTokenRequest() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lastTokenForm
}

// Metadata returns the discovery document.
func (p *Provider) Metadata() map[string]interface{} {
	md := map[string]interface{}{
		"issuer":                                p.URL(),
		"authorization_endpoint":                p.URL() + AuthorizePath,
		"token_endpoint":                        p.URL() + TokenPath,
		"userinfo_endpoint":                     p.URL() + UserInfoPath,
		"scopes_supported":                      []string{"openid", "entitlements", "offline_access", "email"},
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
	}

	if p.withJWKSURI {
		md["jwks_uri"] = p.URL() + JWKSPath
	}

	if p.withEndSession {
		md["end_session_endpoint"] = p.URL() + LogoutPath
	}

	return md
}

// SignIDToken signs claims with the current key. iss, aud, iat and exp are
// filled in unless present.
func (p *Provider) SignIDToken(claims jwt.MapClaims) string {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()

	return p.sign(key, claims)
}

// SignIDTokenWithKey signs claims with a key the provider never publishes.
func (p *Provider) SignIDTokenWithKey(key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	return p.sign(signingKey{kid: kid, key: key}, claims)
}

func (p *Provider) sign(key signingKey, claims jwt.MapClaims) string {
	p.t.Helper()

	now := time.Now()
	out := jwt.MapClaims{
		"iss": p.URL(),
		"aud": p.clientID,
		"iat": now.Unix(),
		"exp": now.Add(p.idTokenTTL).Unix(),
	}

	for k, v := range claims {
		out[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, out)
	tok.Header["kid"] = key.kid

	signed, err := tok.SignedString(key.key)
	if err != nil {
		p.t.Fatalf("oidctest: failed to sign token: %v", err)
	}

	return signed
}

// IssueTokens returns a token set for the current user as if a login had
// completed. The refresh token is accepted by the token endpoint.
func (p *Provider) IssueTokens(extra jwt.MapClaims) Tokens {
	p.mu.Lock()
	claims := p.userClaims()
	p.mu.Unlock()

	for k, v := range extra {
		claims[k] = v
	}

	return p.issue(claims)
}

// userClaims must be called with p.mu held.
func (p *Provider) userClaims() jwt.MapClaims {
	claims := jwt.MapClaims{"sub": p.subject}
	if p.email != "" {
		claims["email"] = p.email
	}

	if len(p.entitlements) > 0 {
		claims["ent"] = p.entitlements
	}

	return claims
}

func (p *Provider) issue(claims jwt.MapClaims) Tokens {
	refresh := uniuri.New()

	p.mu.Lock()
	p.refreshTokens[refresh] = claims["sub"].(string)
	p.mu.Unlock()

	return Tokens{
		AccessToken:  uniuri.New(),
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.idTokenTTL / time.Second),
		RefreshToken: refresh,
		IDToken:      p.SignIDToken(claims),
	}
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	p.discoveryRequests.Add(1)

	if p.discoveryDelay > 0 {
		time.Sleep(p.discoveryDelay)
	}

	if p.discoveryStatus != 0 {
		http.Error(w, http.StatusText(p.discoveryStatus), p.discoveryStatus)

		return
	}

	writeJSON(w, http.StatusOK, p.Metadata())
}

func (p *Provider) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	p.jwksRequests.Add(1)

	p.mu.Lock()
	set := jose.JSONWebKeySet{}
	for _, k := range p.published {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       &k.key.PublicKey,
			KeyID:     k.kid,
			Algorithm: "RS256",
			Use:       "sig",
		})
	}
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, set)
}

func (p *Provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("client_id") != p.clientID:
		http.Error(w, "unknown client", http.StatusBadRequest)

		return
	case q.Get("response_type") != "code", q.Get("code_challenge_method") != "S256":
		http.Error(w, "unsupported request", http.StatusBadRequest)

		return
	}

	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirect.Host == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)

		return
	}

	code := uniuri.New()

	p.mu.Lock()
	p.codes[code] = authRequest{
		redirectURI: q.Get("redirect_uri"),
		nonce:       q.Get("nonce"),
		challenge:   q.Get("code_challenge"),
	}
	p.mu.Unlock()

	rq := redirect.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	redirect.RawQuery = rq.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenRequests.Add(1)

	if err := r.ParseForm(); err != nil {
		tokenError(w, "invalid_request")

		return
	}

	p.mu.Lock()
	p.lastTokenForm = r.PostForm
	status, body := p.tokenStatus, p.tokenBody
	p.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))

		return
	}

	if r.PostForm.Get("client_id") != p.clientID ||
		(p.clientSecret != "" && r.PostForm.Get("client_secret") != p.clientSecret) {
		tokenError(w, "invalid_client")

		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.exchangeCode(w, r.PostForm)
	case "refresh_token":
		p.exchangeRefreshToken(w, r.PostForm)
	default:
		tokenError(w, "unsupported_grant_type")
	}
}

func (p *Provider) exchangeCode(w http.ResponseWriter, form url.Values) {
	p.mu.Lock()
	req, ok := p.codes[form.Get("code")]
	delete(p.codes, form.Get("code"))
	claims := p.userClaims()
	p.mu.Unlock()

	switch {
	case !ok, req.redirectURI != form.Get("redirect_uri"):
		tokenError(w, "invalid_grant")

		return
	case oauth2.S256ChallengeFromVerifier(form.Get("code_verifier")) != req.challenge:
		tokenError(w, "invalid_grant")

		return
	}

	if req.nonce != "" {
		claims["nonce"] = req.nonce
	}

	writeJSON(w, http.StatusOK, p.issue(claims))
}

func (p *Provider) exchangeRefreshToken(w http.ResponseWriter, form url.Values) {
	presented := form.Get("refresh_token")

	p.mu.Lock()
	sub, ok := p.refreshTokens[presented]
	if !p.staticRefresh {
		delete(p.refreshTokens, presented)
	}
	claims := p.userClaims()
	p.mu.Unlock()

	if !ok {
		tokenError(w, "invalid_grant")

		return
	}

	claims["sub"] = sub

	tokens := p.issue(claims)
	if p.staticRefresh {
		p.mu.Lock()
		delete(p.refreshTokens, tokens.RefreshToken)
		p.mu.Unlock()

		tokens.RefreshToken = presented
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (p *Provider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	p.mu.Lock()
	info := map[string]interface{}{"sub": p.subject, "email": p.email}
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, info)
}

func (p *Provider) handleLogout(w http.ResponseWriter, r *http.Request) {
	p.logoutRequests.Add(1)

	q := r.URL.Query()
	if q.Get("client_id") != p.clientID {
		http.Error(w, "unknown client", http.StatusBadRequest)

		return
	}

	redirect, err := url.Parse(q.Get("post_logout_redirect_uri"))
	if err != nil || redirect.Host == "" {
		http.Error(w, "invalid post_logout_redirect_uri", http.StatusBadRequest)

		return
	}

	rq := redirect.Query()
	rq.Set("state", q.Get("state"))
	redirect.RawQuery = rq.Encode()

	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func tokenError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
