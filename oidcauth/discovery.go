package oidcauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
)

const (
	wellKnownPath   = "oauth/.well-known/openid-configuration"
	fallbackJWKSURI = "/oauth/jwks"

	maxResponseSize = 1 << 20
)

// ProviderMetadata is the provider's discovery document.
type ProviderMetadata struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri,omitempty"`
	EndSessionEndpoint               string   `json:"end_session_endpoint,omitempty"`
	ScopesSupported                  []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported           []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported              []string `json:"grant_types_supported,omitempty"`
	SubjectTypesSupported            []string `json:"subject_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
	CodeChallengeMethodsSupported    []string `json:"code_challenge_methods_supported,omitempty"`
	UILocalesSupported               []string `json:"ui_locales_supported,omitempty"`
}

// Provider is the result of initialization: the provider metadata and its signing keys.
type Provider struct {
	Metadata ProviderMetadata

	keys *KeySet
	oidc *gooidc.Provider
}

// Keys returns the provider's current signing keys.
func (p *Provider) Keys() []SigningKey { return p.keys.Keys() }

// WellKnownURL returns the discovery document location for an issuer base URL.
func WellKnownURL(issuer *url.URL) string {
	return resolve(issuer, wellKnownPath)
}

// DefaultJWKSURL returns the key set location used when the metadata has no jwks_uri.
func DefaultJWKSURL(issuer *url.URL) string {
	return resolve(issuer, fallbackJWKSURI)
}

func resolve(base *url.URL, ref string) string {
	b := *base
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}

	return b.ResolveReference(&url.URL{Path: ref}).String()
}

// FetchMetadata downloads the discovery document of the issuer.
func FetchMetadata(ctx context.Context, client *http.Client, issuer *url.URL) (*ProviderMetadata, error) {
	uri := WellKnownURL(issuer)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{URL: uri, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DiscoveryError{URL: uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var md ProviderMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&md); err != nil {
		return nil, &DiscoveryError{URL: uri, Err: fmt.Errorf("failed to decode provider metadata: %w", err)}
	}

	switch {
	case md.AuthorizationEndpoint == "":
		return nil, &DiscoveryError{URL: uri, Err: errors.New("provider metadata has no authorization_endpoint")}
	case md.TokenEndpoint == "":
		return nil, &DiscoveryError{URL: uri, Err: errors.New("provider metadata has no token_endpoint")}
	}

	return &md, nil
}

// Discover loads the provider metadata and signing keys for cfg.
func Discover(ctx context.Context, client *http.Client, cfg *ClientConfig, log zerolog.Logger) (*Provider, error) {
	mdCtx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()

	md, err := FetchMetadata(mdCtx, client, cfg.IssuerBaseURL)
	if err != nil {
		return nil, err
	}

	if md.Issuer == "" {
		md.Issuer = strings.TrimSuffix(cfg.IssuerBaseURL.String(), "/")
	}

	if md.JWKSURI == "" {
		md.JWKSURI = DefaultJWKSURL(cfg.IssuerBaseURL)
	}

	keys := newKeySet(md.JWKSURI, client, cfg.JWKSTimeout, log)
	if err := keys.load(ctx); err != nil {
		return nil, err
	}

	pc := gooidc.ProviderConfig{
		IssuerURL:   md.Issuer,
		AuthURL:     md.AuthorizationEndpoint,
		TokenURL:    md.TokenEndpoint,
		UserInfoURL: md.UserinfoEndpoint,
		JWKSURL:     md.JWKSURI,
		Algorithms:  []string{SigningAlgorithm},
	}

	log.Info().
		Str("issuer", md.Issuer).
		Str("jwks_uri", md.JWKSURI).
		Bool("end_session", md.EndSessionEndpoint != "").
		Msg("oidc provider discovered")

	return &Provider{
		Metadata: *md,
		keys:     keys,
		oidc:     pc.NewProvider(gooidc.ClientContext(ctx, client)),
	}, nil
}

// initializer runs discovery once and hands the shared result to every waiter.
type initializer struct {
	once     sync.Once
	done     chan struct{}
	provider *Provider
	err      error
}

func newInitializer() *initializer {
	return &initializer{done: make(chan struct{})}
}

func (i *initializer) start(fn func() (*Provider, error)) {
	i.once.Do(func() {
		go func() {
			defer close(i.done)

			i.provider, i.err = fn()
		}()
	})
}

// wait blocks until initialization finished or ctx is done.
// Cancelling ctx abandons the wait, not the initialization.
func (i *initializer) wait(ctx context.Context) (*Provider, error) {
	select {
	case <-i.done:
		return i.provider, i.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotInitialized, ctx.Err())
	}
}
