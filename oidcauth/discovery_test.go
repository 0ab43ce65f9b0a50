package oidcauth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnoidc/oidcfiber/oidcauth/oidctest"
)

func TestWellKnownURL(t *testing.T) {
	tests := []struct {
		issuer    string
		wellKnown string
		jwks      string
	}{
		{
			issuer:    "https://id.example",
			wellKnown: "https://id.example/oauth/.well-known/openid-configuration",
			jwks:      "https://id.example/oauth/jwks",
		},
		{
			issuer:    "https://id.example/",
			wellKnown: "https://id.example/oauth/.well-known/openid-configuration",
			jwks:      "https://id.example/oauth/jwks",
		},
		{
			issuer:    "https://id.example/tenant",
			wellKnown: "https://id.example/tenant/oauth/.well-known/openid-configuration",
			jwks:      "https://id.example/oauth/jwks",
		},
		{
			issuer:    "http://localhost:8080/tenant/",
			wellKnown: "http://localhost:8080/tenant/oauth/.well-known/openid-configuration",
			jwks:      "http://localhost:8080/oauth/jwks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.issuer, func(t *testing.T) {
			u := mustParseURL(t, tt.issuer)

			assert.Equal(t, tt.wellKnown, WellKnownURL(u))
			assert.Equal(t, tt.jwks, DefaultJWKSURL(u))
			assert.Equal(t, tt.issuer, u.String(), "issuer URL must not be modified")
		})
	}
}

func discoveryConfig(t *testing.T, tp *oidctest.Provider) *ClientConfig {
	t.Helper()

	cfg := testConfig(t, tp).withDefaults()

	return &cfg
}

func TestDiscover(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	tp := oidctest.NewProvider(t)

	p, err := Discover(context.Background(), tp.Client(), discoveryConfig(t, tp), zerolog.Nop())
	require.NoError(err)

	assert.Equal(tp.URL(), p.Metadata.Issuer)
	assert.Equal(tp.URL()+oidctest.AuthorizePath, p.Metadata.AuthorizationEndpoint)
	assert.Equal(tp.URL()+oidctest.TokenPath, p.Metadata.TokenEndpoint)
	assert.Equal(tp.URL()+oidctest.LogoutPath, p.Metadata.EndSessionEndpoint)
	assert.Equal(tp.URL()+oidctest.JWKSPath, p.Metadata.JWKSURI)
	assert.Contains(p.Metadata.CodeChallengeMethodsSupported, "S256")

	require.Len(p.Keys(), 1)
	assert.Equal(tp.KeyID(), p.Keys()[0].KeyID)

	assert.Equal(1, tp.DiscoveryRequests())
	assert.Equal(1, tp.JWKSRequests())
}

func TestDiscoverFallbackJWKSURI(t *testing.T) {
	tp := oidctest.NewProvider(t, oidctest.WithoutJWKSURI(), oidctest.WithoutEndSession())

	p, err := Discover(context.Background(), tp.Client(), discoveryConfig(t, tp), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, tp.URL()+oidctest.JWKSPath, p.Metadata.JWKSURI)
	assert.Empty(t, p.Metadata.EndSessionEndpoint)
	assert.Len(t, p.Keys(), 1)
}

func TestDiscoverFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "unavailable", status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)

			tp := oidctest.NewProvider(t, oidctest.WithDiscoveryStatus(tt.status))

			p, err := Discover(context.Background(), tp.Client(), discoveryConfig(t, tp), zerolog.Nop())
			require.Error(err)
			assert.Nil(p)
			assert.ErrorIs(err, ErrDiscovery)

			var de *DiscoveryError
			require.ErrorAs(err, &de)
			assert.Equal(tt.status, de.StatusCode)
			assert.Contains(err.Error(), "ID service responded with")
			assert.Equal(0, tp.JWKSRequests())
		})
	}
}

func TestDiscoverTimeout(t *testing.T) {
	tp := oidctest.NewProvider(t, oidctest.WithDiscoveryDelay(200*time.Millisecond))

	cfg := discoveryConfig(t, tp)
	cfg.HTTPTimeout = 20 * time.Millisecond

	_, err := Discover(context.Background(), tp.Client(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestInitializerRunsOnce(t *testing.T) {
	assert := assert.New(t)

	ini := newInitializer()
	want := &Provider{}
	calls := 0

	for range 3 {
		ini.start(func() (*Provider, error) {
			calls++

			return want, nil
		})
	}

	p, err := ini.wait(context.Background())
	assert.NoError(err)
	assert.Same(want, p)
	assert.Equal(1, calls)
}

func TestInitializerWaitCancelled(t *testing.T) {
	ini := newInitializer()
	release := make(chan struct{})
	defer close(release)

	ini.start(func() (*Provider, error) {
		<-release

		return &Provider{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := ini.wait(ctx)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, err, context.Canceled)
}
