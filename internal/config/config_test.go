package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
title = "test"

[webserver]
port = 3000
url = "https://app.example"

[oidc]
clientid = "client"
clientsecret = "shhh"
cookiesecret = "cookie shhh"
issuerbaseurl = "https://id.example"
scopes = ["email"]
httptimeout = 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, mainConfigFile), []byte(content), 0o600))

	return dir
}

func TestReadConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ReadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal("test", cfg.Title)
	assert.Equal(3000, cfg.Webserver.Port)
	assert.Equal("https://app.example", cfg.Webserver.URL)
	assert.Equal("client", cfg.OIDC.ClientID)
	assert.Equal("shhh", cfg.OIDC.ClientSecret)
	assert.Equal([]string{"email"}, cfg.OIDC.Scopes)

	// defaults
	assert.Equal(defaultShutDownTime, cfg.Webserver.ShutDownTime)
	assert.Equal(defaultCheckAliveURI, cfg.Webserver.CheckAliveURI)
	assert.Equal(defaultMetricsURI, cfg.Webserver.MetricsURI)
}

func TestReadConfigSample(t *testing.T) {
	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	cfg, err := ReadConfig(filepath.Join(projectRoot, "etc") + string(filepath.Separator))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Title)
	assert.NotEmpty(t, cfg.OIDC.ClientID)
	assert.NotEmpty(t, cfg.Demo.PremiumEntitlements)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestReadConfigJSONOverride(t *testing.T) {
	assert := assert.New(t)

	t.Setenv(JSONConfigEnv, `{"Webserver":{"Port":8443},"OIDC":{"ClientSecret":"from env"}}`)

	cfg, err := ReadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(8443, cfg.Webserver.Port)
	assert.Equal("from env", cfg.OIDC.ClientSecret)
	// untouched values survive the merge
	assert.Equal("client", cfg.OIDC.ClientID)
}

func TestReadConfigInvalidJSONOverride(t *testing.T) {
	t.Setenv(JSONConfigEnv, `{"Webserver":`)

	_, err := ReadConfig(writeConfig(t, minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), JSONConfigEnv)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Webserver: Webserver{Port: 3000, URL: "https://app.example"},
			OIDC:      OIDC{ClientID: "client", IssuerBaseURL: "https://id.example"},
		}
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{name: "valid", modify: func(c *Config) {}},
		{name: "zero port", modify: func(c *Config) { c.Webserver.Port = 0 }, wantErr: ErrWebServerPortCanNotBeZero},
		{name: "empty url", modify: func(c *Config) { c.Webserver.URL = "" }, wantErr: ErrEmptyURL},
		{name: "empty client id", modify: func(c *Config) { c.OIDC.ClientID = "" }, wantErr: ErrEmptyClientID},
		{name: "empty issuer", modify: func(c *Config) { c.OIDC.IssuerBaseURL = "" }, wantErr: ErrEmptyIssuerBaseURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(&c)

			err := validate(&c)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	c := Config{
		Webserver: Webserver{Port: 1, URL: "https://app.example", ShutDownTime: 9, CheckAliveURI: "/up", MetricsURI: "/m"},
		OIDC:      OIDC{ClientID: "client", IssuerBaseURL: "https://id.example"},
	}

	require.NoError(t, validate(&c))

	assert.Equal(t, 9, c.Webserver.ShutDownTime)
	assert.Equal(t, "/up", c.Webserver.CheckAliveURI)
	assert.Equal(t, "/m", c.Webserver.MetricsURI)
}

func TestDumpConfigRedactsSecrets(t *testing.T) {
	cfg, err := ReadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	dumps := map[string]func(*Config) (string, error){
		"toml": DumpConfig,
		"json": DumpConfigJSON,
	}

	for name, dump := range dumps {
		t.Run(name, func(t *testing.T) {
			out, err := dump(&cfg)
			require.NoError(t, err)

			assert.NotContains(t, out, "shhh")
			assert.Contains(t, out, redacted)
			assert.Contains(t, out, "https://id.example")
		})
	}

	// the original is untouched
	assert.Equal(t, "shhh", cfg.OIDC.ClientSecret)
}

func TestToClientConfig(t *testing.T) {
	assert := assert.New(t)

	cfg, err := ReadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.OIDC.CookieDomainURL = "https://example"

	cc, err := cfg.ToClientConfig()
	require.NoError(t, err)

	assert.Equal("client", cc.ClientID)
	assert.Equal("shhh", string(cc.ClientSecret))
	assert.Equal("https://id.example", cc.IssuerBaseURL.String())
	assert.Equal("https://app.example", cc.BaseURL.String())
	assert.Equal("https://example", cc.CookieDomainURL.String())
	assert.Equal("cookie shhh", cc.CookieSecret)
	assert.Equal(3*time.Second, cc.HTTPTimeout)
	assert.Zero(cc.JWKSTimeout)
}

func TestToClientConfigInvalidURL(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{name: "base url", modify: func(c *Config) { c.Webserver.URL = "://app" }},
		{name: "issuer", modify: func(c *Config) { c.OIDC.IssuerBaseURL = "://id" }},
		{name: "cookie domain", modify: func(c *Config) { c.OIDC.CookieDomainURL = "://cookie" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{
				Webserver: Webserver{URL: "https://app.example"},
				OIDC:      OIDC{IssuerBaseURL: "https://id.example"},
			}
			tt.modify(&c)

			_, err := c.ToClientConfig()
			assert.Error(t, err)
		})
	}
}
