// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bnoidc/oidcfiber/oidcauth"
)

const (
	// JSONConfigEnv names the environment variable whose JSON content overrides the config file.
	JSONConfigEnv = "OIDCFIBER_CONFIG_JSON"

	mainConfigFile = "main.toml"

	defaultShutDownTime  = 5
	defaultCheckAliveURI = "/checkalive"
	defaultMetricsURI    = "/metrics"

	redacted = "[REDACTED]"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, mainConfigFile))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	if configAsJSON := os.Getenv(JSONConfigEnv); configAsJSON != "" {
		var err error

		if c, err = decodeAndMergeConfig(c, configAsJSON); err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	if err := json.Unmarshal([]byte(configAsJSON), &c); err != nil {
		return Config{}, errors.Wrapf(err, "failed to decode %s", JSONConfigEnv)
	}

	return c, nil
}

// DumpConfig config as TOML String. Secrets are redacted.
func DumpConfig(c *Config) (string, error) {
	b, err := toml.Marshal(redactSecrets(*c))
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(b), nil
}

// DumpConfigJSON config as JSON String. Secrets are redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(redactSecrets(*c)); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

func redactSecrets(c Config) Config {
	if c.OIDC.ClientSecret != "" {
		c.OIDC.ClientSecret = redacted
	}

	if c.OIDC.CookieSecret != "" {
		c.OIDC.CookieSecret = redacted
	}

	return c
}

// validate the settings the service can not start without and fill in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.OIDC.ClientID == "" {
		return errors.Wrap(ErrEmptyClientID, invalidErrMessage)
	}

	if c.OIDC.IssuerBaseURL == "" {
		return errors.Wrap(ErrEmptyIssuerBaseURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.CheckAliveURI == "" {
		c.Webserver.CheckAliveURI = defaultCheckAliveURI
	}

	if c.Webserver.MetricsURI == "" {
		c.Webserver.MetricsURI = defaultMetricsURI
	}

	return nil
}

// ToClientConfig converts the OIDC section into the middleware configuration.
// Logger, HTTP client and metrics registerer are left for the caller.
func (c *Config) ToClientConfig() (oidcauth.ClientConfig, error) {
	baseURL, err := parseURL("webserver.url", c.Webserver.URL)
	if err != nil {
		return oidcauth.ClientConfig{}, err
	}

	issuer, err := parseURL("oidc.issuerbaseurl", c.OIDC.IssuerBaseURL)
	if err != nil {
		return oidcauth.ClientConfig{}, err
	}

	cc := oidcauth.ClientConfig{
		ClientID:           c.OIDC.ClientID,
		ClientSecret:       oidcauth.ClientSecret(c.OIDC.ClientSecret),
		IssuerBaseURL:      issuer,
		BaseURL:            baseURL,
		LoginPath:          c.OIDC.LoginPath,
		LogoutPath:         c.OIDC.LogoutPath,
		LoginCallbackPath:  c.OIDC.LoginCallbackPath,
		LogoutCallbackPath: c.OIDC.LogoutCallbackPath,
		Locale:             c.OIDC.Locale,
		Scopes:             c.OIDC.Scopes,
		Prompts:            c.OIDC.Prompts,
		CookieSecret:       c.OIDC.CookieSecret,
		EntitlementsClaim:  c.OIDC.EntitlementsClaim,
		HTTPTimeout:        time.Duration(c.OIDC.HTTPTimeout) * time.Second,
		JWKSTimeout:        time.Duration(c.OIDC.JWKSTimeout) * time.Second,
	}

	if c.OIDC.CookieDomainURL != "" {
		if cc.CookieDomainURL, err = parseURL("oidc.cookiedomainurl", c.OIDC.CookieDomainURL); err != nil {
			return oidcauth.ClientConfig{}, err
		}
	}

	return cc, nil
}

func parseURL(key, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s is not a valid url", key)
	}

	return u, nil
}
