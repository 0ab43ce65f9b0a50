package config

import (
	"github.com/bnoidc/oidcfiber/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool       `mapstructure:"devmode" toml:"devmode"` // enable dev mode for development
	Title     string     `mapstructure:"title" toml:"title"`
	Log       logger.Log `mapstructure:"log" toml:"log"`
	Webserver Webserver  `mapstructure:"webserver" toml:"webserver"`
	OIDC      OIDC       `mapstructure:"oidc" toml:"oidc"`
	Demo      DemoRoutes `mapstructure:"demo" toml:"demo"`
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   `mapstructure:"disablerecover" toml:"disablerecover"` // disable recover middleware
	Address        string `mapstructure:"address" toml:"address"`               // listening address, empty for all interfaces
	Port           int    `mapstructure:"port" toml:"port"`                     // listening port for the webserver
	ShutDownTime   int    `mapstructure:"shutdowntime" toml:"shutdowntime"`     // wait time for shutdown in seconds
	URL            string `mapstructure:"url" toml:"url"`                       // externally visible base url
	CheckAliveURI  string `mapstructure:"checkaliveuri" toml:"checkaliveuri"`   // health endpoint, also excluded from access logs
	MetricsURI     string `mapstructure:"metricsuri" toml:"metricsuri"`         // prometheus endpoint
}

// OIDC holds the relying party settings.
type OIDC struct {
	ClientID          string   `mapstructure:"clientid" toml:"clientid"`
	ClientSecret      string   `mapstructure:"clientsecret" toml:"clientsecret"`
	IssuerBaseURL     string   `mapstructure:"issuerbaseurl" toml:"issuerbaseurl"`
	CookieDomainURL   string   `mapstructure:"cookiedomainurl" toml:"cookiedomainurl"`
	CookieSecret      string   `mapstructure:"cookiesecret" toml:"cookiesecret"`
	Locale            string   `mapstructure:"locale" toml:"locale"`
	Scopes            []string `mapstructure:"scopes" toml:"scopes"`
	Prompts           []string `mapstructure:"prompts" toml:"prompts"`
	EntitlementsClaim string   `mapstructure:"entitlementsclaim" toml:"entitlementsclaim"`

	LoginPath          string `mapstructure:"loginpath" toml:"loginpath"`
	LogoutPath         string `mapstructure:"logoutpath" toml:"logoutpath"`
	LoginCallbackPath  string `mapstructure:"logincallbackpath" toml:"logincallbackpath"`
	LogoutCallbackPath string `mapstructure:"logoutcallbackpath" toml:"logoutcallbackpath"`

	HTTPTimeout int `mapstructure:"httptimeout" toml:"httptimeout"` // seconds
	JWKSTimeout int `mapstructure:"jwkstimeout" toml:"jwkstimeout"` // seconds
}

// DemoRoutes configures the protected example routes.
type DemoRoutes struct {
	// PremiumEntitlements are required on /premium.
	PremiumEntitlements []string `mapstructure:"premiumentitlements" toml:"premiumentitlements"`
}
