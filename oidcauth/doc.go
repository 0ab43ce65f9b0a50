// Package oidcauth implements an OpenID Connect relying party for Fiber applications.
//
// The middleware runs the authorization code flow with PKCE against a provider
// discovered from its issuer URL, verifies ID tokens against the provider's
// published signing keys and keeps all session state in cookies.
//
// # Request pipeline
//
// Register mounts a handler chain on a fiber.Router:
//   - ensureInitialized waits for discovery and the signing key fetch
//   - requestContext decodes the token cookie into a RequestContext
//   - idToken verifies the current ID token, refreshing it once when possible
//   - queryParams reacts to the idlogin and idrefresh query parameters
//
// followed by the login, login callback, logout and logout callback routes.
//
// # Authorization
//
// IsAuthenticated and IsEntitled are route guards. They never redirect; they
// return UnauthenticatedError or UnauthorizedError and leave the response to
// the application's error handler. StatusCode maps every error of this package
// to an HTTP status.
//
// Example usage:
//
//	mw, err := oidcauth.New(ctx, oidcauth.ClientConfig{
//	    ClientID:      "my-client",
//	    IssuerBaseURL: issuer,
//	    BaseURL:       base,
//	})
//	if err != nil {
//	    return err
//	}
//
//	app := fiber.New(fiber.Config{ErrorHandler: myErrorHandler})
//	mw.Register(app)
//	app.Get("/me", oidcauth.IsAuthenticated(), profileHandler)
//	app.Get("/premium", oidcauth.IsEntitled("premium"), premiumHandler)
package oidcauth
