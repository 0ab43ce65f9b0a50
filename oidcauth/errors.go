package oidcauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrSetup is returned when the client configuration is incomplete or malformed.
	ErrSetup = errors.New("oidc client config is invalid")

	// ErrDiscovery is returned when the provider metadata or signing keys could not be loaded.
	ErrDiscovery = errors.New("oidc discovery failed")

	// ErrNotInitialized is returned when a request gave up waiting for initialization.
	ErrNotInitialized = errors.New("oidc provider is not initialized")

	// ErrInvalidState is returned when a callback state does not match the stored state.
	ErrInvalidState = errors.New("invalid state parameter")

	// ErrInvalidIDToken is returned when an ID token fails verification.
	ErrInvalidIDToken = errors.New("invalid id token")

	// ErrTokenExpired is returned when an ID token is correctly signed but expired.
	ErrTokenExpired = errors.New("id token is expired")

	// ErrTokenRequest is returned when the token endpoint rejects a request.
	ErrTokenRequest = errors.New("token request failed")

	// ErrRefresh is returned when a session could not be renewed.
	ErrRefresh = errors.New("failed to refresh tokens")

	// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token found")

	// ErrAuthorization is returned when the provider reports an error on the login callback.
	ErrAuthorization = errors.New("authorization request was rejected")

	// ErrUnauthenticated is returned by the route guards when no verified session exists.
	ErrUnauthenticated = errors.New("user is not logged in")

	// ErrUnauthorized is returned by the route guards when entitlements are missing.
	ErrUnauthorized = errors.New("user is not entitled")
)

// SetupError reports an invalid ClientConfig.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return "oidc client config is missing required parameters: " + e.Err.Error()
}

func (e *SetupError) Unwrap() error        { return e.Err }
func (e *SetupError) Is(target error) bool { return target == ErrSetup }

// DiscoveryError reports a failed metadata or key set fetch.
// StatusCode is zero when the provider could not be reached at all.
type DiscoveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DiscoveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("oidc discovery failed: ID service responded with %d", e.StatusCode)
	}

	return "oidc discovery failed: " + e.Err.Error()
}

func (e *DiscoveryError) Unwrap() error        { return e.Err }
func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }

// InvalidStateError reports a state mismatch on the login callback.
type InvalidStateError struct{}

func (e *InvalidStateError) Error() string        { return "login callback: invalid state parameter" }
func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// InvalidIDTokenError reports an ID token that could not be verified.
type InvalidIDTokenError struct {
	Expired bool
	Err     error
}

func (e *InvalidIDTokenError) Error() string {
	if e.Err == nil {
		return ErrInvalidIDToken.Error()
	}

	return ErrInvalidIDToken.Error() + ": " + e.Err.Error()
}

func (e *InvalidIDTokenError) Unwrap() error { return e.Err }

func (e *InvalidIDTokenError) Is(target error) bool {
	return target == ErrInvalidIDToken || (e.Expired && target == ErrTokenExpired)
}

// TokenRequestError reports a failed call to the token endpoint.
// Body holds the raw provider response for diagnostics.
type TokenRequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token request failed with status %d", e.StatusCode)
	}

	if e.Err != nil {
		return "token request failed: " + e.Err.Error()
	}

	return ErrTokenRequest.Error()
}

func (e *TokenRequestError) Unwrap() error        { return e.Err }
func (e *TokenRequestError) Is(target error) bool { return target == ErrTokenRequest }

// RefreshError reports a failed session renewal.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string        { return ErrRefresh.Error() + ": " + e.Err.Error() }
func (e *RefreshError) Unwrap() error        { return e.Err }
func (e *RefreshError) Is(target error) bool { return target == ErrRefresh }

// AuthorizationError carries the error parameters a provider sent to the login callback.
type AuthorizationError struct {
	Code        string
	Description string
	URI         string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization request was rejected: %s: %s", e.Code, e.Description)
	}

	return "authorization request was rejected: " + e.Code
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }

// UnauthenticatedError is returned by the route guards when no session is present.
type UnauthenticatedError struct{}

func (e *UnauthenticatedError) Error() string        { return ErrUnauthenticated.Error() }
func (e *UnauthenticatedError) Is(target error) bool { return target == ErrUnauthenticated }

// UnauthorizedError names the entitlements a user lacks.
type UnauthorizedError struct {
	Missing []string
}

func (e *UnauthorizedError) Error() string {
	return "user is missing required entitlements: " + strings.Join(e.Missing, ", ")
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// StatusCode maps an error returned by this package to an HTTP status code.
// Errors from other sources yield their fiber status or 500.
func StatusCode(err error) int {
	var fe *fiber.Error

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrAuthorization):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidIDToken), errors.Is(err, ErrRefresh):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrDiscovery), errors.Is(err, ErrNotInitialized), errors.Is(err, ErrTokenRequest):
		return http.StatusBadGateway
	case errors.As(err, &fe):
		return fe.Code
	default:
		return http.StatusInternalServerError
	}
}
