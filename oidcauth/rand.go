package oidcauth

import (
	"golang.org/x/oauth2"

	"github.com/bnoidc/oidcfiber/internal/uniuri"
)

// GenerateState returns a random, URL safe login or logout state value.
func GenerateState() string {
	return uniuri.New()
}

// GenerateNonce returns a random, URL safe nonce for the authorization request.
func GenerateNonce() string {
	return uniuri.New()
}

// GenerateCodeVerifier returns a PKCE code verifier of 43 base64url characters.
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateCodeChallenge returns the S256 code challenge for a verifier:
// base64url(sha256(verifier)) without padding.
func GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
