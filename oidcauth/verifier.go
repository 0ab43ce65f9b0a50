package oidcauth

import (
	"crypto"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-multierror"
)

// SigningAlgorithm is the only ID token signature algorithm accepted.
const SigningAlgorithm = "RS256"

var (
	errNoSigningKeys = errors.New("no signing keys available")
	errEmptyToken    = errors.New("id token is empty")
)

// Claims are the verified claims of an ID token.
type Claims map[string]interface{}

// String returns the named claim if it is a string.
func (c Claims) String(name string) string {
	s, _ := c[name].(string)

	return s
}

// Subject returns the sub claim.
func (c Claims) Subject() string { return c.String("sub") }

// Email returns the email claim.
func (c Claims) Email() string { return c.String("email") }

// Strings returns the named claim as a string list. A single string value is
// returned as a one element list; anything else yields nil.
func (c Claims) Strings(name string) []string {
	switch v := c[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

// SigningKey is one verification key published by the provider.
type SigningKey struct {
	KeyID     string
	Algorithm string
	Key       crypto.PublicKey
}

// VerifyOptions are the expectations an ID token must meet.
type VerifyOptions struct {
	Issuer   string
	Audience string
	// Leeway tolerates clock skew on the time based claims.
	Leeway time.Duration
	// Now replaces the clock; nil means time.Now.
	Now func() time.Time
}

// VerifyIDToken checks the token signature against keys and validates issuer,
// audience and expiry. Keys whose id matches the token's kid header are tried
// first; the first key that verifies wins. A correctly signed but expired
// token yields an InvalidIDTokenError with Expired set.
func VerifyIDToken(token string, keys []SigningKey, opts VerifyOptions) (Claims, error) {
	if token == "" {
		return nil, &InvalidIDTokenError{Err: errEmptyToken}
	}

	if len(keys) == 0 {
		return nil, &InvalidIDTokenError{Err: errNoSigningKeys}
	}

	kid, err := tokenKeyID(token)
	if err != nil {
		return nil, &InvalidIDTokenError{Err: err}
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{SigningAlgorithm}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}
	if opts.Now != nil {
		parserOpts = append(parserOpts, jwt.WithTimeFunc(opts.Now))
	}

	parser := jwt.NewParser(parserOpts...)

	var result *multierror.Error

	for _, key := range orderKeys(keys, kid) {
		claims := jwt.MapClaims{}

		_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return key.Key, nil
		})
		if err == nil {
			return Claims(claims), nil
		}

		// the signature matched this key, so no other key can do better
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &InvalidIDTokenError{Expired: true, Err: err}
		}

		result = multierror.Append(result, fmt.Errorf("key %q: %w", key.KeyID, err))
	}

	return nil, &InvalidIDTokenError{Err: result.ErrorOrNil()}
}

// tokenKeyID reads the kid header without verifying anything.
func tokenKeyID(token string) (string, error) {
	t, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", err
	}

	kid, _ := t.Header["kid"].(string)

	return kid, nil
}

func orderKeys(keys []SigningKey, kid string) []SigningKey {
	if kid == "" {
		return keys
	}

	ordered := make([]SigningKey, 0, len(keys))
	rest := make([]SigningKey, 0, len(keys))

	for _, k := range keys {
		if k.KeyID == kid {
			ordered = append(ordered, k)
		} else {
			rest = append(rest, k)
		}
	}

	return append(ordered, rest...)
}

func hasKeyID(keys []SigningKey, kid string) bool {
	for _, k := range keys {
		if k.KeyID == kid {
			return true
		}
	}

	return false
}
