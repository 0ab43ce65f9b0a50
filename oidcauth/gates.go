package oidcauth

import (
	"github.com/gofiber/fiber/v2"
)

// IsAuthenticated only lets requests with a verified ID token through.
func IsAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := FromContext(c)
		if rc == nil || !rc.IsAuthenticated {
			return &UnauthenticatedError{}
		}

		return c.Next()
	}
}

// IsEntitled only lets authenticated users through whose entitlements claim
// contains every required entitlement.
func IsEntitled(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := FromContext(c)
		if rc == nil || !rc.IsAuthenticated {
			return &UnauthenticatedError{}
		}

		if missing := MissingEntitlements(rc.IDTokenClaims, rc.Config.EntitlementsClaim, required); len(missing) > 0 {
			return &UnauthorizedError{Missing: missing}
		}

		return c.Next()
	}
}

// HasEntitlements reports whether the named claim holds every required value.
func HasEntitlements(claims Claims, claim string, required []string) bool {
	return len(MissingEntitlements(claims, claim, required)) == 0
}

// MissingEntitlements returns the required values absent from the named claim.
func MissingEntitlements(claims Claims, claim string, required []string) []string {
	granted := make(map[string]struct{})
	for _, e := range claims.Strings(claim) {
		granted[e] = struct{}{}
	}

	var missing []string

	for _, r := range required {
		if _, ok := granted[r]; !ok {
			missing = append(missing, r)
		}
	}

	return missing
}
