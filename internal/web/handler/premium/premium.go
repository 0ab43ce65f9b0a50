// Package premium serves a route that requires configured entitlements.
package premium

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bnoidc/oidcfiber/internal/config"
	"github.com/bnoidc/oidcfiber/internal/web/handler"
	"github.com/bnoidc/oidcfiber/oidcauth"
)

// Path is guarded by demo.premiumentitlements.
const Path = handler.RootPath + "premium"

// Service is the premium handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Init initializes the premium handler.
func (s *Service) Init(app fiber.Router, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return handler.ErrNilAppOrConfig
	}

	s.cfg = cfg

	app.Get(Path, oidcauth.IsEntitled(cfg.Demo.PremiumEntitlements...), s.Premium)

	return nil
}

// Premium greets an entitled user.
func (s *Service) Premium(c *fiber.Ctx) error {
	rc := oidcauth.FromContext(c)

	return c.JSON(fiber.Map{
		"user":     rc.User,
		"required": s.cfg.Demo.PremiumEntitlements,
	})
}
