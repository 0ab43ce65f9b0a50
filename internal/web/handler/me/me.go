// Package me serves the routes that describe the logged in user.
package me

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/bnoidc/oidcfiber/internal/config"
	"github.com/bnoidc/oidcfiber/internal/web/handler"
	"github.com/bnoidc/oidcfiber/oidcauth"
)

const (
	// Path returns the user and the verified claims.
	Path = handler.RootPath + "me"

	// UserInfoPath proxies the provider's userinfo endpoint.
	UserInfoPath = Path + "/userinfo"
)

// Service is the me handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Response is the body of Path.
type Response struct {
	User         *oidcauth.User  `json:"user"`
	Entitlements []string        `json:"entitlements"`
	Claims       oidcauth.Claims `json:"claims"`
}

// Init initializes the me handler.
func (s *Service) Init(app fiber.Router, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return handler.ErrNilAppOrConfig
	}

	s.cfg = cfg

	app.Get(Path, oidcauth.IsAuthenticated(), s.Me)
	app.Get(UserInfoPath, oidcauth.IsAuthenticated(), s.UserInfo)

	return nil
}

// Me returns the identity of the logged in user.
func (s *Service) Me(c *fiber.Ctx) error {
	rc := oidcauth.FromContext(c)

	entitlements := rc.Entitlements()
	if entitlements == nil {
		entitlements = []string{}
	}

	return c.JSON(Response{
		User:         rc.User,
		Entitlements: entitlements,
		Claims:       rc.IDTokenClaims,
	})
}

// UserInfo returns the provider's view of the logged in user.
func (s *Service) UserInfo(c *fiber.Ctx) error {
	var info map[string]interface{}

	if err := oidcauth.FromContext(c).UserInfo(&info); err != nil {
		log.Warn().Err(err).Msg("userinfo request failed")

		return fiber.NewError(fiber.StatusBadGateway, "userinfo request failed")
	}

	return c.JSON(info)
}
