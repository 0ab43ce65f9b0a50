// Package home serves the public landing route.
package home

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bnoidc/oidcfiber/internal/config"
	"github.com/bnoidc/oidcfiber/internal/web/handler"
	"github.com/bnoidc/oidcfiber/internal/web/handler/me"
	"github.com/bnoidc/oidcfiber/internal/web/handler/premium"
	"github.com/bnoidc/oidcfiber/oidcauth"
)

// Path is the landing page.
const Path = handler.RootPath

// Service is the home handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Response describes the session state and where to go next.
type Response struct {
	Title           string         `json:"title"`
	IsAuthenticated bool           `json:"isAuthenticated"`
	User            *oidcauth.User `json:"user,omitempty"`
	Links           Links          `json:"links"`
}

// Links are the routes a client can follow from the landing page.
type Links struct {
	Login   string `json:"login,omitempty"`
	Logout  string `json:"logout,omitempty"`
	Me      string `json:"me"`
	Premium string `json:"premium"`
}

// Init initializes the home handler.
func (s *Service) Init(app fiber.Router, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return handler.ErrNilAppOrConfig
	}

	s.cfg = cfg

	app.Get(Path, s.Home)

	return nil
}

// Home reports whether the request carries a verified session.
func (s *Service) Home(c *fiber.Ctx) error {
	resp := Response{
		Title: s.cfg.Title,
		Links: Links{Me: me.Path, Premium: premium.Path},
	}

	rc := oidcauth.FromContext(c)
	if rc == nil {
		return oidcauth.ErrNotInitialized
	}

	if rc.IsAuthenticated {
		resp.IsAuthenticated = true
		resp.User = rc.User
		resp.Links.Logout = rc.Config.LogoutPath
	} else {
		resp.Links.Login = rc.Config.LoginPath
	}

	return c.JSON(resp)
}
