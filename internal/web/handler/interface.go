package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bnoidc/oidcfiber/internal/config"
)

// Service is the interface for a web handler service.
// Init registers the handler's routes behind the oidcauth middleware.
type Service interface {
	Init(app fiber.Router, cfg *config.Config) error
}
