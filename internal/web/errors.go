package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/bnoidc/oidcfiber/oidcauth"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Status  int      `json:"status"`
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// ErrorHandler maps errors to status codes with oidcauth.StatusCode.
// Server side failures are logged and answered with the status text only.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := oidcauth.StatusCode(err)

	resp := ErrorResponse{Status: status, Error: err.Error()}

	var ue *oidcauth.UnauthorizedError
	if errors.As(err, &ue) {
		resp.Missing = ue.Missing
	}

	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Str("path", c.Path()).Msg("request failed")

		resp.Error = fiber.NewError(status).Message
	}

	return c.Status(status).JSON(resp)
}
