package api

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v3"
)

// ShutdownHandler serves the operator-triggered graceful shutdown endpoint guarded by SHUTDOWN_TOKEN.
type ShutdownHandler struct {
	token   string
	trigger func()
}

// NewShutdownHandler creates a handler that calls trigger once a request presents the configured token.
func NewShutdownHandler(token string, trigger func()) *ShutdownHandler {
	return &ShutdownHandler{token: token, trigger: trigger}
}

type shutdownRequest struct {
	Token string `json:"token"`
}

// Shutdown handles POST /shutdown. The token may arrive as a bearer token or in the JSON body; either match is
// accepted so operators can trigger it with a bare curl command.
func (h *ShutdownHandler) Shutdown(c fiber.Ctx) error {
	candidate := bearerToken(c)
	if candidate == "" {
		var body shutdownRequest
		_ = c.Bind().Body(&body)
		candidate = body.Token
	}

	if subtle.ConstantTimeCompare([]byte(candidate), []byte(h.token)) != 1 {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	h.trigger()
	return c.JSON(fiber.Map{"status": "shutting down"})
}
