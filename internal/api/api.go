// Package api implements the HTTP edge described by spec.md §6: one handler type per resource, translating
// JSON/multipart requests into chitter.Service calls and mapping the result to the {success,data}/{success,error}
// envelope.
package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/httputil"
)

// bearerToken extracts the token from "Authorization: Bearer <token>". An empty return means the header was
// missing or malformed; handlers pass it straight to the Chat Service, which rejects it as an invalid token.
func bearerToken(c fiber.Ctx) string {
	header := c.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// pathUUID parses a uuid.UUID route parameter, writing a 400 InvalidParameters response and returning ok=false on
// malformed input.
func pathUUID(c fiber.Ctx, param string) (id uuid.UUID, ok bool) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = httputil.FailValidation(c, []string{param + " must be a valid UUID"})
		return uuid.UUID{}, false
	}
	return id, true
}

// queryUUID parses an optional uuid.UUID query parameter. Returns nil without error when absent.
func queryUUID(c fiber.Ctx, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = httputil.FailValidation(c, []string{name + " must be a valid UUID"})
		return nil, false
	}
	return &id, true
}

// parseUUIDString parses raw as a uuid.UUID, writing a validation failure under field's name on error.
func parseUUIDString(c fiber.Ctx, field, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = httputil.FailValidation(c, []string{field + " must be a valid UUID"})
		return uuid.UUID{}, false
	}
	return id, true
}
