package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/httputil"
)

// MessageHandler serves message CRUD and history endpoints.
type MessageHandler struct {
	service      chitter.Service
	defaultLimit int
	maxLimit     int
	log          zerolog.Logger
}

// NewMessageHandler creates a new message handler. Defaults and ceiling follow spec.md §4.3/§4.6/§8: limit defaults
// to 25 and the edge rejects (rather than clamps) anything above 100.
func NewMessageHandler(service chitter.Service, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{service: service, defaultLimit: 25, maxLimit: 100, log: logger}
}

type createMessageRequest struct {
	Content             map[string]any `json:"content"`
	ChannelID           *string        `json:"channelId"`
	DirectMessageUserID *string        `json:"directMessageUserId"`
}

// Create handles POST /api/v1/messages.
func (h *MessageHandler) Create(c fiber.Ctx) error {
	var body createMessageRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	channelID, dmUserID, ok := h.parseTarget(c, body.ChannelID, body.DirectMessageUserID)
	if !ok {
		return nil
	}

	id, err := h.service.CreateMessage(c.Context(), bearerToken(c), body.Content, channelID, dmUserID)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"id": id})
}

// Remove handles DELETE /api/v1/messages/:messageID.
func (h *MessageHandler) Remove(c fiber.Ctx) error {
	messageID, ok := pathMessageID(c)
	if !ok {
		return nil
	}

	if err := h.service.RemoveMessage(c.Context(), bearerToken(c), messageID); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

type editMessageRequest struct {
	Content map[string]any `json:"content"`
}

// Edit handles PATCH /api/v1/messages/:messageID.
func (h *MessageHandler) Edit(c fiber.Ctx) error {
	messageID, ok := pathMessageID(c)
	if !ok {
		return nil
	}

	var body editMessageRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	if err := h.service.EditMessage(c.Context(), bearerToken(c), messageID, body.Content); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

// List handles GET /api/v1/messages?channelId=&directMessageUserId=&cursor=&limit=.
func (h *MessageHandler) List(c fiber.Ctx) error {
	channelID, ok := queryUUID(c, "channelId")
	if !ok {
		return nil
	}
	dmUserID, ok := queryUUID(c, "directMessageUserId")
	if !ok {
		return nil
	}

	var cursor *int64
	if raw := c.Query("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return httputil.FailValidation(c, []string{"cursor must be an integer"})
		}
		cursor = &v
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > h.maxLimit {
			return httputil.FailValidation(c, []string{"limit must be between 1 and 100"})
		}
		limit = v
	}

	messages, err := h.service.GetMessages(c.Context(), bearerToken(c), channelID, dmUserID, cursor, limit)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, messages)
}

// parseTarget validates and parses the optional channelId/directMessageUserId string pointers from a request body.
func (h *MessageHandler) parseTarget(c fiber.Ctx, channelID, dmUserID *string) (*uuid.UUID, *uuid.UUID, bool) {
	var channel, dm *uuid.UUID
	if channelID != nil {
		id, ok := parseUUIDString(c, "channelId", *channelID)
		if !ok {
			return nil, nil, false
		}
		channel = &id
	}
	if dmUserID != nil {
		id, ok := parseUUIDString(c, "directMessageUserId", *dmUserID)
		if !ok {
			return nil, nil, false
		}
		dm = &id
	}
	return channel, dm, true
}

// pathMessageID parses the :messageID route parameter as an int64 message ID.
func pathMessageID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("messageID"), 10, 64)
	if err != nil {
		_ = httputil.FailValidation(c, []string{"messageID must be an integer"})
		return 0, false
	}
	return id, true
}
