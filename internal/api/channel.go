package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/httputil"
)

// ChannelHandler serves channel lifecycle and membership endpoints.
type ChannelHandler struct {
	service chitter.Service
	log     zerolog.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(service chitter.Service, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{service: service, log: logger}
}

type createChannelRequest struct {
	DisplayName string `json:"displayName"`
	IsPrivate   bool   `json:"isPrivate"`
}

// Create handles POST /api/v1/channels.
func (h *ChannelHandler) Create(c fiber.Ctx) error {
	var body createChannelRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	id, err := h.service.CreateChannel(c.Context(), bearerToken(c), body.DisplayName, body.IsPrivate)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"id": id})
}

// Remove handles DELETE /api/v1/channels/:channelID.
func (h *ChannelHandler) Remove(c fiber.Ctx) error {
	channelID, ok := pathUUID(c, "channelID")
	if !ok {
		return nil
	}

	if err := h.service.RemoveChannel(c.Context(), bearerToken(c), channelID); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

type updateChannelRequest struct {
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
}

// Update handles PATCH /api/v1/channels/:channelID.
func (h *ChannelHandler) Update(c fiber.Ctx) error {
	channelID, ok := pathUUID(c, "channelID")
	if !ok {
		return nil
	}

	var body updateChannelRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	params := chitter.UpdateChannelParams{DisplayName: body.DisplayName, Description: body.Description}
	if err := h.service.UpdateChannel(c.Context(), bearerToken(c), channelID, params); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

// List handles GET /api/v1/channels.
func (h *ChannelHandler) List(c fiber.Ctx) error {
	channels, err := h.service.GetChannels(c.Context(), bearerToken(c))
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, channels)
}

// Get handles GET /api/v1/channels/:channelID.
func (h *ChannelHandler) Get(c fiber.Ctx) error {
	channelID, ok := pathUUID(c, "channelID")
	if !ok {
		return nil
	}

	channel, err := h.service.GetChannel(c.Context(), bearerToken(c), channelID)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, channel)
}

// AddMember handles PUT /api/v1/channels/:channelID/members/:userID.
func (h *ChannelHandler) AddMember(c fiber.Ctx) error {
	channelID, ok := pathUUID(c, "channelID")
	if !ok {
		return nil
	}
	userID, ok := pathUUID(c, "userID")
	if !ok {
		return nil
	}

	if err := h.service.AddUserToChannel(c.Context(), bearerToken(c), userID, channelID); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

// RemoveMember handles DELETE /api/v1/channels/:channelID/members/:userID.
func (h *ChannelHandler) RemoveMember(c fiber.Ctx) error {
	channelID, ok := pathUUID(c, "channelID")
	if !ok {
		return nil
	}
	userID, ok := pathUUID(c, "userID")
	if !ok {
		return nil
	}

	if err := h.service.RemoveUserFromChannel(c.Context(), bearerToken(c), userID, channelID); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}
