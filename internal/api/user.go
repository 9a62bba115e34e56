package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/httputil"
)

// UserHandler serves user profile and membership endpoints.
type UserHandler struct {
	service chitter.Service
	log     zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(service chitter.Service, logger zerolog.Logger) *UserHandler {
	return &UserHandler{service: service, log: logger}
}

// Remove handles DELETE /api/v1/users/:userID.
func (h *UserHandler) Remove(c fiber.Ctx) error {
	userID, ok := pathUUID(c, "userID")
	if !ok {
		return nil
	}

	if err := h.service.RemoveUser(c.Context(), userID, bearerToken(c)); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

type updateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
}

// UpdateSelf handles PATCH /api/v1/users/@me.
func (h *UserHandler) UpdateSelf(c fiber.Ctx) error {
	var body updateUserRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	params := chitter.UpdateUserParams{
		DisplayName: body.DisplayName,
		Description: body.Description,
	}
	if body.Avatar != nil {
		id, ok := parseUUIDString(c, "avatar", *body.Avatar)
		if !ok {
			return nil
		}
		params.Avatar = &id
	}

	if err := h.service.UpdateUser(c.Context(), bearerToken(c), params); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

type setRoleRequest struct {
	Role chitter.Role `json:"role"`
}

// SetRole handles PUT /api/v1/users/:userID/role.
func (h *UserHandler) SetRole(c fiber.Ctx) error {
	userID, ok := pathUUID(c, "userID")
	if !ok {
		return nil
	}

	var body setRoleRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	if err := h.service.SetUserRole(c.Context(), bearerToken(c), userID, body.Role); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

// List handles GET /api/v1/users, optionally scoped to a channel with ?channelId=.
func (h *UserHandler) List(c fiber.Ctx) error {
	channelID, ok := queryUUID(c, "channelId")
	if !ok {
		return nil
	}

	users, err := h.service.GetUsers(c.Context(), bearerToken(c), channelID)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, users)
}

// Get handles GET /api/v1/users/:userID.
func (h *UserHandler) Get(c fiber.Ctx) error {
	userID, ok := pathUUID(c, "userID")
	if !ok {
		return nil
	}

	user, err := h.service.GetUser(c.Context(), bearerToken(c), userID)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, user)
}
