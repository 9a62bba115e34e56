package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/httputil"
)

// RoomHandler serves room lifecycle and invite endpoints.
type RoomHandler struct {
	service chitter.Service
	log     zerolog.Logger
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(service chitter.Service, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{service: service, log: logger}
}

type createRoomRequest struct {
	RoomName        string `json:"roomName"`
	AdminName       string `json:"adminName"`
	AdminInviteOnly bool   `json:"adminInviteOnly"`
}

// Create handles POST /api/v1/rooms.
func (h *RoomHandler) Create(c fiber.Ctx) error {
	var body createRoomRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	ra, err := h.service.CreateRoomAndAdmin(c.Context(), body.RoomName, body.AdminName, body.AdminInviteOnly)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, ra)
}

type updateRoomRequest struct {
	DisplayName     string  `json:"displayName"`
	AdminInviteOnly bool    `json:"adminInviteOnly"`
	Description     *string `json:"description"`
	LogoID          *string `json:"logoId"`
}

// Update handles PATCH /api/v1/rooms/:roomID. The caller authenticates as the room's admin via the Authorization
// header; roomID in the path is informational only since UpdateRoom always targets the admin's own room.
func (h *RoomHandler) Update(c fiber.Ctx) error {
	var body updateRoomRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	params := chitter.UpdateRoomParams{
		DisplayName:     body.DisplayName,
		AdminInviteOnly: body.AdminInviteOnly,
		Description:     body.Description,
	}
	if body.LogoID != nil {
		id, ok := parseUUIDString(c, "logoId", *body.LogoID)
		if !ok {
			return nil
		}
		params.LogoID = &id
	}

	if err := h.service.UpdateRoom(c.Context(), bearerToken(c), params); err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, nil)
}

// Get handles GET /api/v1/rooms/:roomID.
func (h *RoomHandler) Get(c fiber.Ctx) error {
	roomID, ok := pathUUID(c, "roomID")
	if !ok {
		return nil
	}

	room, err := h.service.GetRoom(c.Context(), bearerToken(c), roomID)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, room)
}

// CreateInvite handles POST /api/v1/invites.
func (h *RoomHandler) CreateInvite(c fiber.Ctx) error {
	code, err := h.service.CreateInviteCode(c.Context(), bearerToken(c))
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"code": code})
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
}

// Join handles POST /api/v1/invites/:code/join.
func (h *RoomHandler) Join(c fiber.Ctx) error {
	var body joinRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	user, err := h.service.CreateUserFromInviteCode(c.Context(), c.Params("code"), body.DisplayName)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, user)
}

type createTransferRequest struct {
	UserTokens []string `json:"userTokens"`
}

// CreateTransfer handles POST /api/v1/transfers.
func (h *RoomHandler) CreateTransfer(c fiber.Ctx) error {
	var body createTransferRequest
	if err := c.Bind().Body(&body); err != nil {
		return httputil.FailValidation(c, []string{"request body is not valid JSON"})
	}

	code, err := h.service.CreateTransferBundle(c.Context(), body.UserTokens)
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.SuccessStatus(c, fiber.StatusCreated, fiber.Map{"code": code})
}

// GetTransfer handles POST /api/v1/transfers/:code.
func (h *RoomHandler) GetTransfer(c fiber.Ctx) error {
	users, err := h.service.GetTransferBundleFromCode(c.Context(), c.Params("code"))
	if err != nil {
		return httputil.FailErr(c, err)
	}
	return httputil.Success(c, users)
}
