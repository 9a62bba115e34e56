package chitter

import (
	"context"

	"github.com/google/uuid"
)

// Service is the state machine exposed to the HTTP edge. Two interchangeable implementations — the SQL-backed
// PostgresChitterDatabase and the single-process ChitterMem — satisfy this contract identically. Every method either
// returns a success payload or an error produced by Fail(tag); callers recover the tag with TagOf.
type Service interface {
	CreateRoomAndAdmin(ctx context.Context, roomName, adminName string, adminInviteOnly bool) (*RoomAndAdmin, error)
	UpdateRoom(ctx context.Context, adminToken string, params UpdateRoomParams) error
	GetRoom(ctx context.Context, userToken string, roomID uuid.UUID) (*Room, error)

	CreateInviteCode(ctx context.Context, userToken string) (string, error)
	CreateUserFromInviteCode(ctx context.Context, code, displayName string) (*User, error)

	RemoveUser(ctx context.Context, userID uuid.UUID, adminToken string) error
	UpdateUser(ctx context.Context, userToken string, params UpdateUserParams) error
	SetUserRole(ctx context.Context, adminToken string, userID uuid.UUID, role Role) error
	GetUsers(ctx context.Context, userToken string, channelID *uuid.UUID) ([]User, error)
	GetUser(ctx context.Context, userToken string, userID uuid.UUID) (*User, error)

	CreateTransferBundle(ctx context.Context, userTokens []string) (string, error)
	GetTransferBundleFromCode(ctx context.Context, transferCode string) ([]User, error)

	CreateMessage(ctx context.Context, userToken string, content any, channelID, directMessageUserID *uuid.UUID) (int64, error)
	RemoveMessage(ctx context.Context, userToken string, messageID int64) error
	EditMessage(ctx context.Context, userToken string, messageID int64, content any) error
	GetMessages(ctx context.Context, userToken string, channelID, directMessageUserID *uuid.UUID, cursor *int64, limit int) ([]Message, error)

	CreateChannel(ctx context.Context, adminToken, displayName string, isPrivate bool) (uuid.UUID, error)
	RemoveChannel(ctx context.Context, adminToken string, channelID uuid.UUID) error
	UpdateChannel(ctx context.Context, adminToken string, channelID uuid.UUID, params UpdateChannelParams) error
	GetChannels(ctx context.Context, userToken string) ([]Channel, error)
	GetChannel(ctx context.Context, userToken string, channelID uuid.UUID) (*Channel, error)

	AddUserToChannel(ctx context.Context, adminToken string, userID, channelID uuid.UUID) error
	RemoveUserFromChannel(ctx context.Context, adminToken string, userID, channelID uuid.UUID) error

	UploadAttachment(ctx context.Context, token string, params UploadAttachmentParams) (*Attachment, error)
	RemoveAttachment(ctx context.Context, token string, attachmentID uuid.UUID) error

	// Close releases the backend's resources (connection pool, background goroutines) on shutdown.
	Close(ctx context.Context) error
}

// RoomAndAdmin is the payload returned by CreateRoomAndAdmin.
type RoomAndAdmin struct {
	Room           Room    `json:"room"`
	Admin          User    `json:"admin"`
	GeneralChannel Channel `json:"generalChannel"`
}

// UpdateRoomParams groups UpdateRoom's optional fields.
type UpdateRoomParams struct {
	DisplayName     string     `json:"displayName"`
	AdminInviteOnly bool       `json:"adminInviteOnly"`
	Description     *string    `json:"description,omitempty"`
	LogoID          *uuid.UUID `json:"logoId,omitempty"`
}

// UpdateUserParams groups UpdateUser's optional fields. A nil field means "no change."
type UpdateUserParams struct {
	DisplayName *string    `json:"displayName,omitempty"`
	Description *string    `json:"description,omitempty"`
	Avatar      *uuid.UUID `json:"avatar,omitempty"`
}

// UpdateChannelParams groups UpdateChannel's optional fields. A nil field means "no change."
type UpdateChannelParams struct {
	DisplayName *string `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UploadAttachmentParams groups the inputs to UploadAttachment. The bytes are already at Path by the time this is
// called (written by the upload collaborator — spec.md's HTTP edge).
type UploadAttachmentParams struct {
	Type     AttachmentType `json:"type"`
	FileName string         `json:"fileName"`
	Path     string         `json:"path"`
	Width    *int           `json:"width,omitempty"`
	Height   *int           `json:"height,omitempty"`
}
