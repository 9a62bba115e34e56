package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/postgres"
)

const roomColumns = `id, created_at, display_name, description, logo_id, admin_invite_only`

func scanRoom(row pgx.Row) (*chitter.Room, error) {
	var r chitter.Room
	var description *string
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.DisplayName, &description, &r.LogoAttachment, &r.AdminInviteOnly); err != nil {
		return nil, err
	}
	if description != nil {
		r.Description = *description
	}
	return &r, nil
}

// CreateRoomAndAdmin creates the Room, its first admin User, and a public "General" channel atomically.
func (d *PostgresChitterDatabase) CreateRoomAndAdmin(ctx context.Context, roomName, adminName string, adminInviteOnly bool) (*chitter.RoomAndAdmin, error) {
	var result chitter.RoomAndAdmin

	err := postgres.WithTx(ctx, d.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO rooms (display_name, admin_invite_only) VALUES ($1, $2)
			 RETURNING `+roomColumns,
			roomName, adminInviteOnly,
		)
		room, err := scanRoom(row)
		if err != nil {
			return err
		}
		result.Room = *room

		adminRow := tx.QueryRow(ctx,
			`INSERT INTO users (room_id, token, display_name, role) VALUES ($1, $2, $3, $4)
			 RETURNING `+userColumns,
			room.ID, chitter.NewToken(), adminName, chitter.RoleAdmin,
		)
		admin, err := scanUser(adminRow)
		if err != nil {
			return err
		}
		result.Admin = *admin

		channelRow := tx.QueryRow(ctx,
			`INSERT INTO channels (room_id, display_name, is_private, created_by) VALUES ($1, 'General', false, $2)
			 RETURNING `+channelColumns,
			room.ID, admin.ID,
		)
		channel, err := scanChannel(channelRow)
		if err != nil {
			return err
		}
		result.GeneralChannel = *channel
		return nil
	})
	if err != nil {
		d.log.Warn().Err(err).Msg("create room and admin failed")
		return nil, chitter.Fail(chitter.CouldNotCreateRoomAndAdmin)
	}
	return &result, nil
}

// UpdateRoom mutates display name, invite policy, description, and logo for the admin's own room.
func (d *PostgresChitterDatabase) UpdateRoom(ctx context.Context, adminToken string, params chitter.UpdateRoomParams) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}

	if params.LogoID != nil {
		if err := d.requireOwnedImageAttachment(ctx, *params.LogoID, uuid.Nil, chitter.InvalidOrNonImageLogoAttachment); err != nil {
			return err
		}
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE rooms SET display_name = $1, admin_invite_only = $2, description = $3, logo_id = $4 WHERE id = $5`,
		params.DisplayName, params.AdminInviteOnly, params.Description, params.LogoID, admin.RoomID,
	)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotUpdateRoom)
	}
	return nil
}

// GetRoom returns the caller's own room. Any other room id is reported as RoomNotFound, never a scope error, so
// callers cannot use this to probe for the existence of other rooms.
func (d *PostgresChitterDatabase) GetRoom(ctx context.Context, userToken string, roomID uuid.UUID) (*chitter.Room, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}
	if user.RoomID != roomID {
		return nil, chitter.Fail(chitter.RoomNotFound)
	}

	row := d.pool.QueryRow(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1", roomID)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chitter.Fail(chitter.RoomNotFound)
		}
		return nil, chitter.Fail(chitter.UnknownServerError)
	}
	return room, nil
}

// requireOwnedImageAttachment validates that attachmentID exists, is image-typed, and (when ownerID is non-nil) is
// owned by ownerID. Used by both avatar and logo validation with different error tags.
func (d *PostgresChitterDatabase) requireOwnedImageAttachment(ctx context.Context, attachmentID, ownerID uuid.UUID, tag chitter.ErrorTag) error {
	var attType string
	var attOwner uuid.UUID
	err := d.pool.QueryRow(ctx, "SELECT type, user_id FROM attachments WHERE id = $1", attachmentID).Scan(&attType, &attOwner)
	if err != nil {
		return chitter.Fail(tag)
	}
	if attType != string(chitter.AttachmentImage) {
		return chitter.Fail(tag)
	}
	if ownerID != uuid.Nil && attOwner != ownerID {
		return chitter.Fail(tag)
	}
	return nil
}
