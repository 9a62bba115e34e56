package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/postgres"
)

// CreateInviteCode mints a 24h invite code scoped to the caller's room. Blocked only when the room is
// admin-invite-only and the caller is not an admin (per the in-memory backend's original semantics, not the SQL
// backend's inverted check).
func (d *PostgresChitterDatabase) CreateInviteCode(ctx context.Context, userToken string) (string, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE token = $1", userToken)
	user, err := scanUser(row)
	if err != nil {
		return "", chitter.Fail(chitter.UserNotFound)
	}

	var adminInviteOnly bool
	if err := d.pool.QueryRow(ctx, "SELECT admin_invite_only FROM rooms WHERE id = $1", user.RoomID).Scan(&adminInviteOnly); err != nil {
		return "", chitter.Fail(chitter.CouldNotCreateInviteCode)
	}
	if adminInviteOnly && user.Role != chitter.RoleAdmin {
		return "", chitter.Fail(chitter.UserIsNotAdminAndRoomIsAdminInviteOnly)
	}

	code, err := d.registry.MintInvite(ctx, user.RoomID)
	if err != nil {
		return "", chitter.Fail(chitter.CouldNotCreateInviteCode)
	}
	return code, nil
}

// CreateUserFromInviteCode consumes an invite code and creates a participant user. A display name collision fails
// without consuming the code, so the caller can retry with a different name.
func (d *PostgresChitterDatabase) CreateUserFromInviteCode(ctx context.Context, code, displayName string) (*chitter.User, error) {
	roomID, ok, err := d.registry.PeekInvite(ctx, code)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidInviteCode)
	}

	var exists bool
	err = d.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE room_id = $1 AND display_name = $2)", roomID, displayName,
	).Scan(&exists)
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotCreateUserFromInviteCode)
	}
	if exists {
		return nil, chitter.Fail(chitter.DisplayNameAlreadyExistsInTheRoom)
	}

	roomID, ok, err = d.registry.ConsumeInvite(ctx, code)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidInviteCode)
	}

	row := d.pool.QueryRow(ctx,
		`INSERT INTO users (room_id, token, display_name, role) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		roomID, chitter.NewToken(), displayName, chitter.RoleParticipant,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotCreateUserFromInviteCode)
	}
	return user, nil
}

// RemoveUser revokes a user by rotating their token to a fresh, unguessable value and wiping their private-channel
// memberships. Authored messages are preserved.
func (d *PostgresChitterDatabase) RemoveUser(ctx context.Context, userID uuid.UUID, adminToken string) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}

	target, err := d.getUserByID(ctx, userID)
	if err != nil || target.RoomID != admin.RoomID {
		return chitter.Fail(chitter.UserNotFoundInAdminsRoom)
	}

	err = postgres.WithTx(ctx, d.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM private_channel_members WHERE user_id = $1", userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "UPDATE users SET token = $1 WHERE id = $2", chitter.NewToken(), userID)
		return err
	})
	if err != nil {
		return chitter.Fail(chitter.CouldNotRemoveUser)
	}
	return nil
}

// UpdateUser mutates the caller's own profile. A provided avatar must be an image attachment owned by the caller.
func (d *PostgresChitterDatabase) UpdateUser(ctx context.Context, userToken string, params chitter.UpdateUserParams) error {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return err
	}

	if params.Avatar != nil {
		if err := d.requireOwnedImageAttachment(ctx, *params.Avatar, user.ID, chitter.InvalidOrNonImageAvatarAttachment); err != nil {
			return err
		}
	}

	displayName := user.DisplayName
	if params.DisplayName != nil {
		displayName = *params.DisplayName
	}
	description := user.Description
	if params.Description != nil {
		description = *params.Description
	}
	avatar := user.AvatarAttachment
	if params.Avatar != nil {
		avatar = params.Avatar
	}

	tag, err := d.pool.Exec(ctx,
		"UPDATE users SET display_name = $1, description = $2, avatar_id = $3 WHERE id = $4",
		displayName, description, avatar, user.ID,
	)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotUpdateUser)
	}
	return nil
}

// SetUserRole changes a user's role. Scope-checked against the admin's room.
func (d *PostgresChitterDatabase) SetUserRole(ctx context.Context, adminToken string, userID uuid.UUID, role chitter.Role) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}

	target, err := d.getUserByID(ctx, userID)
	if err != nil || target.RoomID != admin.RoomID {
		return chitter.Fail(chitter.UserNotFoundInAdminsRoom)
	}

	tag, err := d.pool.Exec(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, userID)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotChangeUserRole)
	}
	return nil
}

// GetUsers returns every user in the caller's room, optionally filtered to members of a given channel.
func (d *PostgresChitterDatabase) GetUsers(ctx context.Context, userToken string, channelID *uuid.UUID) ([]chitter.User, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if channelID != nil {
		rows, err = d.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users u
			 JOIN private_channel_members pcm ON pcm.user_id = u.id
			 WHERE u.room_id = $1 AND pcm.channel_id = $2`,
			user.RoomID, *channelID,
		)
	} else {
		rows, err = d.pool.Query(ctx, "SELECT "+userColumns+" FROM users WHERE room_id = $1", user.RoomID)
	}
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotGetUsers)
	}
	defer rows.Close()

	var users []chitter.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, chitter.Fail(chitter.CouldNotGetUsers)
		}
		users = append(users, *u)
	}
	if rows.Err() != nil {
		return nil, chitter.Fail(chitter.CouldNotGetUsers)
	}
	return users, nil
}

// GetUser returns a single user scoped to the caller's room.
func (d *PostgresChitterDatabase) GetUser(ctx context.Context, userToken string, userID uuid.UUID) (*chitter.User, error) {
	caller, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}

	target, err := d.getUserByID(ctx, userID)
	if err != nil || target.RoomID != caller.RoomID {
		return nil, chitter.Fail(chitter.UserNotFound)
	}
	return target, nil
}

// CreateTransferBundle mints a 1h transfer code bundling the userIds resolved from the given tokens. Tokens that
// resolve to nothing are silently dropped; the call is unauthenticated by design — possession of valid tokens is
// the proof of control.
func (d *PostgresChitterDatabase) CreateTransferBundle(ctx context.Context, userTokens []string) (string, error) {
	var userIDs []uuid.UUID
	for _, token := range userTokens {
		row := d.pool.QueryRow(ctx, "SELECT id FROM users WHERE token = $1", token)
		var id uuid.UUID
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return "", chitter.Fail(chitter.CouldNotCreateTransferCode)
		}
		userIDs = append(userIDs, id)
	}
	if len(userIDs) == 0 {
		return "", chitter.Fail(chitter.NoValidTokens)
	}

	code, err := d.registry.MintTransfer(ctx, userIDs)
	if err != nil {
		return "", chitter.Fail(chitter.CouldNotCreateTransferCode)
	}
	return code, nil
}

// GetTransferBundleFromCode consumes a transfer code and returns the bundled users, tokens included.
func (d *PostgresChitterDatabase) GetTransferBundleFromCode(ctx context.Context, transferCode string) ([]chitter.User, error) {
	userIDs, ok, err := d.registry.ConsumeTransfer(ctx, transferCode)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidOrExpiredTransferCode)
	}

	rows, err := d.pool.Query(ctx, "SELECT "+userColumns+" FROM users WHERE id = ANY($1)", userIDs)
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotFetchUserDataFromTransferCode)
	}
	defer rows.Close()

	var users []chitter.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, chitter.Fail(chitter.CouldNotFetchUserDataFromTransferCode)
		}
		users = append(users, *u)
	}
	if rows.Err() != nil {
		return nil, chitter.Fail(chitter.CouldNotFetchUserDataFromTransferCode)
	}
	return users, nil
}
