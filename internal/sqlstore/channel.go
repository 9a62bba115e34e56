package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/postgres"
)

const channelColumns = `id, room_id, created_at, display_name, description, is_private, created_by`

func scanChannel(row pgx.Row) (*chitter.Channel, error) {
	var c chitter.Channel
	var description *string
	if err := row.Scan(&c.ID, &c.RoomID, &c.CreatedAt, &c.DisplayName, &description, &c.IsPrivate, &c.CreatedBy); err != nil {
		return nil, err
	}
	if description != nil {
		c.Description = *description
	}
	return &c, nil
}

// CreateChannel creates a channel in the admin's room. Private channels auto-add the creating admin as a member.
func (d *PostgresChitterDatabase) CreateChannel(ctx context.Context, adminToken, displayName string, isPrivate bool) (uuid.UUID, error) {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return uuid.UUID{}, err
	}

	var channelID uuid.UUID
	err = postgres.WithTx(ctx, d.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO channels (room_id, display_name, is_private, created_by) VALUES ($1, $2, $3, $4) RETURNING id`,
			admin.RoomID, displayName, isPrivate, admin.ID,
		)
		if err := row.Scan(&channelID); err != nil {
			return err
		}
		if isPrivate {
			_, err := tx.Exec(ctx,
				`INSERT INTO private_channel_members (channel_id, user_id) VALUES ($1, $2)`,
				channelID, admin.ID,
			)
			return err
		}
		return nil
	})
	if err != nil {
		return uuid.UUID{}, chitter.Fail(chitter.CouldNotCreateChannel)
	}
	return channelID, nil
}

// RemoveChannel deletes a channel and, via the messages FK's ON DELETE CASCADE, every message it contains. Removing a
// channel id that does not exist (or belongs to another room) is a no-op success.
func (d *PostgresChitterDatabase) RemoveChannel(ctx context.Context, adminToken string, channelID uuid.UUID) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1 AND room_id = $2`, channelID, admin.RoomID)
	if err != nil {
		return chitter.Fail(chitter.CouldNotRemoveChannel)
	}
	return nil
}

// UpdateChannel patches display name and/or description. A nil field in params leaves the column unchanged.
func (d *PostgresChitterDatabase) UpdateChannel(ctx context.Context, adminToken string, channelID uuid.UUID, params chitter.UpdateChannelParams) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}

	current, err := d.getChannelInRoom(ctx, channelID, admin.RoomID)
	if err != nil {
		return chitter.Fail(chitter.ChannelNotFoundInUsersRoom)
	}

	displayName := current.DisplayName
	if params.DisplayName != nil {
		displayName = *params.DisplayName
	}
	description := current.Description
	if params.Description != nil {
		description = *params.Description
	}

	tag, err := d.pool.Exec(ctx,
		`UPDATE channels SET display_name = $1, description = $2 WHERE id = $3`,
		displayName, description, channelID,
	)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotUpdateChannel)
	}
	return nil
}

// GetChannels returns every public channel in the caller's room plus every private channel the caller belongs to.
func (d *PostgresChitterDatabase) GetChannels(ctx context.Context, userToken string) ([]chitter.Channel, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels c
		 WHERE c.room_id = $1
		   AND (c.is_private = false OR EXISTS (
		       SELECT 1 FROM private_channel_members pcm WHERE pcm.channel_id = c.id AND pcm.user_id = $2
		   ))
		 ORDER BY c.created_at`,
		user.RoomID, user.ID,
	)
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotRetrieveChannels)
	}
	defer rows.Close()

	var channels []chitter.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, chitter.Fail(chitter.CouldNotRetrieveChannels)
		}
		channels = append(channels, *c)
	}
	if rows.Err() != nil {
		return nil, chitter.Fail(chitter.CouldNotRetrieveChannels)
	}
	return channels, nil
}

// GetChannel returns a single channel subject to the same public-or-member visibility rule as GetChannels.
func (d *PostgresChitterDatabase) GetChannel(ctx context.Context, userToken string, channelID uuid.UUID) (*chitter.Channel, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}

	row := d.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels c
		 WHERE c.id = $1 AND c.room_id = $2
		   AND (c.is_private = false OR EXISTS (
		       SELECT 1 FROM private_channel_members pcm WHERE pcm.channel_id = c.id AND pcm.user_id = $3
		   ))`,
		channelID, user.RoomID, user.ID,
	)
	channel, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chitter.Fail(chitter.ChannelNotFound)
		}
		return nil, chitter.Fail(chitter.UnknownServerError)
	}
	return channel, nil
}

// AddUserToChannel adds userID to a private channel's membership set. Adding an existing member is a no-op success.
func (d *PostgresChitterDatabase) AddUserToChannel(ctx context.Context, adminToken string, userID, channelID uuid.UUID) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}
	if _, err := d.requirePrivateChannelInRoom(ctx, channelID, admin.RoomID); err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx,
		`INSERT INTO private_channel_members (channel_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		channelID, userID,
	)
	if err != nil {
		return chitter.Fail(chitter.CouldNotAddUserToChannel)
	}
	return nil
}

// RemoveUserFromChannel removes userID from a private channel's membership set. Removing a non-member is a no-op
// success.
func (d *PostgresChitterDatabase) RemoveUserFromChannel(ctx context.Context, adminToken string, userID, channelID uuid.UUID) error {
	admin, err := d.resolveAdmin(ctx, adminToken)
	if err != nil {
		return err
	}
	if _, err := d.requirePrivateChannelInRoom(ctx, channelID, admin.RoomID); err != nil {
		return err
	}

	_, err = d.pool.Exec(ctx,
		`DELETE FROM private_channel_members WHERE channel_id = $1 AND user_id = $2`,
		channelID, userID,
	)
	if err != nil {
		return chitter.Fail(chitter.CouldNotRemoveUserFromChannel)
	}
	return nil
}

func (d *PostgresChitterDatabase) getChannelInRoom(ctx context.Context, channelID, roomID uuid.UUID) (*chitter.Channel, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1 AND room_id = $2`, channelID, roomID)
	return scanChannel(row)
}

func (d *PostgresChitterDatabase) requirePrivateChannelInRoom(ctx context.Context, channelID, roomID uuid.UUID) (*chitter.Channel, error) {
	channel, err := d.getChannelInRoom(ctx, channelID, roomID)
	if err != nil || !channel.IsPrivate {
		return nil, chitter.Fail(chitter.ChannelNotFoundOrNotPrivate)
	}
	return channel, nil
}

// isChannelMember reports whether userID is a member of channelID's private membership set.
func (d *PostgresChitterDatabase) isChannelMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM private_channel_members WHERE channel_id = $1 AND user_id = $2)`,
		channelID, userID,
	).Scan(&exists)
	return exists, err
}
