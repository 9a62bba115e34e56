package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/sanitize"
)

func scanMessage(row pgx.Row) (*chitter.Message, error) {
	var m chitter.Message
	var raw []byte
	if err := row.Scan(&m.ID, &m.UserID, &m.CreatedAt, &raw, &m.ChannelID, &m.DirectMessageUserID, &m.Edited); err != nil {
		return nil, err
	}
	content, err := unmarshalContent(raw)
	if err != nil {
		return nil, err
	}
	m.Content = content
	return &m, nil
}

const messageColumns = `id, user_id, created_at, content, channel_id, direct_message_user_id, edited`

// CreateMessage validates target scope and content, resolves referenced attachments, and appends a message whose id
// is strictly greater than every previously assigned id on this backend (guaranteed here by BIGSERIAL).
func (d *PostgresChitterDatabase) CreateMessage(ctx context.Context, userToken string, rawContent any, channelID, directMessageUserID *uuid.UUID) (int64, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return 0, err
	}

	if err := d.checkMessageTarget(ctx, user, channelID, directMessageUserID); err != nil {
		return 0, err
	}

	content, err := sanitize.Content(rawContent)
	if err != nil {
		return 0, err
	}

	attachments, err := d.resolveOwnedAttachments(ctx, content.AttachmentIDs, user.ID)
	if err != nil {
		return 0, err
	}

	payload, err := marshalContent(content, attachments)
	if err != nil {
		return 0, chitter.Fail(chitter.CouldNotCreateMessage)
	}

	var id int64
	err = d.pool.QueryRow(ctx,
		`INSERT INTO messages (user_id, content, channel_id, direct_message_user_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		user.ID, payload, channelID, directMessageUserID,
	).Scan(&id)
	if err != nil {
		return 0, chitter.Fail(chitter.CouldNotCreateMessage)
	}
	return id, nil
}

// checkMessageTarget enforces that exactly one of channelID/directMessageUserID is set and that the caller may
// address it: channel must be in the caller's room (and, if private, the caller must be a member).
func (d *PostgresChitterDatabase) checkMessageTarget(ctx context.Context, user *chitter.User, channelID, directMessageUserID *uuid.UUID) error {
	if channelID != nil && directMessageUserID != nil {
		return chitter.Fail(chitter.MessageCannotTargetBothAChannelAndADirectUser)
	}
	if channelID == nil && directMessageUserID == nil {
		return chitter.Fail(chitter.EitherChannelIdOrDirectMessageUserIdMustBeProvided)
	}

	if channelID != nil {
		channel, err := d.getChannelInRoom(ctx, *channelID, user.RoomID)
		if err != nil {
			return chitter.Fail(chitter.ChannelNotFoundInUsersRoom)
		}
		if channel.IsPrivate {
			member, err := d.isChannelMember(ctx, *channelID, user.ID)
			if err != nil {
				return chitter.Fail(chitter.UnknownServerError)
			}
			if !member {
				return chitter.Fail(chitter.UserIsNotMemberOfPrivateChannel)
			}
		}
		return nil
	}

	target, err := d.getUserByID(ctx, *directMessageUserID)
	if err != nil || target.RoomID != user.RoomID {
		return chitter.Fail(chitter.UserNotFound)
	}
	return nil
}

// resolveOwnedAttachments looks up every id and fails InvalidAttachmentIDs unless each one resolves to an
// attachment owned by ownerID.
func (d *PostgresChitterDatabase) resolveOwnedAttachments(ctx context.Context, ids []uuid.UUID, ownerID uuid.UUID) ([]chitter.Attachment, error) {
	attachments := make([]chitter.Attachment, 0, len(ids))
	for _, id := range ids {
		att, err := d.getOwnedAttachment(ctx, id, ownerID)
		if err != nil {
			return nil, chitter.Fail(chitter.InvalidAttachmentIDs)
		}
		attachments = append(attachments, *att)
	}
	return attachments, nil
}

// messageAuthorization fetches a message along with its author's room and role, for the shared remove/edit
// authorization check: the caller must be the author or an admin in the author's room.
func (d *PostgresChitterDatabase) messageAuthorization(ctx context.Context, messageID int64, user *chitter.User) (authorID uuid.UUID, err error) {
	var authorRoomID uuid.UUID
	err = d.pool.QueryRow(ctx,
		`SELECT m.user_id, u.room_id FROM messages m JOIN users u ON u.id = m.user_id WHERE m.id = $1`,
		messageID,
	).Scan(&authorID, &authorRoomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.UUID{}, chitter.Fail(chitter.MessageNotFound)
		}
		return uuid.UUID{}, chitter.Fail(chitter.UnknownServerError)
	}

	if authorID == user.ID {
		return authorID, nil
	}
	if user.Role == chitter.RoleAdmin && authorRoomID == user.RoomID {
		return authorID, nil
	}
	return uuid.UUID{}, nil
}

// RemoveMessage deletes a message. Permitted for its author or an admin in the author's room.
func (d *PostgresChitterDatabase) RemoveMessage(ctx context.Context, userToken string, messageID int64) error {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return err
	}

	authorID, err := d.messageAuthorization(ctx, messageID, user)
	if err != nil {
		return err
	}
	if authorID == (uuid.UUID{}) {
		return chitter.Fail(chitter.UserNotAuthorizedToDeleteThisMessage)
	}

	tag, err := d.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotRemoveMessage)
	}
	return nil
}

// EditMessage re-sanitizes content, re-resolves its attachment ids against the original author, and marks the
// message edited. Authorization mirrors RemoveMessage.
func (d *PostgresChitterDatabase) EditMessage(ctx context.Context, userToken string, messageID int64, rawContent any) error {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return err
	}

	authorID, err := d.messageAuthorization(ctx, messageID, user)
	if err != nil {
		return err
	}
	if authorID == (uuid.UUID{}) {
		return chitter.Fail(chitter.UserNotAuthorizedToEditThisMessage)
	}

	content, err := sanitize.Content(rawContent)
	if err != nil {
		return err
	}

	attachments, err := d.resolveOwnedAttachments(ctx, content.AttachmentIDs, authorID)
	if err != nil {
		return err
	}

	payload, err := marshalContent(content, attachments)
	if err != nil {
		return chitter.Fail(chitter.CouldNotEditMessage)
	}

	tag, err := d.pool.Exec(ctx, `UPDATE messages SET content = $1, edited = true WHERE id = $2`, payload, messageID)
	if err != nil || tag.RowsAffected() == 0 {
		return chitter.Fail(chitter.CouldNotEditMessage)
	}
	return nil
}

// GetMessages returns a descending-by-id page of messages from exactly one of a channel or a direct-message
// conversation, strictly below cursor when supplied.
func (d *PostgresChitterDatabase) GetMessages(ctx context.Context, userToken string, channelID, directMessageUserID *uuid.UUID, cursor *int64, limit int) ([]chitter.Message, error) {
	user, err := d.resolveUser(ctx, userToken)
	if err != nil {
		return nil, err
	}
	if err := d.checkMessageTarget(ctx, user, channelID, directMessageUserID); err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if channelID != nil {
		if cursor != nil {
			rows, err = d.pool.Query(ctx,
				`SELECT `+messageColumns+` FROM messages WHERE channel_id = $1 AND id < $2 ORDER BY id DESC LIMIT $3`,
				*channelID, *cursor, limit)
		} else {
			rows, err = d.pool.Query(ctx,
				`SELECT `+messageColumns+` FROM messages WHERE channel_id = $1 ORDER BY id DESC LIMIT $2`,
				*channelID, limit)
		}
	} else {
		if cursor != nil {
			rows, err = d.pool.Query(ctx,
				`SELECT `+messageColumns+` FROM messages
				 WHERE ((user_id = $1 AND direct_message_user_id = $2) OR (user_id = $2 AND direct_message_user_id = $1))
				   AND id < $3
				 ORDER BY id DESC LIMIT $4`,
				user.ID, *directMessageUserID, *cursor, limit)
		} else {
			rows, err = d.pool.Query(ctx,
				`SELECT `+messageColumns+` FROM messages
				 WHERE (user_id = $1 AND direct_message_user_id = $2) OR (user_id = $2 AND direct_message_user_id = $1)
				 ORDER BY id DESC LIMIT $3`,
				user.ID, *directMessageUserID, limit)
		}
	}
	if err != nil {
		return nil, chitter.Fail(chitter.CouldNotGetMessages)
	}
	defer rows.Close()

	var messages []chitter.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, chitter.Fail(chitter.CouldNotGetMessages)
		}
		messages = append(messages, *m)
	}
	if rows.Err() != nil {
		return nil, chitter.Fail(chitter.CouldNotGetMessages)
	}
	return messages, nil
}
