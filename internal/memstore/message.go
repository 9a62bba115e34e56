package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/sanitize"
)

// checkMessageTarget enforces that exactly one of channelID/directMessageUserID is set and that the caller may
// address it. Caller must already hold rs.mu.
func checkMessageTarget(rs *roomState, user *chitter.User, channelID, directMessageUserID *uuid.UUID) error {
	if channelID != nil && directMessageUserID != nil {
		return chitter.Fail(chitter.MessageCannotTargetBothAChannelAndADirectUser)
	}
	if channelID == nil && directMessageUserID == nil {
		return chitter.Fail(chitter.EitherChannelIdOrDirectMessageUserIdMustBeProvided)
	}

	if channelID != nil {
		entry, ok := rs.channels[*channelID]
		if !ok {
			return chitter.Fail(chitter.ChannelNotFoundInUsersRoom)
		}
		if entry.channel.IsPrivate && !entry.members[user.ID] {
			return chitter.Fail(chitter.UserIsNotMemberOfPrivateChannel)
		}
		return nil
	}

	target, ok := rs.users[*directMessageUserID]
	if !ok || target.RoomID != user.RoomID {
		return chitter.Fail(chitter.UserNotFound)
	}
	return nil
}

// resolveOwnedAttachments looks up every id and fails InvalidAttachmentIDs unless each one resolves to an attachment
// owned by ownerID. Caller must already hold rs.mu.
func resolveOwnedAttachments(rs *roomState, ids []uuid.UUID, ownerID uuid.UUID) ([]chitter.Attachment, error) {
	attachments := make([]chitter.Attachment, 0, len(ids))
	for _, id := range ids {
		att, ok := rs.attachments[id]
		if !ok || att.UserID != ownerID {
			return nil, chitter.Fail(chitter.InvalidAttachmentIDs)
		}
		attachments = append(attachments, *att)
	}
	return attachments, nil
}

// CreateMessage validates target scope and content, resolves referenced attachments, and appends a message whose id
// is strictly greater than every previously assigned id in this room (rs.nextMessageID, per spec.md §4.5).
func (cm *ChitterMem) CreateMessage(_ context.Context, userToken string, rawContent any, channelID, directMessageUserID *uuid.UUID) (int64, error) {
	rs, user, err := cm.resolveUser(userToken)
	if err != nil {
		return 0, err
	}

	content, err := sanitize.Content(rawContent)
	if err != nil {
		return 0, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := checkMessageTarget(rs, user, channelID, directMessageUserID); err != nil {
		return 0, err
	}

	attachments, err := resolveOwnedAttachments(rs, content.AttachmentIDs, user.ID)
	if err != nil {
		return 0, err
	}
	content.Attachments = attachments

	rs.nextMessageID++
	id := rs.nextMessageID
	message := &chitter.Message{
		ID:                  id,
		RoomID:              rs.room.ID,
		UserID:              user.ID,
		CreatedAt:           time.Now().UTC(),
		Content:             content,
		ChannelID:           channelID,
		DirectMessageUserID: directMessageUserID,
	}
	rs.messages[id] = message
	rs.messageOrder = append(rs.messageOrder, id)

	return id, nil
}

// messageAuthorization reports the author of messageID and whether the caller may act on it — as its author, or as
// an admin in the author's room. Caller must already hold rs.mu.
func messageAuthorization(rs *roomState, messageID int64, user *chitter.User) (authorID uuid.UUID, authorized bool, ok bool) {
	m, found := rs.messages[messageID]
	if !found {
		return uuid.UUID{}, false, false
	}
	if m.UserID == user.ID {
		return m.UserID, true, true
	}
	if user.Role == chitter.RoleAdmin {
		return m.UserID, true, true
	}
	return m.UserID, false, true
}

// RemoveMessage deletes a message. Permitted for its author or an admin in the author's room.
func (cm *ChitterMem) RemoveMessage(_ context.Context, userToken string, messageID int64) error {
	rs, user, err := cm.resolveUser(userToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	_, authorized, found := messageAuthorization(rs, messageID, user)
	if !found {
		return chitter.Fail(chitter.MessageNotFound)
	}
	if !authorized {
		return chitter.Fail(chitter.UserNotAuthorizedToDeleteThisMessage)
	}

	delete(rs.messages, messageID)
	return nil
}

// EditMessage re-sanitizes content, re-resolves its attachment ids against the original author, and marks the
// message edited. Authorization mirrors RemoveMessage.
func (cm *ChitterMem) EditMessage(_ context.Context, userToken string, messageID int64, rawContent any) error {
	rs, user, err := cm.resolveUser(userToken)
	if err != nil {
		return err
	}

	content, err := sanitize.Content(rawContent)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	authorID, authorized, found := messageAuthorization(rs, messageID, user)
	if !found {
		return chitter.Fail(chitter.MessageNotFound)
	}
	if !authorized {
		return chitter.Fail(chitter.UserNotAuthorizedToEditThisMessage)
	}

	attachments, err := resolveOwnedAttachments(rs, content.AttachmentIDs, authorID)
	if err != nil {
		return err
	}
	content.Attachments = attachments

	m := rs.messages[messageID]
	m.Content = content
	m.Edited = true
	return nil
}

// GetMessages returns a descending-by-id page of messages from exactly one of a channel or a direct-message
// conversation, strictly below cursor when supplied.
func (cm *ChitterMem) GetMessages(_ context.Context, userToken string, channelID, directMessageUserID *uuid.UUID, cursor *int64, limit int) ([]chitter.Message, error) {
	rs, user, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := checkMessageTarget(rs, user, channelID, directMessageUserID); err != nil {
		return nil, err
	}

	var messages []chitter.Message
	for i := len(rs.messageOrder) - 1; i >= 0 && len(messages) < limit; i-- {
		id := rs.messageOrder[i]
		if cursor != nil && id >= *cursor {
			continue
		}
		m, ok := rs.messages[id]
		if !ok {
			continue // tombstone: removed since being appended to messageOrder
		}
		switch {
		case channelID != nil:
			if m.ChannelID == nil || *m.ChannelID != *channelID {
				continue
			}
		default:
			if m.DirectMessageUserID == nil {
				continue
			}
			isPair := (m.UserID == user.ID && *m.DirectMessageUserID == *directMessageUserID) ||
				(m.UserID == *directMessageUserID && *m.DirectMessageUserID == user.ID)
			if !isPair {
				continue
			}
		}
		messages = append(messages, *m)
	}
	return messages, nil
}
