package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// CreateChannel creates a channel in the admin's room. Private channels auto-add the creating admin as a member.
func (cm *ChitterMem) CreateChannel(_ context.Context, adminToken, displayName string, isPrivate bool) (uuid.UUID, error) {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return uuid.UUID{}, err
	}

	channel := chitter.Channel{
		ID:          uuid.New(),
		RoomID:      admin.RoomID,
		CreatedAt:   time.Now().UTC(),
		DisplayName: displayName,
		IsPrivate:   isPrivate,
		CreatedBy:   admin.ID,
	}
	entry := &channelEntry{channel: channel, members: make(map[uuid.UUID]bool)}
	if isPrivate {
		entry.members[admin.ID] = true
	}

	rs.mu.Lock()
	rs.channels[channel.ID] = entry
	rs.mu.Unlock()

	return channel.ID, nil
}

// RemoveChannel deletes a channel and every message it contains. Removing a channel id that does not exist (or
// belongs to another room) is a no-op success (spec.md §9's resolution of the cascading-delete bug).
func (cm *ChitterMem) RemoveChannel(_ context.Context, adminToken string, channelID uuid.UUID) error {
	rs, _, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	delete(rs.channels, channelID)
	for id, m := range rs.messages {
		if m.ChannelID != nil && *m.ChannelID == channelID {
			delete(rs.messages, id)
		}
	}
	return nil
}

// UpdateChannel patches display name and/or description. A nil field in params leaves it unchanged.
func (cm *ChitterMem) UpdateChannel(_ context.Context, adminToken string, channelID uuid.UUID, params chitter.UpdateChannelParams) error {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.channels[channelID]
	if !ok || entry.channel.RoomID != admin.RoomID {
		return chitter.Fail(chitter.ChannelNotFoundInUsersRoom)
	}
	if params.DisplayName != nil {
		entry.channel.DisplayName = *params.DisplayName
	}
	if params.Description != nil {
		entry.channel.Description = *params.Description
	}
	return nil
}

// GetChannels returns every public channel in the caller's room plus every private channel the caller belongs to.
func (cm *ChitterMem) GetChannels(_ context.Context, userToken string) ([]chitter.Channel, error) {
	rs, caller, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	var channels []chitter.Channel
	for _, entry := range rs.channels {
		if !entry.channel.IsPrivate || entry.members[caller.ID] {
			channels = append(channels, entry.channel)
		}
	}
	return channels, nil
}

// GetChannel returns a single channel subject to the same public-or-member visibility rule as GetChannels.
func (cm *ChitterMem) GetChannel(_ context.Context, userToken string, channelID uuid.UUID) (*chitter.Channel, error) {
	rs, caller, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.channels[channelID]
	if !ok || (entry.channel.IsPrivate && !entry.members[caller.ID]) {
		return nil, chitter.Fail(chitter.ChannelNotFound)
	}
	c := entry.channel
	return &c, nil
}

// AddUserToChannel adds userID to a private channel's membership set. Adding an existing member is a no-op success.
func (cm *ChitterMem) AddUserToChannel(_ context.Context, adminToken string, userID, channelID uuid.UUID) error {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.channels[channelID]
	if !ok || entry.channel.RoomID != admin.RoomID || !entry.channel.IsPrivate {
		return chitter.Fail(chitter.ChannelNotFoundOrNotPrivate)
	}
	entry.members[userID] = true
	return nil
}

// RemoveUserFromChannel removes userID from a private channel's membership set. Removing a non-member is a no-op
// success.
func (cm *ChitterMem) RemoveUserFromChannel(_ context.Context, adminToken string, userID, channelID uuid.UUID) error {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.channels[channelID]
	if !ok || entry.channel.RoomID != admin.RoomID || !entry.channel.IsPrivate {
		return chitter.Fail(chitter.ChannelNotFoundOrNotPrivate)
	}
	delete(entry.members, userID)
	return nil
}
