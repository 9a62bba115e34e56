package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// CreateInviteCode mints a 24h invite code scoped to the caller's room. Blocked only when the room is
// admin-invite-only and the caller is not an admin (spec.md §9's resolution of the SQL/in-memory discrepancy).
func (cm *ChitterMem) CreateInviteCode(ctx context.Context, userToken string) (string, error) {
	rs, user, err := cm.resolveUser(userToken)
	if err != nil {
		return "", chitter.Fail(chitter.UserNotFound)
	}

	rs.mu.Lock()
	adminInviteOnly := rs.room.AdminInviteOnly
	rs.mu.Unlock()

	if adminInviteOnly && user.Role != chitter.RoleAdmin {
		return "", chitter.Fail(chitter.UserIsNotAdminAndRoomIsAdminInviteOnly)
	}

	code, err := cm.registry.MintInvite(ctx, user.RoomID)
	if err != nil {
		return "", chitter.Fail(chitter.CouldNotCreateInviteCode)
	}
	return code, nil
}

// CreateUserFromInviteCode consumes an invite code and creates a participant user. A display name collision fails
// without consuming the code.
func (cm *ChitterMem) CreateUserFromInviteCode(ctx context.Context, code, displayName string) (*chitter.User, error) {
	roomID, ok, err := cm.registry.PeekInvite(ctx, code)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidInviteCode)
	}

	cm.mu.RLock()
	rs, ok := cm.rooms[roomID]
	cm.mu.RUnlock()
	if !ok {
		return nil, chitter.Fail(chitter.InvalidInviteCode)
	}

	rs.mu.Lock()
	for _, u := range rs.users {
		if u.DisplayName == displayName {
			rs.mu.Unlock()
			return nil, chitter.Fail(chitter.DisplayNameAlreadyExistsInTheRoom)
		}
	}
	rs.mu.Unlock()

	roomID, ok, err = cm.registry.ConsumeInvite(ctx, code)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidInviteCode)
	}

	user := chitter.User{
		ID:          uuid.New(),
		RoomID:      roomID,
		CreatedAt:   time.Now().UTC(),
		Token:       chitter.NewToken(),
		DisplayName: displayName,
		Role:        chitter.RoleParticipant,
	}

	rs.mu.Lock()
	rs.users[user.ID] = &user
	rs.mu.Unlock()

	cm.mu.Lock()
	cm.tokens[user.Token] = tokenEntry{roomID: roomID, userID: user.ID}
	cm.mu.Unlock()

	return &user, nil
}

// RemoveUser revokes a user by rotating their token and wiping their private-channel memberships. Authored messages
// are preserved.
func (cm *ChitterMem) RemoveUser(_ context.Context, userID uuid.UUID, adminToken string) error {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	target, ok := rs.users[userID]
	if !ok || target.RoomID != admin.RoomID {
		rs.mu.Unlock()
		return chitter.Fail(chitter.UserNotFoundInAdminsRoom)
	}

	oldToken := target.Token
	newToken := chitter.NewToken()
	target.Token = newToken

	for _, ch := range rs.channels {
		delete(ch.members, userID)
	}
	rs.mu.Unlock()

	cm.mu.Lock()
	delete(cm.tokens, oldToken)
	cm.tokens[newToken] = tokenEntry{roomID: admin.RoomID, userID: userID}
	cm.mu.Unlock()

	return nil
}

// UpdateUser mutates the caller's own profile. A provided avatar must be an image attachment owned by the caller.
func (cm *ChitterMem) UpdateUser(_ context.Context, userToken string, params chitter.UpdateUserParams) error {
	rs, caller, err := cm.resolveUser(userToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if params.Avatar != nil {
		att, ok := rs.attachments[*params.Avatar]
		if !ok || att.Type != chitter.AttachmentImage || att.UserID != caller.ID {
			return chitter.Fail(chitter.InvalidOrNonImageAvatarAttachment)
		}
	}

	user := rs.users[caller.ID]
	if params.DisplayName != nil {
		user.DisplayName = *params.DisplayName
	}
	if params.Description != nil {
		user.Description = *params.Description
	}
	if params.Avatar != nil {
		user.AvatarAttachment = params.Avatar
	}
	return nil
}

// SetUserRole changes a user's role. Scope-checked against the admin's room.
func (cm *ChitterMem) SetUserRole(_ context.Context, adminToken string, userID uuid.UUID, role chitter.Role) error {
	rs, admin, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	target, ok := rs.users[userID]
	if !ok || target.RoomID != admin.RoomID {
		return chitter.Fail(chitter.UserNotFoundInAdminsRoom)
	}
	target.Role = role
	return nil
}

// GetUsers returns every user in the caller's room, optionally filtered to members of a given channel.
func (cm *ChitterMem) GetUsers(_ context.Context, userToken string, channelID *uuid.UUID) ([]chitter.User, error) {
	rs, _, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	var members map[uuid.UUID]bool
	if channelID != nil {
		ch, ok := rs.channels[*channelID]
		if !ok {
			return nil, chitter.Fail(chitter.ChannelNotFound)
		}
		members = ch.members
	}

	var users []chitter.User
	for _, u := range rs.users {
		if members != nil && !members[u.ID] {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

// GetUser returns a single user scoped to the caller's room.
func (cm *ChitterMem) GetUser(_ context.Context, userToken string, userID uuid.UUID) (*chitter.User, error) {
	rs, caller, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	target, ok := rs.users[userID]
	if !ok || target.RoomID != caller.RoomID {
		return nil, chitter.Fail(chitter.UserNotFound)
	}
	u := *target
	return &u, nil
}

// CreateTransferBundle mints a 1h transfer code bundling the userIds resolved from the given tokens. The call is
// unauthenticated by design — possession of valid tokens is the proof of control.
func (cm *ChitterMem) CreateTransferBundle(ctx context.Context, userTokens []string) (string, error) {
	var userIDs []uuid.UUID
	for _, token := range userTokens {
		cm.mu.RLock()
		entry, ok := cm.tokens[token]
		cm.mu.RUnlock()
		if ok {
			userIDs = append(userIDs, entry.userID)
		}
	}
	if len(userIDs) == 0 {
		return "", chitter.Fail(chitter.NoValidTokens)
	}

	code, err := cm.registry.MintTransfer(ctx, userIDs)
	if err != nil {
		return "", chitter.Fail(chitter.CouldNotCreateTransferCode)
	}
	return code, nil
}

// GetTransferBundleFromCode consumes a transfer code and returns the bundled users, tokens included.
func (cm *ChitterMem) GetTransferBundleFromCode(ctx context.Context, transferCode string) ([]chitter.User, error) {
	userIDs, ok, err := cm.registry.ConsumeTransfer(ctx, transferCode)
	if err != nil || !ok {
		return nil, chitter.Fail(chitter.InvalidOrExpiredTransferCode)
	}

	var users []chitter.User

	// Token lookup is keyed by token, not user id, so resolve each bundled user id by scanning rooms directly.
	cm.mu.RLock()
	rooms := make([]*roomState, 0, len(cm.rooms))
	for _, rs := range cm.rooms {
		rooms = append(rooms, rs)
	}
	cm.mu.RUnlock()

	for _, id := range userIDs {
		for _, rs := range rooms {
			rs.mu.Lock()
			if u, ok := rs.users[id]; ok {
				users = append(users, *u)
			}
			rs.mu.Unlock()
		}
	}
	return users, nil
}
