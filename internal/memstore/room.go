package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// channelEntry pairs a Channel with its private membership set, represented as user ids rather than pointers so
// channels and users never form a reference cycle (spec.md §9's "Cyclic data" design note).
type channelEntry struct {
	channel chitter.Channel
	members map[uuid.UUID]bool
}

// roomState is one tenant's entire authoritative state. Every mutation within a room is serialized by mu, satisfying
// spec.md §5's single-writer discipline.
type roomState struct {
	mu sync.Mutex

	room chitter.Room

	users       map[uuid.UUID]*chitter.User
	channels    map[uuid.UUID]*channelEntry
	attachments map[uuid.UUID]*chitter.Attachment

	messages     map[int64]*chitter.Message
	messageOrder []int64 // ascending by id; ids absent from `messages` are tombstones, skipped on read

	nextMessageID int64
}

func newRoomState(room chitter.Room) *roomState {
	return &roomState{
		room:        room,
		users:       make(map[uuid.UUID]*chitter.User),
		channels:    make(map[uuid.UUID]*channelEntry),
		attachments: make(map[uuid.UUID]*chitter.Attachment),
		messages:    make(map[int64]*chitter.Message),
	}
}

// CreateRoomAndAdmin creates the Room, its first admin User, and a public "General" channel atomically — all three
// are constructed before the room becomes visible to other callers, which happens in one step under cm.mu.
func (cm *ChitterMem) CreateRoomAndAdmin(_ context.Context, roomName, adminName string, adminInviteOnly bool) (*chitter.RoomAndAdmin, error) {
	now := time.Now().UTC()
	room := chitter.Room{
		ID:              uuid.New(),
		CreatedAt:       now,
		DisplayName:     roomName,
		AdminInviteOnly: adminInviteOnly,
	}
	admin := chitter.User{
		ID:          uuid.New(),
		RoomID:      room.ID,
		CreatedAt:   now,
		Token:       chitter.NewToken(),
		DisplayName: adminName,
		Role:        chitter.RoleAdmin,
	}
	general := chitter.Channel{
		ID:          uuid.New(),
		RoomID:      room.ID,
		CreatedAt:   now,
		DisplayName: "General",
		IsPrivate:   false,
		CreatedBy:   admin.ID,
	}

	rs := newRoomState(room)
	rs.users[admin.ID] = &admin
	rs.channels[general.ID] = &channelEntry{channel: general, members: make(map[uuid.UUID]bool)}

	cm.mu.Lock()
	cm.rooms[room.ID] = rs
	cm.tokens[admin.Token] = tokenEntry{roomID: room.ID, userID: admin.ID}
	cm.mu.Unlock()

	return &chitter.RoomAndAdmin{Room: room, Admin: admin, GeneralChannel: general}, nil
}

// UpdateRoom mutates display name, invite policy, description, and logo for the admin's own room.
func (cm *ChitterMem) UpdateRoom(_ context.Context, adminToken string, params chitter.UpdateRoomParams) error {
	rs, _, err := cm.resolveAdmin(adminToken)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if params.LogoID != nil {
		att, ok := rs.attachments[*params.LogoID]
		if !ok || att.Type != chitter.AttachmentImage {
			return chitter.Fail(chitter.InvalidOrNonImageLogoAttachment)
		}
	}

	room := rs.room
	room.DisplayName = params.DisplayName
	room.AdminInviteOnly = params.AdminInviteOnly
	if params.Description != nil {
		room.Description = *params.Description
	}
	room.LogoAttachment = params.LogoID
	rs.room = room
	return nil
}

// GetRoom returns the caller's own room. Any other room id is reported as RoomNotFound.
func (cm *ChitterMem) GetRoom(_ context.Context, userToken string, roomID uuid.UUID) (*chitter.Room, error) {
	rs, _, err := cm.resolveUser(userToken)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.room.ID != roomID {
		return nil, chitter.Fail(chitter.RoomNotFound)
	}
	room := rs.room
	return &room, nil
}

// resolveUser resolves a bearer token to its owning roomState and User. The returned roomState is not locked; callers
// lock it for the duration of their own critical section.
func (cm *ChitterMem) resolveUser(token string) (*roomState, *chitter.User, error) {
	cm.mu.RLock()
	entry, ok := cm.tokens[token]
	cm.mu.RUnlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidUserToken)
	}

	cm.mu.RLock()
	rs, ok := cm.rooms[entry.roomID]
	cm.mu.RUnlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidUserToken)
	}

	rs.mu.Lock()
	user, ok := rs.users[entry.userID]
	rs.mu.Unlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidUserToken)
	}
	u := *user
	return rs, &u, nil
}

// resolveAdmin is resolveUser plus the admin-role requirement.
func (cm *ChitterMem) resolveAdmin(token string) (*roomState, *chitter.User, error) {
	cm.mu.RLock()
	entry, ok := cm.tokens[token]
	cm.mu.RUnlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidAdminToken)
	}

	cm.mu.RLock()
	rs, ok := cm.rooms[entry.roomID]
	cm.mu.RUnlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidAdminToken)
	}

	rs.mu.Lock()
	user, ok := rs.users[entry.userID]
	rs.mu.Unlock()
	if !ok {
		return nil, nil, chitter.Fail(chitter.InvalidAdminToken)
	}
	if user.Role != chitter.RoleAdmin {
		return nil, nil, chitter.Fail(chitter.InvalidAdminTokenOrNonAdminUser)
	}
	u := *user
	return rs, &u, nil
}
