package memstore

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// channelSnapshot pairs a Channel with its private membership, as a list of ids rather than a set, for stable JSON
// serialization.
type channelSnapshot struct {
	Channel chitter.Channel `json:"channel"`
	UserIDs []uuid.UUID     `json:"userIds"`
}

// RoomSnapshot is the serialized form of one roomState, per spec.md §4.5's snapshot format.
type RoomSnapshot struct {
	Room          chitter.Room          `json:"room"`
	Users         []chitter.User        `json:"users"`
	Channels      []channelSnapshot     `json:"channels"`
	Attachments   []chitter.Attachment  `json:"attachments"`
	Messages      []chitter.Message     `json:"messages"`
	NextMessageID int64                 `json:"nextMessageId"`
}

// Snapshot serializes every room's current state. Each room is locked only long enough to copy its contents.
func (cm *ChitterMem) Snapshot() []RoomSnapshot {
	cm.mu.RLock()
	rooms := make([]*roomState, 0, len(cm.rooms))
	for _, rs := range cm.rooms {
		rooms = append(rooms, rs)
	}
	cm.mu.RUnlock()

	snapshots := make([]RoomSnapshot, 0, len(rooms))
	for _, rs := range rooms {
		rs.mu.Lock()

		users := make([]chitter.User, 0, len(rs.users))
		for _, u := range rs.users {
			users = append(users, *u)
		}

		channels := make([]channelSnapshot, 0, len(rs.channels))
		for _, entry := range rs.channels {
			ids := make([]uuid.UUID, 0, len(entry.members))
			for id := range entry.members {
				ids = append(ids, id)
			}
			channels = append(channels, channelSnapshot{Channel: entry.channel, UserIDs: ids})
		}

		attachments := make([]chitter.Attachment, 0, len(rs.attachments))
		for _, a := range rs.attachments {
			attachments = append(attachments, *a)
		}

		messages := make([]chitter.Message, 0, len(rs.messageOrder))
		for _, id := range rs.messageOrder {
			if m, ok := rs.messages[id]; ok {
				messages = append(messages, *m)
			}
		}

		snapshots = append(snapshots, RoomSnapshot{
			Room:          rs.room,
			Users:         users,
			Channels:      channels,
			Attachments:   attachments,
			Messages:      messages,
			NextMessageID: rs.nextMessageID,
		})

		rs.mu.Unlock()
	}
	return snapshots
}

// restore rebuilds every room and its derived indexes (cm.rooms, cm.tokens) from a snapshot. Called once, from New,
// before cm is visible to any other goroutine.
func (cm *ChitterMem) restore(snapshot []RoomSnapshot) {
	for _, rec := range snapshot {
		rs := newRoomState(rec.Room)
		rs.nextMessageID = rec.NextMessageID

		for _, u := range rec.Users {
			user := u
			rs.users[user.ID] = &user
			cm.tokens[user.Token] = tokenEntry{roomID: rec.Room.ID, userID: user.ID}
		}

		for _, cs := range rec.Channels {
			members := make(map[uuid.UUID]bool, len(cs.UserIDs))
			for _, id := range cs.UserIDs {
				members[id] = true
			}
			channel := cs.Channel
			rs.channels[channel.ID] = &channelEntry{channel: channel, members: members}
		}

		for _, a := range rec.Attachments {
			attachment := a
			rs.attachments[attachment.ID] = &attachment
		}

		for _, m := range rec.Messages {
			message := m
			rs.messages[message.ID] = &message
			rs.messageOrder = append(rs.messageOrder, message.ID)
		}

		cm.rooms[rec.Room.ID] = rs
	}
}

// FileSnapshotStore persists snapshots as a single UTF-8 JSON file, per spec.md §6's "Persistent-snapshot format". A
// missing file loads as an empty snapshot rather than an error.
type FileSnapshotStore struct {
	Path string
}

func (f FileSnapshotStore) Load(_ context.Context) ([]RoomSnapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var snapshot []RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (f FileSnapshotStore) Save(_ context.Context, snapshot []RoomSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

var (
	_ Loader = FileSnapshotStore{}
	_ Saver  = FileSnapshotStore{}
)
