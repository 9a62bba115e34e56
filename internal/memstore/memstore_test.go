package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/credential"
)

func textContent(text string) map[string]any {
	return map[string]any{"text": text}
}

func newTestStore(t *testing.T) *ChitterMem {
	t.Helper()
	registry := credential.NewMemRegistry(time.Hour, zerolog.Nop())
	cm, err := New(context.Background(), registry, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := cm.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return cm
}

func TestCreateRoomAndAdmin_CreatesGeneralChannel(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}
	if ra.Admin.Role != chitter.RoleAdmin {
		t.Errorf("admin role = %v, want admin", ra.Admin.Role)
	}
	if ra.GeneralChannel.IsPrivate {
		t.Errorf("general channel should be public")
	}

	channels, err := cm.GetChannels(ctx, ra.Admin.Token)
	if err != nil {
		t.Fatalf("GetChannels: %v", err)
	}
	if len(channels) != 1 || channels[0].ID != ra.GeneralChannel.ID {
		t.Errorf("GetChannels = %+v, want exactly the general channel", channels)
	}
}

func TestInviteAndJoin_AddsParticipantVisibleToRoom(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}

	code, err := cm.CreateInviteCode(ctx, ra.Admin.Token)
	if err != nil {
		t.Fatalf("CreateInviteCode: %v", err)
	}

	user, err := cm.CreateUserFromInviteCode(ctx, code, "Bea")
	if err != nil {
		t.Fatalf("CreateUserFromInviteCode: %v", err)
	}
	if user.Role != chitter.RoleParticipant {
		t.Errorf("new user role = %v, want participant", user.Role)
	}

	// One-shot: reusing the code must fail.
	if _, err := cm.CreateUserFromInviteCode(ctx, code, "Carl"); chitter.TagOf(err) != chitter.InvalidInviteCode {
		t.Errorf("second use of invite code: err = %v, want InvalidInviteCode", err)
	}

	users, err := cm.GetUsers(ctx, ra.Admin.Token, nil)
	if err != nil {
		t.Fatalf("GetUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("GetUsers returned %d users, want 2", len(users))
	}
}

func TestAdminInviteOnly_BlocksParticipantInvites(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", true)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}
	code, err := cm.CreateInviteCode(ctx, ra.Admin.Token)
	if err != nil {
		t.Fatalf("CreateInviteCode: %v", err)
	}
	participant, err := cm.CreateUserFromInviteCode(ctx, code, "Bea")
	if err != nil {
		t.Fatalf("CreateUserFromInviteCode: %v", err)
	}

	if _, err := cm.CreateInviteCode(ctx, participant.Token); chitter.TagOf(err) != chitter.UserIsNotAdminAndRoomIsAdminInviteOnly {
		t.Errorf("participant CreateInviteCode: err = %v, want UserIsNotAdminAndRoomIsAdminInviteOnly", err)
	}
}

func TestPrivateChannelLifecycle(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}
	code, _ := cm.CreateInviteCode(ctx, ra.Admin.Token)
	bea, err := cm.CreateUserFromInviteCode(ctx, code, "Bea")
	if err != nil {
		t.Fatalf("CreateUserFromInviteCode: %v", err)
	}

	channelID, err := cm.CreateChannel(ctx, ra.Admin.Token, "secret", true)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	// Non-member cannot post.
	if _, err := cm.CreateMessage(ctx, bea.Token, textContent("hi"), &channelID, nil); chitter.TagOf(err) != chitter.UserIsNotMemberOfPrivateChannel {
		t.Errorf("non-member CreateMessage: err = %v, want UserIsNotMemberOfPrivateChannel", err)
	}

	if err := cm.AddUserToChannel(ctx, ra.Admin.Token, bea.ID, channelID); err != nil {
		t.Fatalf("AddUserToChannel: %v", err)
	}
	if _, err := cm.CreateMessage(ctx, bea.Token, textContent("hi"), &channelID, nil); err != nil {
		t.Errorf("member CreateMessage: %v", err)
	}

	if err := cm.RemoveUserFromChannel(ctx, ra.Admin.Token, bea.ID, channelID); err != nil {
		t.Fatalf("RemoveUserFromChannel: %v", err)
	}
	if _, err := cm.CreateMessage(ctx, bea.Token, textContent("hi again"), &channelID, nil); chitter.TagOf(err) != chitter.UserIsNotMemberOfPrivateChannel {
		t.Errorf("removed member CreateMessage: err = %v, want UserIsNotMemberOfPrivateChannel", err)
	}

	if err := cm.RemoveChannel(ctx, ra.Admin.Token, channelID); err != nil {
		t.Fatalf("RemoveChannel: %v", err)
	}
	if _, err := cm.GetChannel(ctx, ra.Admin.Token, channelID); chitter.TagOf(err) != chitter.ChannelNotFound {
		t.Errorf("GetChannel after removal: err = %v, want ChannelNotFound", err)
	}
}

func TestMessagePaging_DescendingCursor(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}

	const total = 9
	var ids []int64
	for i := 0; i < total; i++ {
		id, err := cm.CreateMessage(ctx, ra.Admin.Token, textContent("msg"), &ra.GeneralChannel.ID, nil)
		if err != nil {
			t.Fatalf("CreateMessage %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	const pageSize = 2
	var collected []int64
	var cursor *int64
	for i := 0; i < 5; i++ {
		page, err := cm.GetMessages(ctx, ra.Admin.Token, &ra.GeneralChannel.ID, nil, cursor, pageSize)
		if err != nil {
			t.Fatalf("GetMessages page %d: %v", i, err)
		}
		for _, m := range page {
			collected = append(collected, m.ID)
		}
		if len(page) == 0 {
			break
		}
		last := page[len(page)-1].ID
		cursor = &last
	}

	if len(collected) != total {
		t.Fatalf("collected %d messages across pages, want %d", len(collected), total)
	}
	for i, id := range collected {
		want := ids[total-1-i]
		if id != want {
			t.Errorf("collected[%d] = %d, want %d (descending order)", i, id, want)
		}
	}
}

func TestDirectMessages_SymmetricBetweenBothParticipants(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}
	code, _ := cm.CreateInviteCode(ctx, ra.Admin.Token)
	bea, err := cm.CreateUserFromInviteCode(ctx, code, "Bea")
	if err != nil {
		t.Fatalf("CreateUserFromInviteCode: %v", err)
	}

	if _, err := cm.CreateMessage(ctx, ra.Admin.Token, textContent("hi Bea"), nil, &bea.ID); err != nil {
		t.Fatalf("CreateMessage from admin: %v", err)
	}
	if _, err := cm.CreateMessage(ctx, bea.Token, textContent("hi Ada"), nil, &ra.Admin.ID); err != nil {
		t.Fatalf("CreateMessage from Bea: %v", err)
	}

	fromAdmin, err := cm.GetMessages(ctx, ra.Admin.Token, nil, &bea.ID, nil, 10)
	if err != nil {
		t.Fatalf("GetMessages (admin view): %v", err)
	}
	fromBea, err := cm.GetMessages(ctx, bea.Token, nil, &ra.Admin.ID, nil, 10)
	if err != nil {
		t.Fatalf("GetMessages (Bea view): %v", err)
	}

	if len(fromAdmin) != 2 || len(fromBea) != 2 {
		t.Fatalf("fromAdmin = %d, fromBea = %d, want 2 each", len(fromAdmin), len(fromBea))
	}
}

func TestSnapshotRoundTrip_RestoresRoomsAndTokens(t *testing.T) {
	t.Parallel()
	cm := newTestStore(t)
	ctx := context.Background()

	ra, err := cm.CreateRoomAndAdmin(ctx, "Acme", "Ada", false)
	if err != nil {
		t.Fatalf("CreateRoomAndAdmin: %v", err)
	}
	if _, err := cm.CreateMessage(ctx, ra.Admin.Token, textContent("hello"), &ra.GeneralChannel.ID, nil); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	snapshot := cm.Snapshot()

	registry := credential.NewMemRegistry(time.Hour, zerolog.Nop())
	restored, err := New(ctx, registry, stubLoader{snapshot: snapshot}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New (restore): %v", err)
	}
	defer restored.Close(ctx)

	room, err := restored.GetRoom(ctx, ra.Admin.Token, ra.Room.ID)
	if err != nil {
		t.Fatalf("GetRoom after restore: %v", err)
	}
	if room.DisplayName != "Acme" {
		t.Errorf("restored room display name = %q, want Acme", room.DisplayName)
	}

	messages, err := restored.GetMessages(ctx, ra.Admin.Token, &ra.GeneralChannel.ID, nil, nil, 10)
	if err != nil {
		t.Fatalf("GetMessages after restore: %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("restored messages = %d, want 1", len(messages))
	}
}

type stubLoader struct {
	snapshot []RoomSnapshot
}

func (s stubLoader) Load(_ context.Context) ([]RoomSnapshot, error) {
	return s.snapshot, nil
}
