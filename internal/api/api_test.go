package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/credential"
	"github.com/chitter-chat/chitter-server/internal/memstore"
)

// newTestApp wires the room, invite, user, channel and message handlers against a real in-memory Chat Service (no
// snapshot persistence), on the same paths cmd/chitter/main.go uses for them; the attachment, media, health and
// shutdown routes are not mounted. Handler tests exercise the whole HTTP-edge-to-service path without a
// database, following the teacher's app.Test()-driven api package tests.
func newTestApp(t *testing.T) (*fiber.App, chitter.Service) {
	t.Helper()
	registry := credential.NewMemRegistry(time.Hour, zerolog.Nop())
	svc, err := memstore.New(context.Background(), registry, nil, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("memstore.New: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(context.Background()); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	app := fiber.New()
	roomHandler := NewRoomHandler(svc, zerolog.Nop())
	userHandler := NewUserHandler(svc, zerolog.Nop())
	channelHandler := NewChannelHandler(svc, zerolog.Nop())
	messageHandler := NewMessageHandler(svc, zerolog.Nop())

	app.Post("/api/v1/rooms", roomHandler.Create)
	app.Get("/api/v1/rooms/:roomID", roomHandler.Get)
	app.Patch("/api/v1/rooms/:roomID", roomHandler.Update)
	app.Post("/api/v1/invites", roomHandler.CreateInvite)
	app.Post("/api/v1/invites/:code/join", roomHandler.Join)

	app.Delete("/api/v1/users/:userID", userHandler.Remove)
	app.Patch("/api/v1/users/@me", userHandler.UpdateSelf)
	app.Put("/api/v1/users/:userID/role", userHandler.SetRole)
	app.Get("/api/v1/users", userHandler.List)
	app.Get("/api/v1/users/:userID", userHandler.Get)

	app.Post("/api/v1/channels", channelHandler.Create)
	app.Delete("/api/v1/channels/:channelID", channelHandler.Remove)
	app.Get("/api/v1/channels", channelHandler.List)
	app.Get("/api/v1/channels/:channelID", channelHandler.Get)
	app.Put("/api/v1/channels/:channelID/members/:userID", channelHandler.AddMember)
	app.Delete("/api/v1/channels/:channelID/members/:userID", channelHandler.RemoveMember)

	app.Post("/api/v1/messages", messageHandler.Create)
	app.Get("/api/v1/messages", messageHandler.List)
	app.Patch("/api/v1/messages/:messageID", messageHandler.Edit)
	app.Delete("/api/v1/messages/:messageID", messageHandler.Remove)

	return app, svc
}

// doJSON performs req against app and decodes the envelope's data field into out (if non-nil).
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any, out any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out != nil {
		raw, err := json.Marshal(envelope["data"])
		if err != nil {
			t.Fatalf("marshal data: %v", err)
		}
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
	}
	return resp.StatusCode, envelope
}

func TestRoomCreateAndGet(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	var created struct {
		Room  struct {
			ID string `json:"id"`
		} `json:"room"`
		Admin struct {
			Token string `json:"token"`
			Role  string `json:"role"`
		} `json:"admin"`
	}
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "Acme", "adminName": "Ada", "adminInviteOnly": false,
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if created.Admin.Role != "admin" {
		t.Fatalf("admin role = %q, want admin", created.Admin.Role)
	}

	var room struct {
		DisplayName string `json:"displayName"`
	}
	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/rooms/"+created.Room.ID, created.Admin.Token, nil, &room)
	if status != http.StatusOK {
		t.Fatalf("get status = %d", status)
	}
	if room.DisplayName != "Acme" {
		t.Fatalf("displayName = %q, want Acme", room.DisplayName)
	}
}

func TestRoomGet_OtherRoomRejected(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	var first struct {
		Admin struct {
			Token string `json:"token"`
		} `json:"admin"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "First", "adminName": "A",
	}, &first)

	var second struct {
		Room struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "Second", "adminName": "B",
	}, &second)

	status, envelope := doJSON(t, app, http.MethodGet, "/api/v1/rooms/"+second.Room.ID, first.Admin.Token, nil, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if envelope["error"] != string(chitter.RoomNotFound) {
		t.Fatalf("error = %v, want RoomNotFound", envelope["error"])
	}
}

func TestInviteJoinAndListUsers(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	var admin struct {
		Admin struct {
			Token string `json:"token"`
		} `json:"admin"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "Acme", "adminName": "Ada",
	}, &admin)

	var invite struct {
		Code string `json:"code"`
	}
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/invites", admin.Admin.Token, nil, &invite)
	if status != http.StatusCreated {
		t.Fatalf("create invite status = %d", status)
	}

	var joined struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/invites/"+invite.Code+"/join", "", map[string]any{
		"displayName": "Newbie",
	}, &joined)
	if status != http.StatusCreated {
		t.Fatalf("join status = %d", status)
	}
	if joined.Role != "participant" {
		t.Fatalf("role = %q, want participant", joined.Role)
	}

	var users []map[string]any
	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/users", admin.Admin.Token, nil, &users)
	if status != http.StatusOK {
		t.Fatalf("list users status = %d", status)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
}

func TestMessagePaging_LimitBoundary(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	var room struct {
		GeneralChannel struct {
			ID string `json:"id"`
		} `json:"generalChannel"`
		Admin struct {
			Token string `json:"token"`
		} `json:"admin"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "Acme", "adminName": "Ada",
	}, &room)

	for i := 0; i < 3; i++ {
		status, _ := doJSON(t, app, http.MethodPost, "/api/v1/messages", room.Admin.Token, map[string]any{
			"content":   map[string]any{"text": "hi"},
			"channelId": room.GeneralChannel.ID,
		}, nil)
		if status != http.StatusCreated {
			t.Fatalf("create message status = %d", status)
		}
	}

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/messages?channelId="+room.GeneralChannel.ID+"&limit=100", room.Admin.Token, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("limit=100 status = %d, want 200", status)
	}

	status, envelope := doJSON(t, app, http.MethodGet, "/api/v1/messages?channelId="+room.GeneralChannel.ID+"&limit=101", room.Admin.Token, nil, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("limit=101 status = %d, want 400", status)
	}
	if envelope["error"] != string(chitter.InvalidParameters) {
		t.Fatalf("error = %v, want InvalidParameters", envelope["error"])
	}
}

func TestPrivateChannelMembership_GatesAccess(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	var room struct {
		Admin struct {
			Token string `json:"token"`
		} `json:"admin"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/rooms", "", map[string]any{
		"roomName": "Acme", "adminName": "Ada",
	}, &room)

	var channel struct {
		ID string `json:"id"`
	}
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/channels", room.Admin.Token, map[string]any{
		"displayName": "secret", "isPrivate": true,
	}, &channel)
	if status != http.StatusCreated {
		t.Fatalf("create channel status = %d", status)
	}

	var invite struct {
		Code string `json:"code"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/invites", room.Admin.Token, nil, &invite)
	var joined struct {
		Token string `json:"token"`
		ID    string `json:"id"`
	}
	doJSON(t, app, http.MethodPost, "/api/v1/invites/"+invite.Code+"/join", "", map[string]any{
		"displayName": "Outsider",
	}, &joined)

	status, envelope := doJSON(t, app, http.MethodPost, "/api/v1/messages", joined.Token, map[string]any{
		"content":   map[string]any{"text": "hi"},
		"channelId": channel.ID,
	}, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if envelope["error"] != string(chitter.UserIsNotMemberOfPrivateChannel) {
		t.Fatalf("error = %v, want UserIsNotMemberOfPrivateChannel", envelope["error"])
	}

	status, _ = doJSON(t, app, http.MethodPut, "/api/v1/channels/"+channel.ID+"/members/"+joined.ID, room.Admin.Token, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("add member status = %d", status)
	}

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/messages", joined.Token, map[string]any{
		"content":   map[string]any{"text": "hi"},
		"channelId": channel.ID,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("post after join status = %d, want 201", status)
	}
}

func TestInvalidJSONBody_RejectedAsValidationFailure(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope["error"] != string(chitter.InvalidParameters) {
		t.Fatalf("error = %v, want InvalidParameters", envelope["error"])
	}
}
