package credential

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func registries(t *testing.T) map[string]Registry {
	t.Helper()
	mem := NewMemRegistry(time.Hour, zerolog.Nop())
	t.Cleanup(func() { _ = mem.Close() })

	rdb := setupMiniredis(t)
	redisReg := NewRedisRegistry(rdb)
	t.Cleanup(func() { _ = redisReg.Close() })

	return map[string]Registry{
		"mem":   mem,
		"redis": redisReg,
	}
}

func TestRegistry_InviteRoundTrip(t *testing.T) {
	t.Parallel()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			roomID := uuid.New()

			code, err := reg.MintInvite(ctx, roomID)
			if err != nil {
				t.Fatalf("MintInvite() error = %v", err)
			}
			if code == "" {
				t.Fatal("MintInvite() returned empty code")
			}

			gotRoomID, ok, err := reg.ConsumeInvite(ctx, code)
			if err != nil {
				t.Fatalf("ConsumeInvite() error = %v", err)
			}
			if !ok {
				t.Fatal("ConsumeInvite() ok = false, want true")
			}
			if gotRoomID != roomID {
				t.Errorf("ConsumeInvite() roomID = %v, want %v", gotRoomID, roomID)
			}
		})
	}
}

func TestRegistry_PeekInviteDoesNotConsume(t *testing.T) {
	t.Parallel()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			roomID := uuid.New()
			code, err := reg.MintInvite(ctx, roomID)
			if err != nil {
				t.Fatalf("MintInvite() error = %v", err)
			}

			gotRoomID, ok, err := reg.PeekInvite(ctx, code)
			if err != nil || !ok || gotRoomID != roomID {
				t.Fatalf("PeekInvite() = (%v, %v, %v), want (%v, true, nil)", gotRoomID, ok, err, roomID)
			}

			gotRoomID, ok, err = reg.ConsumeInvite(ctx, code)
			if err != nil || !ok || gotRoomID != roomID {
				t.Fatalf("ConsumeInvite() after peek = (%v, %v, %v), want (%v, true, nil)", gotRoomID, ok, err, roomID)
			}
		})
	}
}

func TestRegistry_InviteConsumedOnce(t *testing.T) {
	t.Parallel()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			code, err := reg.MintInvite(ctx, uuid.New())
			if err != nil {
				t.Fatalf("MintInvite() error = %v", err)
			}

			if _, ok, err := reg.ConsumeInvite(ctx, code); err != nil || !ok {
				t.Fatalf("first ConsumeInvite() = (ok=%v, err=%v), want (true, nil)", ok, err)
			}

			if _, ok, err := reg.ConsumeInvite(ctx, code); err != nil || ok {
				t.Fatalf("second ConsumeInvite() = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
		})
	}
}

func TestRegistry_ConsumeUnknownCode(t *testing.T) {
	t.Parallel()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok, err := reg.ConsumeInvite(ctx, "does-not-exist"); err != nil || ok {
				t.Fatalf("ConsumeInvite() = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
			if _, ok, err := reg.ConsumeTransfer(ctx, "does-not-exist"); err != nil || ok {
				t.Fatalf("ConsumeTransfer() = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
		})
	}
}

func TestRegistry_TransferRoundTrip(t *testing.T) {
	t.Parallel()
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			userIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

			code, err := reg.MintTransfer(ctx, userIDs)
			if err != nil {
				t.Fatalf("MintTransfer() error = %v", err)
			}

			got, ok, err := reg.ConsumeTransfer(ctx, code)
			if err != nil {
				t.Fatalf("ConsumeTransfer() error = %v", err)
			}
			if !ok {
				t.Fatal("ConsumeTransfer() ok = false, want true")
			}
			if len(got) != len(userIDs) {
				t.Fatalf("ConsumeTransfer() returned %d ids, want %d", len(got), len(userIDs))
			}
			for i, id := range userIDs {
				if got[i] != id {
					t.Errorf("ConsumeTransfer()[%d] = %v, want %v", i, got[i], id)
				}
			}
		})
	}
}

func TestMemRegistry_ExpiredInviteNotConsumable(t *testing.T) {
	t.Parallel()
	reg := NewMemRegistry(time.Hour, zerolog.Nop())
	t.Cleanup(func() { _ = reg.Close() })

	ctx := context.Background()
	code := newCode()
	reg.mu.Lock()
	reg.invites[code] = inviteEntry{roomID: uuid.New(), expiresAt: time.Now().Add(-time.Second)}
	reg.mu.Unlock()

	if _, ok, err := reg.ConsumeInvite(ctx, code); err != nil || ok {
		t.Fatalf("ConsumeInvite() on expired code = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestMemRegistry_SweepReclaimsExpiredEntries(t *testing.T) {
	t.Parallel()
	reg := NewMemRegistry(time.Hour, zerolog.Nop())
	t.Cleanup(func() { _ = reg.Close() })

	reg.mu.Lock()
	reg.invites["stale"] = inviteEntry{roomID: uuid.New(), expiresAt: time.Now().Add(-time.Minute)}
	reg.mu.Unlock()

	reg.Sweep(context.Background())

	reg.mu.Lock()
	_, found := reg.invites["stale"]
	reg.mu.Unlock()
	if found {
		t.Error("Sweep() left an expired invite in place")
	}
}
