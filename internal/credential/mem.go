package credential

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type inviteEntry struct {
	roomID    uuid.UUID
	expiresAt time.Time
}

type transferEntry struct {
	userIDs   []uuid.UUID
	expiresAt time.Time
}

// MemRegistry is a mutex-protected, in-memory Registry implementation. It is used by the in-memory Chat Service
// backend and by any deployment without a configured Redis/Valkey connection.
type MemRegistry struct {
	mu        sync.Mutex
	invites   map[string]inviteEntry
	transfers map[string]transferEntry

	log    zerolog.Logger
	ticker *time.Ticker
	done   chan struct{}
}

// NewMemRegistry creates a MemRegistry and starts its background sweep loop on the given cadence (spec.md calls for
// "~1h"; tests may pass a shorter interval).
func NewMemRegistry(sweepInterval time.Duration, logger zerolog.Logger) *MemRegistry {
	r := &MemRegistry{
		invites:   make(map[string]inviteEntry),
		transfers: make(map[string]transferEntry),
		log:       logger,
		ticker:    time.NewTicker(sweepInterval),
		done:      make(chan struct{}),
	}
	go r.sweepLoop()
	return r
}

func (r *MemRegistry) sweepLoop() {
	for {
		select {
		case <-r.done:
			return
		case <-r.ticker.C:
			r.Sweep(context.Background())
		}
	}
}

func (r *MemRegistry) MintInvite(_ context.Context, roomID uuid.UUID) (string, error) {
	code := newCode()
	r.mu.Lock()
	r.invites[code] = inviteEntry{roomID: roomID, expiresAt: time.Now().Add(InviteTTL)}
	r.mu.Unlock()
	return code, nil
}

func (r *MemRegistry) PeekInvite(_ context.Context, code string) (uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.invites[code]
	if !found || !time.Now().Before(entry.expiresAt) {
		return uuid.UUID{}, false, nil
	}
	return entry.roomID, true, nil
}

func (r *MemRegistry) ConsumeInvite(_ context.Context, code string) (uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.invites[code]
	if !found {
		return uuid.UUID{}, false, nil
	}
	delete(r.invites, code)
	if !time.Now().Before(entry.expiresAt) {
		return uuid.UUID{}, false, nil
	}
	return entry.roomID, true, nil
}

func (r *MemRegistry) MintTransfer(_ context.Context, userIDs []uuid.UUID) (string, error) {
	code := newCode()
	ids := append([]uuid.UUID(nil), userIDs...)
	r.mu.Lock()
	r.transfers[code] = transferEntry{userIDs: ids, expiresAt: time.Now().Add(TransferTTL)}
	r.mu.Unlock()
	return code, nil
}

func (r *MemRegistry) ConsumeTransfer(_ context.Context, code string) ([]uuid.UUID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, found := r.transfers[code]
	if !found {
		return nil, false, nil
	}
	delete(r.transfers, code)
	if !time.Now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.userIDs, true, nil
}

// Sweep deletes expired entries. Consumption already treats expired entries as not-found regardless of whether Sweep
// has run; this only reclaims memory.
func (r *MemRegistry) Sweep(_ context.Context) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	reclaimed := 0
	for code, entry := range r.invites {
		if !now.Before(entry.expiresAt) {
			delete(r.invites, code)
			reclaimed++
		}
	}
	for code, entry := range r.transfers {
		if !now.Before(entry.expiresAt) {
			delete(r.transfers, code)
			reclaimed++
		}
	}
	if reclaimed > 0 {
		r.log.Debug().Int("reclaimed", reclaimed).Msg("credential registry sweep reclaimed expired entries")
	}
}

func (r *MemRegistry) Close() error {
	close(r.done)
	r.ticker.Stop()
	return nil
}
