// Package memstore implements chitter.Service without a database: ChitterMem, the single-process authoritative
// in-memory backend described by spec.md §4.5. internal/sqlstore implements the same contract against PostgreSQL;
// the two are interchangeable behind chitter.Service.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/credential"
)

// SnapshotInterval is the cadence of the background save described by spec.md §4.5 ("~60s").
const SnapshotInterval = 60 * time.Second

// tokenEntry locates the user a bearer token resolves to.
type tokenEntry struct {
	roomID uuid.UUID
	userID uuid.UUID
}

// ChitterMem is the in-memory Chat Service backend. All mutations are serialized per room by each roomState's own
// mutex; cm.mu guards the top-level room and token indexes, which only change shape when a room is created or a
// token is rotated/minted.
type ChitterMem struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]*roomState
	tokens map[string]tokenEntry

	registry credential.Registry
	log      zerolog.Logger

	saver  Saver
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// Saver persists a snapshot of every room. Loader restores one. Both are pluggable so tests can use an in-memory
// buffer and production can write to disk, following spec.md §4.5's "pluggable save/load" contract.
type Saver interface {
	Save(ctx context.Context, snapshot []RoomSnapshot) error
}

type Loader interface {
	Load(ctx context.Context) ([]RoomSnapshot, error)
}

// New constructs a ChitterMem, loading an existing snapshot (if loader yields one) and rebuilding every derived
// index from it, then starts the periodic snapshot goroutine. A nil saver disables periodic and final saves — tests
// that don't care about persistence can pass nil.
func New(ctx context.Context, registry credential.Registry, loader Loader, saver Saver, logger zerolog.Logger) (*ChitterMem, error) {
	cm := &ChitterMem{
		rooms:    make(map[uuid.UUID]*roomState),
		tokens:   make(map[string]tokenEntry),
		registry: registry,
		log:      logger,
		saver:    saver,
		done:     make(chan struct{}),
	}

	if loader != nil {
		snapshot, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		cm.restore(snapshot)
	}

	if saver != nil {
		cm.ticker = time.NewTicker(SnapshotInterval)
		cm.wg.Add(1)
		go cm.snapshotLoop()
	}

	return cm, nil
}

func (cm *ChitterMem) snapshotLoop() {
	defer cm.wg.Done()
	for {
		select {
		case <-cm.done:
			return
		case <-cm.ticker.C:
			if err := cm.saver.Save(context.Background(), cm.Snapshot()); err != nil {
				cm.log.Warn().Err(err).Msg("periodic snapshot save failed")
			}
		}
	}
}

// Close stops the periodic snapshot goroutine, performs one final save, and releases the credential registry.
func (cm *ChitterMem) Close(ctx context.Context) error {
	if cm.ticker != nil {
		cm.ticker.Stop()
		close(cm.done)
		cm.wg.Wait()
		if err := cm.saver.Save(ctx, cm.Snapshot()); err != nil {
			cm.log.Warn().Err(err).Msg("final snapshot save failed")
		}
	}
	return cm.registry.Close()
}

var _ chitter.Service = (*ChitterMem)(nil)
