// Package credential implements the Credential Registry: two short-lived, one-shot code tables (invite codes and
// transfer codes) shared by both Chat Service backends. Two implementations satisfy the same Registry interface: a
// Redis-backed one for production and a mutex-protected in-memory one for standalone deployments and tests.
package credential

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TTLs mandated by spec.md's Data Model table.
const (
	InviteTTL   = 24 * time.Hour
	TransferTTL = 1 * time.Hour
)

// Registry mints and consumes one-shot, expiring codes. Consumption is atomic: two concurrent consumers of the same
// code observe at most one success.
type Registry interface {
	// MintInvite registers a new 24h invite code scoped to roomID and returns the opaque code.
	MintInvite(ctx context.Context, roomID uuid.UUID) (string, error)

	// PeekInvite looks up the room an invite code is scoped to without consuming it. Callers use this to validate
	// preconditions (e.g. display name uniqueness) that must fail without burning the code.
	PeekInvite(ctx context.Context, code string) (roomID uuid.UUID, ok bool, err error)

	// ConsumeInvite atomically looks up and removes code, returning the room it was scoped to. ok is false if the
	// code is unknown, already consumed, or past its expiry.
	ConsumeInvite(ctx context.Context, code string) (roomID uuid.UUID, ok bool, err error)

	// MintTransfer registers a new 1h transfer code bundling userIDs and returns the opaque code.
	MintTransfer(ctx context.Context, userIDs []uuid.UUID) (string, error)

	// ConsumeTransfer atomically looks up and removes code, returning the bundled user ids. ok is false if the code
	// is unknown, already consumed, or past its expiry.
	ConsumeTransfer(ctx context.Context, code string) (userIDs []uuid.UUID, ok bool, err error)

	// Sweep reclaims memory held by expired entries. It is safe to call even when nothing has expired, and safe to
	// never call (expired entries behave as not-found regardless).
	Sweep(ctx context.Context)

	// Close releases any background goroutines or connections held by the registry.
	Close() error
}

// newCode generates an opaque random identifier in the textual form of a version 4 UUID. Collisions are impossible in practice, so
// callers never retry.
func newCode() string {
	return uuid.New().String()
}
