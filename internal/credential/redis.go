package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Valkey/Redis key patterns:
//
//	invite:{code}   -> room id (STRING with TTL)
//	transfer:{code} -> JSON array of user ids (STRING with TTL)

func inviteKey(code string) string   { return "invite:" + code }
func transferKey(code string) string { return "transfer:" + code }

// RedisRegistry is a Registry backed by a Redis/Valkey client. TTLs are enforced natively by the store, and
// consumption uses GETDEL so that two concurrent consumers of the same code can never both succeed.
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry wraps an already-connected client. The caller owns the client's lifecycle beyond Close, which
// only closes the connection this registry was given.
func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) MintInvite(ctx context.Context, roomID uuid.UUID) (string, error) {
	code := newCode()
	if err := r.rdb.Set(ctx, inviteKey(code), roomID.String(), InviteTTL).Err(); err != nil {
		return "", fmt.Errorf("store invite code: %w", err)
	}
	return code, nil
}

func (r *RedisRegistry) PeekInvite(ctx context.Context, code string) (uuid.UUID, bool, error) {
	val, err := r.rdb.Get(ctx, inviteKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.UUID{}, false, nil
	}
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("peek invite code: %w", err)
	}

	roomID, err := uuid.Parse(val)
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("parse room id from invite code: %w", err)
	}
	return roomID, true, nil
}

func (r *RedisRegistry) ConsumeInvite(ctx context.Context, code string) (uuid.UUID, bool, error) {
	val, err := r.rdb.GetDel(ctx, inviteKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.UUID{}, false, nil
	}
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("consume invite code: %w", err)
	}

	roomID, err := uuid.Parse(val)
	if err != nil {
		return uuid.UUID{}, false, fmt.Errorf("parse room id from invite code: %w", err)
	}
	return roomID, true, nil
}

func (r *RedisRegistry) MintTransfer(ctx context.Context, userIDs []uuid.UUID) (string, error) {
	code := newCode()
	payload, err := json.Marshal(userIDs)
	if err != nil {
		return "", fmt.Errorf("encode transfer bundle: %w", err)
	}
	if err := r.rdb.Set(ctx, transferKey(code), payload, TransferTTL).Err(); err != nil {
		return "", fmt.Errorf("store transfer code: %w", err)
	}
	return code, nil
}

func (r *RedisRegistry) ConsumeTransfer(ctx context.Context, code string) ([]uuid.UUID, bool, error) {
	val, err := r.rdb.GetDel(ctx, transferKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("consume transfer code: %w", err)
	}

	var userIDs []uuid.UUID
	if err := json.Unmarshal([]byte(val), &userIDs); err != nil {
		return nil, false, fmt.Errorf("decode transfer bundle: %w", err)
	}
	return userIDs, true, nil
}

// Sweep is a no-op: Redis expires keys natively.
func (r *RedisRegistry) Sweep(context.Context) {}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}
