package sqlstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

const userColumns = `id, room_id, created_at, token, display_name, description, avatar_id, role`

func scanUser(row pgx.Row) (*chitter.User, error) {
	var u chitter.User
	var description *string
	if err := row.Scan(&u.ID, &u.RoomID, &u.CreatedAt, &u.Token, &u.DisplayName, &description, &u.AvatarAttachment, &u.Role); err != nil {
		return nil, err
	}
	if description != nil {
		u.Description = *description
	}
	return &u, nil
}

// resolveUser resolves a bearer token to its User. Returns InvalidUserToken when no user holds that token.
func (d *PostgresChitterDatabase) resolveUser(ctx context.Context, token string) (*chitter.User, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE token = $1", token)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chitter.Fail(chitter.InvalidUserToken)
		}
		return nil, chitter.Fail(chitter.UnknownServerError)
	}
	return u, nil
}

// resolveAdmin resolves a bearer token to its User and requires the admin role. Returns InvalidAdminToken when the
// token does not resolve at all, and InvalidAdminTokenOrNonAdminUser when it resolves to a non-admin user.
func (d *PostgresChitterDatabase) resolveAdmin(ctx context.Context, token string) (*chitter.User, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE token = $1", token)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chitter.Fail(chitter.InvalidAdminToken)
		}
		return nil, chitter.Fail(chitter.UnknownServerError)
	}
	if u.Role != chitter.RoleAdmin {
		return nil, chitter.Fail(chitter.InvalidAdminTokenOrNonAdminUser)
	}
	return u, nil
}

// getUserByID fetches a user by id, scoped to no particular room; callers compare RoomID themselves.
func (d *PostgresChitterDatabase) getUserByID(ctx context.Context, id uuid.UUID) (*chitter.User, error) {
	row := d.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chitter.Fail(chitter.UserNotFound)
		}
		return nil, chitter.Fail(chitter.UnknownServerError)
	}
	return u, nil
}
