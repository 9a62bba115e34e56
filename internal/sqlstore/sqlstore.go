// Package sqlstore implements chitter.Service on top of PostgreSQL. PostgresChitterDatabase is one of the two
// interchangeable backends behind the Chat Service contract; internal/memstore implements the other.
package sqlstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/credential"
)

// PostgresChitterDatabase implements chitter.Service against a pgxpool.Pool. Every multi-row mutation runs inside a
// transaction via postgres.WithTx; single-row reads and writes use the pool directly.
type PostgresChitterDatabase struct {
	pool     *pgxpool.Pool
	registry credential.Registry
	log      zerolog.Logger
}

// New wires a PostgresChitterDatabase around an already-connected pool and a credential registry. The pool's
// lifecycle (and the migrations that must precede this call) are the caller's responsibility.
func New(pool *pgxpool.Pool, registry credential.Registry, logger zerolog.Logger) *PostgresChitterDatabase {
	return &PostgresChitterDatabase{pool: pool, registry: registry, log: logger}
}

// Close releases the connection pool and the credential registry's resources.
func (d *PostgresChitterDatabase) Close(_ context.Context) error {
	d.pool.Close()
	return d.registry.Close()
}

var _ chitter.Service = (*PostgresChitterDatabase)(nil)
