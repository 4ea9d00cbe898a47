package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the grading_results table. Execute it via
// [PostgresCache.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS grading_results (
    digest      TEXT PRIMARY KEY,
    track       TEXT NOT NULL,
    reference   TEXT NOT NULL,
    hypothesis  TEXT NOT NULL,
    options     TEXT NOT NULL DEFAULT '',
    payload     JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_grading_results_track ON grading_results(track);
`

// DB is the database interface used by [PostgresCache]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresCache is a [Cache] backed by a PostgreSQL table. Payloads are
// stored as JSONB.
type PostgresCache struct {
	db DB
}

// Compile-time interface check.
var _ Cache = (*PostgresCache)(nil)

// NewPostgresCache creates a [PostgresCache] that uses the given connection
// or pool. The caller is responsible for calling [PostgresCache.Migrate] to
// ensure the schema exists before issuing queries.
func NewPostgresCache(db DB) *PostgresCache {
	return &PostgresCache{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (c *PostgresCache) Migrate(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("cache: migrate: %w", err)
	}
	return nil
}

// Get implements [Cache.Get].
func (c *PostgresCache) Get(ctx context.Context, key Key) ([]byte, error) {
	const query = `SELECT payload FROM grading_results WHERE digest = $1`

	var payload []byte
	if err := c.db.QueryRow(ctx, query, key.Digest()).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: get: %w", err)
	}
	return payload, nil
}

// Put implements [Cache.Put]. An existing entry for key is overwritten.
func (c *PostgresCache) Put(ctx context.Context, key Key, payload []byte) error {
	const query = `
		INSERT INTO grading_results (digest, track, reference, hypothesis, options, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (digest) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = now()`

	_, err := c.db.Exec(ctx, query,
		key.Digest(), string(key.Track), key.Reference, key.Hypothesis, key.Options, payload,
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Ping verifies that the database answers queries.
func (c *PostgresCache) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}
