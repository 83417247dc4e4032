// Package db provides PostgreSQL storage for the wiki cache.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS wiki_items (
    item_key    TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    uri         TEXT NOT NULL,
    categories  TEXT[] NOT NULL DEFAULT '{}',
    raw_text    TEXT NOT NULL DEFAULT '',
    last_update TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wiki_cache_meta (
    id          INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    snapshot_id UUID NOT NULL,
    last_update TIMESTAMPTZ NOT NULL,
    item_count  INTEGER NOT NULL,
    saved_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema creates the cache tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
