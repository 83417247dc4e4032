package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/wikibot/internal/wiki"
)

// LoadSnapshot reads the stored cache. An empty database yields an empty
// snapshot with a zero LastUpdate.
func (db *DB) LoadSnapshot(ctx context.Context) (*wiki.Snapshot, error) {
	snapshot := &wiki.Snapshot{}

	meta, err := db.GetCacheMeta(ctx)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		snapshot.LastUpdate = meta.LastUpdate
	}

	rows, err := db.pool.Query(ctx,
		`SELECT item_key, name, uri, categories, raw_text, last_update
		 FROM wiki_items
		 ORDER BY item_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query wiki items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r ItemRow
		if err := rows.Scan(&r.Key, &r.Name, &r.URI, &r.Categories, &r.RawText, &r.LastUpdate); err != nil {
			return nil, fmt.Errorf("failed to scan wiki item: %w", err)
		}
		snapshot.Items = append(snapshot.Items, r.item())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wiki items: %w", err)
	}

	return snapshot, nil
}

// SaveSnapshot replaces the stored cache with snapshot in one transaction
// and returns the id recorded for it.
func (db *DB) SaveSnapshot(ctx context.Context, snapshot *wiki.Snapshot) (uuid.UUID, error) {
	if snapshot == nil {
		return uuid.Nil, fmt.Errorf("snapshot is nil")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM wiki_items`); err != nil {
		return uuid.Nil, fmt.Errorf("failed to clear wiki items: %w", err)
	}

	rows := make([][]any, 0, len(snapshot.Items))
	seen := make(map[string]struct{}, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if item == nil {
			continue
		}
		row := rowFromItem(item)
		if _, dup := seen[row.Key]; dup {
			continue
		}
		seen[row.Key] = struct{}{}
		rows = append(rows, row.values())
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"wiki_items"}, itemColumns, pgx.CopyFromRows(rows)); err != nil {
		return uuid.Nil, fmt.Errorf("failed to copy wiki items: %w", err)
	}

	id := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO wiki_cache_meta (id, snapshot_id, last_update, item_count, saved_at)
		 VALUES (1, $1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		     snapshot_id = $1,
		     last_update = $2,
		     item_count = $3,
		     saved_at = $4`,
		id, snapshot.LastUpdate.UTC(), len(rows), time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save cache metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// GetCacheMeta returns the metadata of the last saved snapshot, or nil if
// nothing has been saved.
func (db *DB) GetCacheMeta(ctx context.Context) (*CacheMeta, error) {
	var m CacheMeta
	err := db.pool.QueryRow(ctx,
		`SELECT snapshot_id, last_update, item_count, saved_at FROM wiki_cache_meta WHERE id = 1`,
	).Scan(&m.SnapshotID, &m.LastUpdate, &m.ItemCount, &m.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache metadata: %w", err)
	}
	return &m, nil
}

// Store adapts DB to wiki.Store.
type Store struct {
	db *DB
}

// NewStore creates a wiki.Store backed by db.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

var _ wiki.Store = (*Store)(nil)

// Load implements wiki.Store.
func (s *Store) Load(ctx context.Context) (*wiki.Snapshot, error) {
	return s.db.LoadSnapshot(ctx)
}

// Save implements wiki.Store.
func (s *Store) Save(ctx context.Context, snapshot *wiki.Snapshot) error {
	_, err := s.db.SaveSnapshot(ctx, snapshot)
	return err
}
