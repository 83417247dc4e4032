package wiki

import (
	"context"
	"fmt"

	"github.com/jonathan/wikibot/internal/logger"
)

// persist saves the cache to the configured store. Failures are logged and returned.
func (r *Repository) persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.store.Save(ctx, r.cache.Snapshot()); err != nil {
		r.log.Warn("Failed to persist the cache", logger.Err(err))
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

func (r *Repository) load(ctx context.Context) error {
	snapshot, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	r.cache.Restore(snapshot)
	return nil
}

// Save persists the cache to the configured store.
func (r *Repository) Save(ctx context.Context) error {
	return r.persist(ctx)
}

// Import replaces the cache with the snapshot stored at path.
func (r *Repository) Import(path string) error {
	snapshot, err := NewFileStore(path, false).Load(context.Background())
	if err != nil {
		return err
	}
	r.cache.Restore(snapshot)
	return nil
}

// Export writes the cache to path, indented when pretty is set.
func (r *Repository) Export(path string, pretty bool) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()
	return NewFileStore(path, pretty).Save(context.Background(), r.cache.Snapshot())
}
