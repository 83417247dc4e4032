package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/wikibot/internal/wiki"
)

// itemColumns is the column order used when copying items into wiki_items.
var itemColumns = []string{"item_key", "name", "uri", "categories", "raw_text", "last_update"}

// ItemRow is one row of wiki_items.
type ItemRow struct {
	Key        string
	Name       string
	URI        string
	Categories []string
	RawText    string
	LastUpdate time.Time
}

// CacheMeta is the single row of wiki_cache_meta.
type CacheMeta struct {
	SnapshotID uuid.UUID
	LastUpdate time.Time
	ItemCount  int
	SavedAt    time.Time
}

func rowFromItem(item *wiki.Item) ItemRow {
	categories := item.Categories
	if categories == nil {
		categories = []string{}
	}
	return ItemRow{
		Key:        item.Key(),
		Name:       item.Name,
		URI:        item.URI,
		Categories: categories,
		RawText:    item.RawText,
		LastUpdate: item.LastUpdate.UTC(),
	}
}

func (r ItemRow) item() *wiki.Item {
	return &wiki.Item{
		Name:       r.Name,
		URI:        r.URI,
		Categories: r.Categories,
		RawText:    r.RawText,
		LastUpdate: r.LastUpdate,
	}
}

func (r ItemRow) values() []any {
	return []any{r.Key, r.Name, r.URI, r.Categories, r.RawText, r.LastUpdate}
}
