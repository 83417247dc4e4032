package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/wikibot/internal/wiki"
)

func TestRowFromItem(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	item := &wiki.Item{
		Name:       "SDL_Init",
		URI:        "https://wiki.libsdl.org/SDL_Init",
		Categories: []string{"CategoryAPI"},
		RawText:    "= SDL_Init =",
		LastUpdate: at,
	}

	row := rowFromItem(item)

	assert.Equal(t, wiki.Key("SDL_Init"), row.Key)
	assert.Equal(t, time.UTC, row.LastUpdate.Location())
	assert.True(t, row.LastUpdate.Equal(at))
	assert.Len(t, row.values(), len(itemColumns))

	back := row.item()
	assert.Equal(t, item.Name, back.Name)
	assert.Equal(t, item.URI, back.URI)
	assert.Equal(t, item.Categories, back.Categories)
	assert.Equal(t, item.RawText, back.RawText)
}

func TestRowFromItem_NilCategories(t *testing.T) {
	row := rowFromItem(wiki.NewItem("SDL_Quit", "https://wiki.libsdl.org/SDL_Quit"))
	assert.NotNil(t, row.Categories)
	assert.Empty(t, row.Categories)
}
