// Package schemas holds the JSON Schemas for documents the bot reads and writes.
package schemas

import _ "embed"

// WikiCache is the schema of the persisted wiki cache file.
//
//go:embed wiki_cache.schema.json
var WikiCache string
