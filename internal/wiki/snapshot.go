package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Snapshot is the persisted form of a Cache.
type Snapshot struct {
	Items      []*Item   `json:"items"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Store persists cache snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// sort orders items by key so persisted output is stable.
func (s *Snapshot) sort() {
	slices.SortFunc(s.Items, func(a, b *Item) int {
		return strings.Compare(a.Key(), b.Key())
	})
}

// Encode serializes the snapshot, indented when pretty is set.
func (s *Snapshot) Encode(pretty bool) ([]byte, error) {
	for _, item := range s.Items {
		if item.Categories == nil {
			item.Categories = []string{}
		}
	}

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("encode cache snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a persisted snapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode cache snapshot: %w", err)
	}
	s.Items = slices.DeleteFunc(s.Items, func(item *Item) bool { return item == nil })
	for _, item := range s.Items {
		if item.Categories == nil {
			item.Categories = []string{}
		}
	}
	return &s, nil
}
