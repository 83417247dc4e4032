package wiki

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"
	"time"
)

// DefaultCacheExpiration is how long after a full refresh the cache is considered stale.
const DefaultCacheExpiration = 30 * 24 * time.Hour

// Cache holds wiki items keyed by case-folded name. It is safe for concurrent use.
//
// Items handed to the cache are owned by it: callers that need to modify an
// item should Clone it and store the copy with AddOrUpdate.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]*Item
	lastUpdate time.Time
	now        func() time.Time
}

// NewCache creates an empty cache that has never been refreshed.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]*Item),
		now:   time.Now,
	}
}

// TryGet returns the item stored under name.
func (c *Cache) TryGet(name string) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[Key(name)]
	return item, ok
}

// Get returns the item stored under name or ErrItemNotFound.
func (c *Cache) Get(name string) (*Item, error) {
	item, ok := c.TryGet(name)
	if !ok {
		return nil, fmt.Errorf("get %q: %w", name, ErrItemNotFound)
	}
	return item, nil
}

// Set replaces the item stored under name. Unlike AddOrUpdate it never
// inserts: an absent name yields ErrItemNotFound.
func (c *Cache) Set(name string, item *Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[Key(name)]; !ok {
		return fmt.Errorf("set %q: %w", name, ErrItemNotFound)
	}
	c.putLocked(item)
	return nil
}

// AddOrUpdate inserts or replaces item and stamps the cache update time.
func (c *Cache) AddOrUpdate(item *Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(item)
}

func (c *Cache) putLocked(item *Item) {
	c.items[item.Key()] = item
	c.lastUpdate = c.now()
}

// UpdateOption configures Update.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	items         []*Item
	replaceItems  bool
	lastUpdate    time.Time
	hasLastUpdate bool
}

// WithItems replaces the whole item set. Later items win over earlier ones with the same name.
func WithItems(items []*Item) UpdateOption {
	return func(o *updateOptions) {
		o.items = items
		o.replaceItems = true
	}
}

// WithLastUpdate sets the cache update time instead of stamping the current time.
func WithLastUpdate(t time.Time) UpdateOption {
	return func(o *updateOptions) {
		o.lastUpdate = t
		o.hasLastUpdate = true
	}
}

// Update swaps the item set and/or the update time. Without options it only
// stamps the update time.
func (c *Cache) Update(opts ...UpdateOption) {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if o.replaceItems {
		items := make(map[string]*Item, len(o.items))
		for _, item := range o.items {
			if item == nil {
				continue
			}
			items[item.Key()] = item
		}
		c.items = items
	}

	if o.hasLastUpdate {
		c.lastUpdate = o.lastUpdate
	} else {
		c.lastUpdate = c.now()
	}
}

// Count returns the number of cached items.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LastUpdate returns the time of the last cache mutation or full refresh.
func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// Expired reports whether the cache is older than expiration at now.
func (c *Cache) Expired(now time.Time, expiration time.Duration) bool {
	return now.Sub(c.LastUpdate()) >= expiration
}

// Enumerate yields every cached item. Each iteration walks a snapshot of the
// cache taken when it starts, so the sequence can be restarted and is not
// affected by concurrent writes.
func (c *Cache) Enumerate() iter.Seq[*Item] {
	return func(yield func(*Item) bool) {
		c.mu.RLock()
		items := make([]*Item, 0, len(c.items))
		for _, item := range c.items {
			items = append(items, item)
		}
		c.mu.RUnlock()

		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

// Snapshot captures the cache in its persisted form.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := &Snapshot{
		Items:      make([]*Item, 0, len(c.items)),
		LastUpdate: c.lastUpdate,
	}
	for _, item := range c.items {
		s.Items = append(s.Items, item.Clone())
	}
	s.sort()
	return s
}

// Restore replaces the cache contents with a snapshot.
func (c *Cache) Restore(s *Snapshot) {
	if s == nil {
		return
	}
	items := make([]*Item, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, item.Clone())
	}
	c.Update(WithItems(items), WithLastUpdate(s.LastUpdate))
}

// MarshalJSON encodes the cache as a Snapshot.
func (c *Cache) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// UnmarshalJSON decodes a Snapshot into the cache.
func (c *Cache) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode cache: %w", err)
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.Restore(&s)
	return nil
}
