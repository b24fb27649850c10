package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/listinglens/backend/internal/domain"
)

// MemoryCache is a thread-safe in-memory product cache. Entries live for the
// process lifetime; there is no eviction.
type MemoryCache struct {
	// entries holds JSON by product id, lookups maps UPC/EAN/brand:model to an id
	// and keysByID is its reverse
	entries  map[string][]byte
	lookups  map[string]string
	keysByID map[string]map[string]struct{}
	mutex    sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string][]byte),
		lookups:  make(map[string]string),
		keysByID: make(map[string]map[string]struct{}),
	}
}

// Put stores an entry under each of keys, replacing earlier entries for the
// same keys. An earlier entry left without any key is dropped.
func (c *MemoryCache) Put(ctx context.Context, keys []string, entry domain.ProductDatabaseEntry) error {
	// Serialize to JSON so callers never share memory with the cache.
	// This mimics Redis behavior
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[entry.ID] = data
	owned := c.keysByID[entry.ID]
	if owned == nil {
		owned = make(map[string]struct{}, len(keys))
		c.keysByID[entry.ID] = owned
	}
	for _, key := range keys {
		if prev, ok := c.lookups[key]; ok && prev != entry.ID {
			delete(c.keysByID[prev], key)
			if len(c.keysByID[prev]) == 0 {
				delete(c.keysByID, prev)
				delete(c.entries, prev)
			}
		}
		c.lookups[key] = entry.ID
		owned[key] = struct{}{}
	}
	return nil
}

// Get retrieves the entry stored under key
func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.ProductDatabaseEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	id, exists := c.lookups[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}
	data, exists := c.entries[id]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	var entry domain.ProductDatabaseEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every stored entry once, oldest first
func (c *MemoryCache) List(ctx context.Context) ([]domain.ProductDatabaseEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]domain.ProductDatabaseEntry, 0, len(c.entries))
	for _, data := range c.entries {
		var entry domain.ProductDatabaseEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}

	sortEntries(out)
	return out, nil
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string][]byte)
	c.lookups = make(map[string]string)
	c.keysByID = make(map[string]map[string]struct{})
	return nil
}

// Size returns the number of distinct products (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// sortEntries orders entries by AddedAt then ID so listings are stable
func sortEntries(entries []domain.ProductDatabaseEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
