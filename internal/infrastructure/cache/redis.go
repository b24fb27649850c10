package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/listinglens/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "listinglens:products"
	// Put retries when a watched lookup key changes under it
	maxPutAttempts = 3
)

// RedisCache is a product cache shared between server instances
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the redis server at url (redis://host:port/db)
// and verifies the connection. An empty prefix uses the default.
func NewRedisCache(ctx context.Context, url, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	return NewRedisCacheWithClient(client, prefix), nil
}

// NewRedisCacheWithClient wraps an existing client. All keys are written under prefix.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// entryKey holds the JSON for one product
func (c *RedisCache) entryKey(id string) string {
	return fmt.Sprintf("%s:entry:%s", c.prefix, id)
}

// lookupKey maps a UPC, EAN or brand:model key to a product id
func (c *RedisCache) lookupKey(key string) string {
	return fmt.Sprintf("%s:lookup:%s", c.prefix, key)
}

// keysKey is the set of lookup keys that point at one product
func (c *RedisCache) keysKey(id string) string {
	return fmt.Sprintf("%s:keys:%s", c.prefix, id)
}

// idsKey is the set of stored product ids
func (c *RedisCache) idsKey() string {
	return c.prefix + ":ids"
}

// Put stores an entry and its lookup keys in one transaction. Entries whose
// keys are all taken over are removed in the same transaction.
func (c *RedisCache) Put(ctx context.Context, keys []string, entry domain.ProductDatabaseEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	lookupKeys := make([]string, len(keys))
	for i, key := range keys {
		lookupKeys[i] = c.lookupKey(key)
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		err = c.client.Watch(ctx, func(tx *redis.Tx) error {
			return c.put(ctx, tx, keys, lookupKeys, entry.ID, data)
		}, lookupKeys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

func (c *RedisCache) put(ctx context.Context, tx *redis.Tx, keys, lookupKeys []string, id string, data []byte) error {
	// Keys each previous owner loses to this entry
	taken := make(map[string][]string)
	if len(lookupKeys) > 0 {
		owners, err := tx.MGet(ctx, lookupKeys...).Result()
		if err != nil {
			return err
		}
		for i, owner := range owners {
			if prev, ok := owner.(string); ok && prev != id {
				taken[prev] = append(taken[prev], keys[i])
			}
		}
	}

	orphaned := make([]string, 0, len(taken))
	for prev, lost := range taken {
		owned, err := tx.SMembers(ctx, c.keysKey(prev)).Result()
		if err != nil {
			return err
		}
		if len(owned) <= len(dedupe(lost)) {
			orphaned = append(orphaned, prev)
		}
	}

	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for prev, lost := range taken {
			members := make([]interface{}, len(lost))
			for i, key := range lost {
				members[i] = key
			}
			pipe.SRem(ctx, c.keysKey(prev), members...)
		}
		for _, prev := range orphaned {
			pipe.Del(ctx, c.entryKey(prev), c.keysKey(prev))
			pipe.SRem(ctx, c.idsKey(), prev)
		}

		pipe.Set(ctx, c.entryKey(id), data, 0)
		pipe.SAdd(ctx, c.idsKey(), id)
		for i, key := range keys {
			pipe.Set(ctx, lookupKeys[i], id, 0)
			pipe.SAdd(ctx, c.keysKey(id), key)
		}
		return nil
	})
	return err
}

// dedupe returns keys without repeats
func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0:0]
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// Get retrieves the entry stored under key
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.ProductDatabaseEntry, error) {
	id, err := c.client.Get(ctx, c.lookupKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	data, err := c.client.Get(ctx, c.entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	var entry domain.ProductDatabaseEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns every stored entry once, oldest first
func (c *RedisCache) List(ctx context.Context) ([]domain.ProductDatabaseEntry, error) {
	ids, err := c.client.SMembers(ctx, c.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	if len(ids) == 0 {
		return []domain.ProductDatabaseEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.entryKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	out := make([]domain.ProductDatabaseEntry, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.ProductDatabaseEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}

	sortEntries(out)
	return out, nil
}

// Clear removes every key under the cache prefix
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}
