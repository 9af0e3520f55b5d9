package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/google/uuid"
)

const (
	defaultKeyCacheTTL = 5 * time.Minute
	keyCacheShards     = 64
	keyCacheMaxEntryB  = 64

	errNewKeyCacheFmt = "failed to create key cache: %w"
)

// KeyCache maps API key hashes to key ids so repeated requests skip the
// collection scan. Only the id is cached; the key record itself is always
// re-read so revocation and expiry take effect immediately.
type KeyCache struct {
	cache *bigcache.BigCache
}

// NewKeyCache creates a cache whose entries live for ttl (a default when ttl <= 0)
func NewKeyCache(ctx context.Context, ttl time.Duration) (*KeyCache, error) {
	if ttl <= 0 {
		ttl = defaultKeyCacheTTL
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = keyCacheShards
	cfg.CleanWindow = ttl
	cfg.MaxEntrySize = keyCacheMaxEntryB
	cfg.Verbose = false

	c, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf(errNewKeyCacheFmt, err)
	}
	return &KeyCache{cache: c}, nil
}

// Get returns the key id cached for hash
func (c *KeyCache) Get(hash string) (uuid.UUID, bool) {
	raw, err := c.cache.Get(hash)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		_ = c.cache.Delete(hash)
		return uuid.Nil, false
	}
	return id, true
}

func (c *KeyCache) Set(hash string, id uuid.UUID) {
	raw, _ := id.MarshalBinary()
	_ = c.cache.Set(hash, raw)
}

// Delete drops hash from the cache. Missing entries are not an error.
func (c *KeyCache) Delete(hash string) error {
	err := c.cache.Delete(hash)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (c *KeyCache) Len() int {
	return c.cache.Len()
}

func (c *KeyCache) Close() error {
	return c.cache.Close()
}
