package usage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pairwise-app/faceverify/internal/cache"
)

// CacheAdapter exposes the byte-oriented database cache through the
// JSON interface the usage service expects. Cache errors surface to
// the caller, which treats any error as a miss.
type CacheAdapter struct {
	store *cache.PGCache
}

func NewCacheAdapter(store *cache.PGCache) *CacheAdapter {
	return &CacheAdapter{store: store}
}

func (a *CacheAdapter) Get(ctx context.Context, key string, value interface{}) error {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, value)
}

func (a *CacheAdapter) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data, ttl)
}
