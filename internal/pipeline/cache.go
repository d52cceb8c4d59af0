package pipeline

import (
	"sync"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/birdsound-go/internal/errors"
)

// artifactCache holds immutable artifacts keyed by kind and path. Entries
// never expire; a failed load is not stored, so the next call retries it.
// Concurrent loads of the same key share one load.
type artifactCache struct {
	items *cache.Cache
	group singleflight.Group
	mu    sync.Mutex // serializes eviction in closeAll
}

func newArtifactCache() *artifactCache {
	// no janitor goroutine: nothing expires
	return &artifactCache{items: cache.New(cache.NoExpiration, 0)}
}

// getOrLoad returns the cached value for key, calling load on a miss. loaded
// reports whether this call ran load.
func (c *artifactCache) getOrLoad(key string, load func() (any, error)) (value any, loaded bool, err error) {
	if v, ok := c.items.Get(key); ok {
		return v, false, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.items.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		loaded = true
		c.items.Set(key, v, cache.NoExpiration)
		return v, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v, loaded, nil
}

func (c *artifactCache) len() int {
	return c.items.ItemCount()
}

// closeAll empties the cache and closes every value implementing Close.
func (c *artifactCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, item := range c.items.Items() {
		if closer, ok := item.Object.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.items.Delete(key)
	}
	return errors.Join(errs...)
}
