// Package imageprovider resolves species illustrations from a local asset
// directory and caches the lookups.
package imageprovider

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/species"
)

// ErrImageNotFound is returned when no illustration exists for a species.
// It is a plain sentinel: a miss is an expected outcome, not a failure.
var ErrImageNotFound = errors.NewStd("illustration not found")

// ImageProvider resolves the illustration for a species.
type ImageProvider interface {
	Fetch(sp species.Species) (Illustration, error)
}

// Opener opens an illustration returned by Fetch.
type Opener interface {
	Open(ill Illustration) (afero.File, error)
}

// Illustration describes one image asset.
type Illustration struct {
	Path        string    `json:"-"` // location inside the provider filesystem
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modified"`
}

// CacheMetrics receives cache hit and miss notifications.
type CacheMetrics interface {
	IncrementCacheHits()
	IncrementCacheMisses()
}

// negativeEntry marks a species known to have no illustration.
type negativeEntry struct{}

// ImageCache memoizes provider lookups, including misses. Entries expire
// after the configured TTL; a zero TTL keeps them for the process lifetime.
type ImageCache struct {
	provider ImageProvider
	entries  *cache.Cache
	metrics  CacheMetrics
}

// GetLogger returns the imageprovider logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imageprovider")
}

// NewImageCache wraps provider with a lookup cache.
func NewImageCache(provider ImageProvider, ttl time.Duration) *ImageCache {
	expiration, cleanup := cache.NoExpiration, time.Duration(0)
	if ttl > 0 {
		expiration, cleanup = ttl, 2*ttl
	}
	return &ImageCache{
		provider: provider,
		entries:  cache.New(expiration, cleanup),
	}
}

// SetMetrics attaches cache metrics.
func (c *ImageCache) SetMetrics(m CacheMetrics) {
	c.metrics = m
}

// Fetch implements ImageProvider.
func (c *ImageCache) Fetch(sp species.Species) (Illustration, error) {
	key := cacheKey(sp)

	if value, ok := c.entries.Get(key); ok {
		if c.metrics != nil {
			c.metrics.IncrementCacheHits()
		}
		switch v := value.(type) {
		case Illustration:
			return v, nil
		case negativeEntry:
			return Illustration{}, ErrImageNotFound
		}
	}

	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}

	ill, err := c.provider.Fetch(sp)
	switch {
	case err == nil:
		c.entries.SetDefault(key, ill)
	case errors.Is(err, ErrImageNotFound):
		c.entries.SetDefault(key, negativeEntry{})
	default:
		// transient failures are not cached
		return Illustration{}, err
	}
	return ill, err
}

// Open delegates to the wrapped provider when it implements Opener.
func (c *ImageCache) Open(ill Illustration) (afero.File, error) {
	opener, ok := c.provider.(Opener)
	if !ok {
		return nil, errors.New(fmt.Errorf("image provider %T cannot open files", c.provider)).
			Component("imageprovider").
			Category(errors.CategoryImageProvider).
			Build()
	}
	return opener.Open(ill)
}

// Flush drops all cached lookups.
func (c *ImageCache) Flush() {
	c.entries.Flush()
}

// Len returns the number of cached lookups, misses included.
func (c *ImageCache) Len() int {
	return c.entries.ItemCount()
}

func cacheKey(sp species.Species) string {
	return sp.Label + "\x00" + sp.Image
}
