package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/movie-ratings/reelscrape/internal/model"
)

// Cache stores fetched page bodies keyed by URL hash
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// KeyFor generates a cache key from a page URL
func KeyFor(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "reelscrape:page:v1:" + hex.EncodeToString(hash[:])
}

// New builds the page cache described by cfg: nil when disabled, memory only
// without a directory, memory over disk otherwise
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}
