// Package cache provides caching for encoded tiles and tile statistics.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration. A TileCacheSizeMB of zero disables the
// tile cache; the stats cache is always on.
type Config struct {
	TileCacheSizeMB int
	TileTTL         time.Duration
	StatsCacheSize  int
}

// Manager manages the tile and stats caches.
type Manager struct {
	tileCache  *bigcache.BigCache
	statsCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	statsCache, err := lru.New[string, []byte](cfg.StatsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats cache: %w", err)
	}
	m := &Manager{statsCache: statsCache}
	if cfg.TileCacheSizeMB <= 0 {
		return m, nil
	}

	// Configure tile cache
	tileCacheConfig := bigcache.Config{
		Shards:             256,
		LifeWindow:         cfg.TileTTL,
		CleanWindow:        cfg.TileTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       64 * 1024, // heatmap tiles are mostly transparent and small
		HardMaxCacheSize:   cfg.TileCacheSizeMB,
		Verbose:            false,
	}

	m.tileCache, err = bigcache.New(context.Background(), tileCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return m, nil
}

// TilesEnabled reports whether encoded tiles are cached.
func (m *Manager) TilesEnabled() bool {
	return m.tileCache != nil
}

// GetTile retrieves a tile from cache.
func (m *Manager) GetTile(key string) ([]byte, bool) {
	if m.tileCache == nil {
		return nil, false
	}
	data, err := m.tileCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetTile stores a tile in cache. It is a no-op when the tile cache is disabled.
func (m *Manager) SetTile(key string, data []byte) error {
	if m.tileCache == nil {
		return nil
	}
	return m.tileCache.Set(key, data)
}

// GetStats retrieves an encoded stats payload from cache.
func (m *Manager) GetStats(key string) ([]byte, bool) {
	return m.statsCache.Get(key)
}

// SetStats stores an encoded stats payload in cache.
func (m *Manager) SetStats(key string, data []byte) {
	m.statsCache.Add(key, data)
}

// TileKey generates a cache key for a rendered tile.
func TileKey(z, x, y uint32, format, colormap string) string {
	return fmt.Sprintf("tile:%d/%d/%d.%s:%s", z, x, y, format, colormap)
}

// StatsKey generates a cache key for tile statistics.
func StatsKey(z, x, y uint32) string {
	return fmt.Sprintf("stats:%d/%d/%d", z, x, y)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"tile_cache_enabled": m.tileCache != nil,
		"stats_cache_len":    m.statsCache.Len(),
	}
	if m.tileCache != nil {
		stats["tile_cache_len"] = m.tileCache.Len()
		stats["tile_cache_cap"] = m.tileCache.Capacity()
		stats["tile_cache_hits"] = m.tileCache.Stats().Hits
	}
	return stats
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	if m.tileCache == nil {
		return nil
	}
	return m.tileCache.Close()
}
