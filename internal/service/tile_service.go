// Package service provides business logic for the tile server.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"

	"github.com/heatmap-tiles/server/internal/cache"
	"github.com/heatmap-tiles/server/internal/data/tabular"
	"github.com/heatmap-tiles/server/internal/geo"
	"github.com/heatmap-tiles/server/internal/index"
	"github.com/heatmap-tiles/server/internal/render"
	"github.com/heatmap-tiles/server/pkg/colormap"
)

// ErrUnknownColormap is returned when a request names a colormap that is not registered.
var ErrUnknownColormap = errors.New("unknown colormap")

// TileServiceConfig contains tile service configuration.
type TileServiceConfig struct {
	Store    *index.Store
	Renderer *render.TileRenderer
	Pool     *RenderPool
	Cache    *cache.Manager // optional

	DefaultColormap string
	Source          string
	Load            tabular.Stats
}

// TileService handles tile rendering and serving. The point store is read-only
// and shared by every request.
type TileService struct {
	store    *index.Store
	renderer *render.TileRenderer
	pool     *RenderPool
	cache    *cache.Manager

	defaultColormap string
	source          string
	load            tabular.Stats
}

// NewTileService creates a new tile service.
func NewTileService(cfg TileServiceConfig) *TileService {
	defaultColormap := cfg.DefaultColormap
	if _, ok := colormap.Lookup(defaultColormap); !ok {
		defaultColormap = colormap.Default
	}
	return &TileService{
		store:           cfg.Store,
		renderer:        cfg.Renderer,
		pool:            cfg.Pool,
		cache:           cfg.Cache,
		defaultColormap: defaultColormap,
		source:          cfg.Source,
		load:            cfg.Load,
	}
}

// TileStats describes what falls inside one tile.
type TileStats struct {
	Z            uint32       `json:"z"`
	X            uint32       `json:"x"`
	Y            uint32       `json:"y"`
	Bounds       [4]jsonFloat `json:"bounds"`
	LngLatBounds [4]jsonFloat `json:"lnglat_bounds"`
	Points       int          `json:"points"`
	Binned       uint64       `json:"binned"`
	MaxCount     uint32       `json:"max_count"`
	NonEmpty     int          `json:"nonempty_cells"`
}

// DatasetInfo summarizes the loaded dataset.
type DatasetInfo struct {
	Source    string        `json:"source"`
	Points    int           `json:"points"`
	Defaulted int           `json:"defaulted"`
	Skipped   int           `json:"skipped"`
	Extent    *[4]jsonFloat `json:"extent,omitempty"`
	Colormaps []string      `json:"colormaps"`
	Default   string        `json:"default_colormap"`
}

func (s *TileService) resolveColormap(name string) (string, colormap.Colormap, error) {
	if name == "" {
		name = s.defaultColormap
	}
	cmap, ok := colormap.Lookup(name)
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownColormap, name)
	}
	return name, cmap, nil
}

// GetTile renders the heatmap tile t. An empty colormap name selects the default.
func (s *TileService) GetTile(ctx context.Context, t maptile.Tile, format render.Format, cmapName string) ([]byte, error) {
	name, cmap, err := s.resolveColormap(cmapName)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = render.FormatPNG
	}

	var cacheKey string
	if s.cache != nil && s.cache.TilesEnabled() {
		cacheKey = cache.TileKey(uint32(t.Z), t.X, t.Y, string(format), name)
		if data, ok := s.cache.GetTile(cacheKey); ok {
			return data, nil
		}
	}

	data, err := s.pool.Do(ctx, func() ([]byte, error) {
		return s.renderer.RenderTile(t, s.store, render.Options{Format: format, Colormap: cmap})
	})
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if err := s.cache.SetTile(cacheKey, data); err != nil {
			log.Debug().Err(err).Str("key", cacheKey).Msg("Tile not cached")
		}
	}
	return data, nil
}

// GetDebugTile renders t with its outline and a label. Debug tiles are never cached.
func (s *TileService) GetDebugTile(ctx context.Context, t maptile.Tile, cmapName string) ([]byte, error) {
	_, cmap, err := s.resolveColormap(cmapName)
	if err != nil {
		return nil, err
	}
	return s.pool.Do(ctx, func() ([]byte, error) {
		return s.renderer.RenderDebugTile(t, s.store, render.Options{Colormap: cmap})
	})
}

// GetStats returns the JSON encoded TileStats for t.
func (s *TileService) GetStats(ctx context.Context, t maptile.Tile) ([]byte, error) {
	key := cache.StatsKey(uint32(t.Z), t.X, t.Y)
	if s.cache != nil {
		if data, ok := s.cache.GetStats(key); ok {
			return data, nil
		}
	}

	data, err := s.pool.Do(ctx, func() ([]byte, error) {
		d := s.renderer.Aggregate(t, s.store)
		ll := geo.BoundToLngLat(d.Bounds)
		return json.Marshal(TileStats{
			Z:            uint32(t.Z),
			X:            t.X,
			Y:            t.Y,
			Bounds:       boundArray(d.Bounds),
			LngLatBounds: boundArray(ll),
			Points:       d.Points,
			Binned:       d.Grid.Sum(),
			MaxCount:     d.Grid.Max(),
			NonEmpty:     d.Grid.NonZero(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetStats(key, data)
	}
	return data, nil
}

// Dataset returns information about the loaded dataset.
func (s *TileService) Dataset() DatasetInfo {
	info := DatasetInfo{
		Source:    s.source,
		Points:    s.store.Len(),
		Defaulted: s.load.Defaulted,
		Skipped:   s.load.Skipped,
		Colormaps: colormap.Names(),
		Default:   s.defaultColormap,
	}
	if b, ok := s.store.Extent(); ok {
		extent := boundArray(b)
		info.Extent = &extent
	}
	return info
}

// CacheStats returns cache statistics, or nil without a cache.
func (s *TileService) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return nil
	}
	return s.cache.Stats()
}

// jsonFloat encodes non-finite values as null. Out-of-range tile addresses can
// project to infinite bounds.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// boundArray flattens b to [xmin, ymin, xmax, ymax].
func boundArray(b orb.Bound) [4]jsonFloat {
	return [4]jsonFloat{
		jsonFloat(b.Min.X()), jsonFloat(b.Min.Y()),
		jsonFloat(b.Max.X()), jsonFloat(b.Max.Y()),
	}
}
