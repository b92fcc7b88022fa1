// Package render turns the points under a tile into a density heatmap image.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/heatmap-tiles/server/internal/geo"
	"github.com/heatmap-tiles/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	DefaultColormap string
	Compression     png.CompressionLevel
}

// PointSource answers closed bounding-box queries over projected points.
type PointSource interface {
	Query(b orb.Bound) []orb.Point
}

// Options selects the output of a single render. Zero values mean PNG and the default colormap.
type Options struct {
	Format   Format
	Colormap colormap.Colormap
}

// Density is the aggregation step of a render, before any coloring.
type Density struct {
	Bounds orb.Bound
	Points int
	Grid   *Grid
}

// TileRenderer renders heatmap tiles. It holds no per-tile state and is safe for
// concurrent use; every call recomputes the tile from the point source.
type TileRenderer struct {
	config      Config
	colormap    colormap.Colormap
	encoder     *Encoder
	contextPool sync.Pool
}

// NewTileRenderer creates a new tile renderer.
func NewTileRenderer(cfg Config) *TileRenderer {
	cmap, ok := colormap.Lookup(cfg.DefaultColormap)
	if !ok {
		cmap = colormap.Heat
	}
	return &TileRenderer{
		config:   cfg,
		colormap: cmap,
		encoder:  NewEncoder(cfg.Compression),
		contextPool: sync.Pool{
			New: func() interface{} {
				return gg.NewContext(TileSize, TileSize)
			},
		},
	}
}

// Aggregate maps t to its projected box, queries src and bins the result.
func (r *TileRenderer) Aggregate(t maptile.Tile, src PointSource) Density {
	bounds := geo.TileBounds(t)
	points := src.Query(bounds)
	return Density{
		Bounds: bounds,
		Points: len(points),
		Grid:   Bin(points, bounds, TileSize, TileSize),
	}
}

// RenderTile runs the full pipeline for one tile and returns the encoded image.
func (r *TileRenderer) RenderTile(t maptile.Tile, src PointSource, opts Options) ([]byte, error) {
	d := r.Aggregate(t, src)
	img := Colorize(d.Grid, r.colormapFor(opts))

	data, err := r.encoder.Encode(img, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("render tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// RenderDebugTile renders the heatmap with the tile outline and a label showing the
// address, the number of points in the box and the peak cell count.
func (r *TileRenderer) RenderDebugTile(t maptile.Tile, src PointSource, opts Options) ([]byte, error) {
	d := r.Aggregate(t, src)
	heat := Colorize(d.Grid, r.colormapFor(opts))

	dc := r.contextPool.Get().(*gg.Context)
	defer r.contextPool.Put(dc)

	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()
	dc.DrawImage(heat, 0, 0)

	dc.SetRGBA(0, 0, 0, 0.8)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, TileSize-1, TileSize-1)
	dc.Stroke()

	dc.DrawStringAnchored(fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y), 6, 6, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("n=%d max=%d", d.Points, d.Grid.Max()), 6, 22, 0, 1)

	out := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)

	data, err := r.encoder.Encode(out, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("render debug tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

func (r *TileRenderer) colormapFor(opts Options) colormap.Colormap {
	if opts.Colormap != nil {
		return opts.Colormap
	}
	return r.colormap
}
