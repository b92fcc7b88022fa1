package render

import (
	"github.com/paulmach/orb"
)

// TileSize is the width and height of every rendered tile, in pixels.
const TileSize = 256

// Grid is a row-major histogram of point counts. Row 0 is the northern edge of the box.
type Grid struct {
	Width  int
	Height int
	Counts []uint32
}

// NewGrid allocates a zeroed width x height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Counts: make([]uint32, width*height),
	}
}

// At returns the count in cell (col, row).
func (g *Grid) At(col, row int) uint32 {
	return g.Counts[row*g.Width+col]
}

// Max returns the largest cell count, or 0 for an empty grid.
func (g *Grid) Max() uint32 {
	var m uint32
	for _, c := range g.Counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Sum returns the total of all cells.
func (g *Grid) Sum() uint64 {
	var s uint64
	for _, c := range g.Counts {
		s += uint64(c)
	}
	return s
}

// NonZero returns the number of cells holding at least one point.
func (g *Grid) NonZero() int {
	n := 0
	for _, c := range g.Counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// Bin counts points into a width x height grid laid over b. Column and row are
// floor((x-xmin)/(xmax-xmin)*width) and floor((ymax-y)/(ymax-ymin)*height); points that
// land outside [0,width) x [0,height) are dropped, which includes anything on the
// east or south edge and any NaN produced by a zero-size box.
func Bin(points []orb.Point, b orb.Bound, width, height int) *Grid {
	g := NewGrid(width, height)

	spanX := b.Max.X() - b.Min.X()
	spanY := b.Max.Y() - b.Min.Y()
	w, h := float64(width), float64(height)

	for _, p := range points {
		fx := (p.X() - b.Min.X()) / spanX * w
		fy := (b.Max.Y() - p.Y()) / spanY * h
		if !(fx >= 0 && fx < w && fy >= 0 && fy < h) {
			continue
		}
		col, row := int(fx), int(fy)
		g.Counts[row*width+col]++
	}
	return g
}
