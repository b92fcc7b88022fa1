package render

import (
	"image"

	"github.com/heatmap-tiles/server/pkg/colormap"
)

// Colorize maps every cell of g to a pixel. Counts are normalized by the grid's own
// maximum, so intensity is relative to the tile rather than to the dataset. Empty
// cells, and every cell of an all-empty grid, stay fully transparent black.
func Colorize(g *Grid, cmap colormap.Colormap) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))

	maxCount := g.Max()
	if maxCount == 0 {
		return img
	}

	scale := float64(maxCount)
	for i, c := range g.Counts {
		if c == 0 {
			continue
		}
		px := cmap.At(float64(c) / scale)
		o := i * 4
		img.Pix[o+0] = px.R
		img.Pix[o+1] = px.G
		img.Pix[o+2] = px.B
		img.Pix[o+3] = 255
	}
	return img
}
