// Package colormap maps normalized density values to colors.
package colormap

import (
	"image/color"
	"math"
	"sort"
)

// Colormap maps a normalized value t in (0, 1] to an opaque color.
// Callers handle t == 0 (no data) themselves.
type Colormap interface {
	At(t float64) color.NRGBA
}

// HeatColormap is the linear blue to red ramp: red = round(255*t), blue = 255 - red.
type HeatColormap struct{}

// At returns the heat color for t, clamped to [0, 1].
func (HeatColormap) At(t float64) color.NRGBA {
	t = clamp(t)
	r := uint8(math.Round(255 * t))
	return color.NRGBA{R: r, G: 0, B: 255 - r, A: 255}
}

// LinearColormap interpolates linearly between evenly spaced stops.
type LinearColormap struct {
	colors []color.NRGBA
}

// NewLinear builds a LinearColormap from at least two stops.
func NewLinear(stops ...color.NRGBA) LinearColormap {
	if len(stops) == 1 {
		stops = append(stops, stops[0])
	}
	return LinearColormap{colors: stops}
}

// At returns the color at position t (0-1).
func (c LinearColormap) At(t float64) color.NRGBA {
	t = clamp(t)
	idx := t * float64(len(c.colors)-1)
	lower := int(idx)
	if lower >= len(c.colors)-1 {
		return c.colors[len(c.colors)-1]
	}
	return interpolate(c.colors[lower], c.colors[lower+1], idx-float64(lower))
}

func interpolate(c1, c2 color.NRGBA, t float64) color.NRGBA {
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + t*(float64(b)-float64(a))))
	}
	return color.NRGBA{
		R: lerp(c1.R, c2.R),
		G: lerp(c1.G, c2.G),
		B: lerp(c1.B, c2.B),
		A: 255,
	}
}

func clamp(t float64) float64 {
	switch {
	case math.IsNaN(t), t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Default is the name of the colormap used when a request does not pick one.
const Default = "heat"

// Heat is the default density ramp.
var Heat = HeatColormap{}

// BlueYellowRed is a three-stop ramp through yellow.
var BlueYellowRed = NewLinear(
	color.NRGBA{0, 0, 255, 255},
	color.NRGBA{255, 255, 0, 255},
	color.NRGBA{255, 0, 0, 255},
)

// Viridis colormap (matplotlib viridis)
var Viridis = NewLinear(
	color.NRGBA{68, 1, 84, 255},
	color.NRGBA{72, 35, 116, 255},
	color.NRGBA{64, 67, 135, 255},
	color.NRGBA{52, 94, 141, 255},
	color.NRGBA{41, 120, 142, 255},
	color.NRGBA{32, 144, 140, 255},
	color.NRGBA{34, 167, 132, 255},
	color.NRGBA{68, 190, 112, 255},
	color.NRGBA{121, 209, 81, 255},
	color.NRGBA{189, 222, 38, 255},
	color.NRGBA{253, 231, 37, 255},
)

// Inferno colormap
var Inferno = NewLinear(
	color.NRGBA{0, 0, 4, 255},
	color.NRGBA{40, 11, 84, 255},
	color.NRGBA{101, 21, 110, 255},
	color.NRGBA{159, 42, 99, 255},
	color.NRGBA{212, 72, 66, 255},
	color.NRGBA{245, 125, 21, 255},
	color.NRGBA{250, 193, 39, 255},
	color.NRGBA{252, 255, 164, 255},
)

var registry = map[string]Colormap{
	"heat":    Heat,
	"bys":     BlueYellowRed,
	"viridis": Viridis,
	"inferno": Inferno,
}

// Lookup returns the colormap registered under name.
func Lookup(name string) (Colormap, bool) {
	c, ok := registry[name]
	return c, ok
}

// Names returns the registered colormap names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
