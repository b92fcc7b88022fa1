// Package geo converts slippy-map tile addresses into Web-Mercator (EPSG:3857) coordinates.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// EarthRadius is the sphere radius used by the Web-Mercator projection, in meters.
const EarthRadius = 6378137.0

const radToDeg = 180 / math.Pi

// TileToProjected returns the projected coordinate of the top-left corner of tile (xtile, ytile)
// at the given zoom. The operation order is fixed so results are bit-reproducible.
func TileToProjected(zoom maptile.Zoom, xtile, ytile uint64) orb.Point {
	n := math.Ldexp(1, int(zoom))
	// Explicit conversion keeps the compiler from fusing into an FMA.
	lonDeg := float64(float64(xtile)/n*360.0) - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(ytile)/n)))
	latDeg := latRad * radToDeg
	return LngLatToMeters(lonDeg, latDeg)
}

// LngLatToMeters projects a WGS84 longitude/latitude pair (degrees) to meters.
func LngLatToMeters(lon, lat float64) orb.Point {
	x := lon * EarthRadius * math.Pi / 180.0
	y := math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) * EarthRadius
	return orb.Point{x, y}
}

// MetersToLngLat is the inverse of LngLatToMeters.
func MetersToLngLat(p orb.Point) (lon, lat float64) {
	lon = p.X() / EarthRadius * radToDeg
	lat = (2*math.Atan(math.Exp(p.Y()/EarthRadius)) - math.Pi/2) * radToDeg
	return lon, lat
}

// TileBounds returns the projected bounding box of a tile, built from its top-left corner
// and the top-left corner of the diagonal neighbour (x+1, y+1).
//
// Addresses outside [0, 2^zoom) are not rejected; they produce a box that lies outside
// the projected world or collapses to zero height.
func TileBounds(t maptile.Tile) orb.Bound {
	topLeft := TileToProjected(t.Z, uint64(t.X), uint64(t.Y))
	bottomRight := TileToProjected(t.Z, uint64(t.X)+1, uint64(t.Y)+1)
	return orb.Bound{
		Min: orb.Point{topLeft.X(), bottomRight.Y()},
		Max: orb.Point{bottomRight.X(), topLeft.Y()},
	}
}

// BoundToLngLat converts a projected bound into a WGS84 bound.
func BoundToLngLat(b orb.Bound) orb.Bound {
	minLon, minLat := MetersToLngLat(b.Min)
	maxLon, maxLat := MetersToLngLat(b.Max)
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}
