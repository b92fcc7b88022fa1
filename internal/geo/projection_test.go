package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"
)

func TestTileToProjected_Golden(t *testing.T) {
	tests := []struct {
		zoom   maptile.Zoom
		x, y   uint64
		wantX  float64
		wantY  float64
		yDelta float64
	}{
		{zoom: 0, x: 0, y: 0, wantX: -20037508.34278924, wantY: 20037508.342789277, yDelta: 1e-6},
		{zoom: 0, x: 1, y: 1, wantX: 20037508.34278924, wantY: -20037508.342789255, yDelta: 1e-6},
		{zoom: 1, x: 0, y: 0, wantX: -20037508.34278924, wantY: 20037508.342789277, yDelta: 1e-6},
		{zoom: 1, x: 1, y: 1, wantX: 0, wantY: 0, yDelta: 1e-6},
		{zoom: 10, x: 512, y: 340, wantX: 0, wantY: 6731350.458905762, yDelta: 1e-6},
		{zoom: 10, x: 301, y: 384, wantX: -8257645.03970416, wantY: 5009377.08569731, yDelta: 1e-6},
		{zoom: 17, x: 70406, y: 42987, wantX: 1488993.3109952332, wantY: 6894314.203209756, yDelta: 1e-6},
	}

	for _, tt := range tests {
		got := TileToProjected(tt.zoom, tt.x, tt.y)
		if got.X() != tt.wantX {
			t.Errorf("TileToProjected(%d, %d, %d).X = %v, want %v", tt.zoom, tt.x, tt.y, got.X(), tt.wantX)
		}
		if math.Abs(got.Y()-tt.wantY) > tt.yDelta {
			t.Errorf("TileToProjected(%d, %d, %d).Y = %v, want %v", tt.zoom, tt.x, tt.y, got.Y(), tt.wantY)
		}
	}
}

func TestTileToProjected_Deterministic(t *testing.T) {
	a := TileToProjected(13, 4297, 2687)
	b := TileToProjected(13, 4297, 2687)
	if a != b {
		t.Fatalf("expected identical results, got %v and %v", a, b)
	}
}

func TestTileToProjected_RoundTrip(t *testing.T) {
	for zoom := maptile.Zoom(0); zoom <= 20; zoom++ {
		n := uint64(1) << zoom
		for _, x := range []uint64{0, n / 3, n / 2, n - 1, n} {
			for _, y := range []uint64{0, n / 5, n / 2, n - 1, n} {
				p := TileToProjected(zoom, x, y)
				lon, lat := MetersToLngLat(p)

				wantLon := float64(x)/float64(n)*360.0 - 180.0
				wantLat := math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/float64(n)))) * 180 / math.Pi

				if math.Abs(lon-wantLon) > 1e-9 {
					t.Fatalf("zoom %d tile (%d,%d): lon %v, want %v", zoom, x, y, lon, wantLon)
				}
				if math.Abs(lat-wantLat) > 1e-9 {
					t.Fatalf("zoom %d tile (%d,%d): lat %v, want %v", zoom, x, y, lat, wantLat)
				}
			}
		}
	}
}

func TestMetersToLngLat_MatchesOrbProjection(t *testing.T) {
	points := []orb.Point{
		{0, 0},
		{1488993.3109952332, 6894314.203209756},
		{-8257645.03970416, 5009377.08569731},
		{15000000, -12000000},
	}
	for _, p := range points {
		lon, lat := MetersToLngLat(p)
		ref := project.Mercator.ToWGS84(p)
		if math.Abs(lon-ref.Lon()) > 1e-9 || math.Abs(lat-ref.Lat()) > 1e-9 {
			t.Errorf("MetersToLngLat(%v) = (%v, %v), orb gives %v", p, lon, lat, ref)
		}
	}
}

func TestTileBounds_Ordering(t *testing.T) {
	for zoom := maptile.Zoom(0); zoom <= 20; zoom++ {
		n := uint32(1) << zoom
		for _, x := range []uint32{0, n / 2, n - 1} {
			for _, y := range []uint32{0, n / 2, n - 1} {
				b := TileBounds(maptile.New(x, y, zoom))
				if !(b.Min.X() < b.Max.X()) {
					t.Fatalf("zoom %d tile (%d,%d): xmin %v >= xmax %v", zoom, x, y, b.Min.X(), b.Max.X())
				}
				if !(b.Min.Y() < b.Max.Y()) {
					t.Fatalf("zoom %d tile (%d,%d): ymin %v >= ymax %v", zoom, x, y, b.Min.Y(), b.Max.Y())
				}
			}
		}
	}
}

func TestTileBounds_AdjacentTilesShareEdges(t *testing.T) {
	left := TileBounds(maptile.New(10, 20, 6))
	right := TileBounds(maptile.New(11, 20, 6))
	below := TileBounds(maptile.New(10, 21, 6))

	if left.Max.X() != right.Min.X() {
		t.Errorf("expected shared vertical edge, got %v and %v", left.Max.X(), right.Min.X())
	}
	if left.Min.Y() != below.Max.Y() {
		t.Errorf("expected shared horizontal edge, got %v and %v", left.Min.Y(), below.Max.Y())
	}
}

// Out-of-range addresses are accepted and still yield a box; it simply lies off the map.
func TestTileBounds_OutOfRangeAccepted(t *testing.T) {
	world := TileBounds(maptile.New(0, 0, 0))
	b := TileBounds(maptile.New(5, 0, 0))

	if b.Min.X() <= world.Max.X() {
		t.Errorf("expected box east of the world, got xmin %v", b.Min.X())
	}
	if math.IsNaN(b.Min.X()) || math.IsNaN(b.Max.X()) {
		t.Errorf("expected finite x range, got %v", b)
	}

	// Rows past the bottom of the map collapse towards the pole; no panic, no validation.
	_ = TileBounds(maptile.New(0, math.MaxUint32, 3))
}

func TestBoundToLngLat_World(t *testing.T) {
	b := BoundToLngLat(TileBounds(maptile.New(0, 0, 0)))
	if math.Abs(b.Min.Lon()+180) > 1e-9 || math.Abs(b.Max.Lon()-180) > 1e-9 {
		t.Errorf("unexpected longitude range: %v", b)
	}
	if math.Abs(b.Max.Lat()-85.0511287798) > 1e-6 || math.Abs(b.Min.Lat()+85.0511287798) > 1e-6 {
		t.Errorf("unexpected latitude range: %v", b)
	}
}
