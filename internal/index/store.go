// Package index provides an immutable, bulk-loaded spatial index over projected points.
package index

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// Options controls the R-tree node fan-out.
type Options struct {
	MinChildren int
	MaxChildren int
}

// DefaultOptions returns the fan-out used when none is configured.
func DefaultOptions() Options {
	return Options{MinChildren: 25, MaxChildren: 50}
}

// entry adapts a point to rtreego.Spatial as a zero-area rectangle.
type entry struct {
	p orb.Point
}

func (e entry) Bounds() rtreego.Rect {
	return rtreego.Point{e.p[0], e.p[1]}.ToRect(0)
}

// Store is a read-only point index. It is built once by Build and may then be
// queried from any number of goroutines without synchronization.
type Store struct {
	tree   *rtreego.Rtree
	size   int
	extent orb.Bound
}

// Build bulk loads points into a new Store. The input slice is not retained.
func Build(points []orb.Point, opts Options) *Store {
	if opts.MinChildren <= 0 || opts.MaxChildren <= 0 {
		opts = DefaultOptions()
	}

	objs := make([]rtreego.Spatial, len(points))
	for i, p := range points {
		objs[i] = entry{p: p}
	}

	s := &Store{
		tree: rtreego.NewTree(2, opts.MinChildren, opts.MaxChildren, objs...),
		size: len(points),
	}
	if len(points) > 0 {
		s.extent = orb.MultiPoint(points).Bound()
	}
	return s
}

// Len returns the number of indexed points.
func (s *Store) Len() int {
	return s.size
}

// Extent returns the bounding box of all indexed points. ok is false for an empty store.
func (s *Store) Extent() (b orb.Bound, ok bool) {
	if s.size == 0 {
		return orb.Bound{}, false
	}
	return s.extent, true
}

// Query returns all points inside the closed box b. Order is unspecified.
// An empty result is an empty (non-nil) slice.
func (s *Store) Query(b orb.Bound) []orb.Point {
	out := make([]orb.Point, 0)
	if s.size == 0 {
		return out
	}

	// Widen the search rectangle by one ulp on every side so points lying exactly on
	// the edge are reported regardless of how the tree treats touching rectangles,
	// then filter against the closed box.
	lo := rtreego.Point{
		math.Nextafter(b.Min.X(), math.Inf(-1)),
		math.Nextafter(b.Min.Y(), math.Inf(-1)),
	}
	hi := rtreego.Point{
		math.Nextafter(b.Max.X(), math.Inf(1)),
		math.Nextafter(b.Max.Y(), math.Inf(1)),
	}
	rect, err := rtreego.NewRectFromPoints(lo, hi)
	if err != nil {
		return out
	}

	for _, obj := range s.tree.SearchIntersect(rect) {
		p := obj.(entry).p
		if b.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
