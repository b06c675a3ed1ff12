package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gorm.io/gorm"
)

// BBox is a longitude/latitude bounding box.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, invalidValue(ParamBBox, s, "expected minLon,minLat,maxLon,maxLat")
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, invalidValue(ParamBBox, s, fmt.Sprintf("coordinate %d is not a number", i+1))
		}
		v[i] = f
	}

	b := BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	switch {
	case b.MinLon < -180 || b.MaxLon > 180:
		return BBox{}, invalidValue(ParamBBox, s, "longitude out of range")
	case b.MinLat < -90 || b.MaxLat > 90:
		return BBox{}, invalidValue(ParamBBox, s, "latitude out of range")
	case b.MinLon > b.MaxLon || b.MinLat > b.MaxLat:
		return BBox{}, invalidValue(ParamBBox, s, "minimum exceeds maximum")
	}
	return b, nil
}

// Bound returns the box as an orb.Bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// SpatialPolicy decides which geometries a bounding box selects.
type SpatialPolicy int

const (
	// SpatialOverlap selects geometries intersecting the box. It is the default.
	SpatialOverlap SpatialPolicy = iota
	// SpatialStrict selects geometries lying fully inside the box.
	SpatialStrict
)

func (p SpatialPolicy) String() string {
	if p == SpatialStrict {
		return "strict"
	}
	return "overlap"
}

// ParseSpatialPolicy maps the bbox_overlap flag to a policy. Empty means overlap.
func ParseSpatialPolicy(overlap string) (SpatialPolicy, error) {
	if strings.TrimSpace(overlap) == "" {
		return SpatialOverlap, nil
	}
	b, err := parseBool(strings.TrimSpace(overlap))
	if err != nil {
		return SpatialOverlap, invalidValue(ParamBBoxOverlap, overlap, "expected a boolean")
	}
	if b {
		return SpatialOverlap, nil
	}
	return SpatialStrict, nil
}

// SpatialFilter is a bounding box with its inclusion policy.
type SpatialFilter struct {
	Box    BBox
	Policy SpatialPolicy
}

// Scope filters places on their envelope columns. Places with NULL geometry
// have NULL envelopes and never pass. In strict mode the scope is exact; in
// overlap mode it is a prefilter and candidates must be refined with Matches.
func (f SpatialFilter) Scope() Scope {
	b := f.Box
	return func(db *gorm.DB) *gorm.DB {
		if f.Policy == SpatialStrict {
			return db.Where("places.min_lon >= ? AND places.min_lat >= ? AND places.max_lon <= ? AND places.max_lat <= ?",
				b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
		}
		return db.Where("places.min_lon <= ? AND places.max_lon >= ? AND places.min_lat <= ? AND places.max_lat >= ?",
			b.MaxLon, b.MinLon, b.MaxLat, b.MinLat)
	}
}

// NeedsRefinement reports whether envelope candidates must pass Matches.
func (f SpatialFilter) NeedsRefinement() bool {
	return f.Policy == SpatialOverlap
}

// Matches reports whether g satisfies the filter exactly.
func (f SpatialFilter) Matches(g orb.Geometry) bool {
	if g == nil {
		return false
	}
	box := f.Box.Bound()
	gb := g.Bound()

	if box.Contains(gb.Min) && box.Contains(gb.Max) {
		return true
	}
	if f.Policy == SpatialStrict || !box.Intersects(gb) {
		return false
	}
	return intersects(g, box)
}

// intersects is the exact geometry/box intersection test.
func intersects(g orb.Geometry, box orb.Bound) bool {
	switch g := g.(type) {
	case orb.Point:
		return box.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if box.Contains(p) {
				return true
			}
		}
	case orb.LineString:
		return pathIntersects(g, box)
	case orb.MultiLineString:
		for _, ls := range g {
			if pathIntersects(ls, box) {
				return true
			}
		}
	case orb.Ring:
		return polygonIntersects(orb.Polygon{g}, box)
	case orb.Polygon:
		return polygonIntersects(g, box)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonIntersects(p, box) {
				return true
			}
		}
	case orb.Collection:
		for _, sub := range g {
			if intersects(sub, box) {
				return true
			}
		}
	case orb.Bound:
		return box.Intersects(g)
	}
	return false
}

func pathIntersects(path []orb.Point, box orb.Bound) bool {
	for _, p := range path {
		if box.Contains(p) {
			return true
		}
	}
	edges := boxEdges(box)
	for i := 1; i < len(path); i++ {
		for _, e := range edges {
			if segmentsIntersect(path[i-1], path[i], e[0], e[1]) {
				return true
			}
		}
	}
	return false
}

func polygonIntersects(poly orb.Polygon, box orb.Bound) bool {
	for _, ring := range poly {
		if pathIntersects(ring, box) {
			return true
		}
	}
	// box entirely inside the polygon
	return planar.PolygonContains(poly, box.Center())
}

func boxEdges(b orb.Bound) [4][2]orb.Point {
	ll, lr := b.Min, orb.Point{b.Max[0], b.Min[1]}
	ur, ul := b.Max, orb.Point{b.Min[0], b.Max[1]}
	return [4][2]orb.Point{{ll, lr}, {lr, ur}, {ur, ul}, {ul, ll}}
}

// segmentsIntersect reports whether segments ab and cd share a point.
func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)

	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(a, c, b)) ||
		(o2 == 0 && onSegment(a, d, b)) ||
		(o3 == 0 && onSegment(c, a, d)) ||
		(o4 == 0 && onSegment(c, b, d))
}

func orientation(p, q, r orb.Point) int {
	v := (q[1]-p[1])*(r[0]-q[0]) - (q[0]-p[0])*(r[1]-q[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether q lies on segment pr, given the three are collinear.
func onSegment(p, q, r orb.Point) bool {
	return q[0] <= max(p[0], r[0]) && q[0] >= min(p[0], r[0]) &&
		q[1] <= max(p[1], r[1]) && q[1] >= min(p[1], r[1])
}
