package feature

import (
	"math"

	"github.com/ctessum/geom"
)

// PolygonsOf flattens any polygonal geometry into its simple parts.
func PolygonsOf(g geom.Geom) []geom.Polygon {
	switch t := g.(type) {
	case geom.Polygon:
		if len(t) == 0 {
			return nil
		}
		return []geom.Polygon{t}
	case geom.MultiPolygon:
		var out []geom.Polygon
		for _, p := range t {
			if len(p) > 0 {
				out = append(out, p)
			}
		}
		return out
	case geom.GeometryCollection:
		var out []geom.Polygon
		for _, sub := range t {
			out = append(out, PolygonsOf(sub)...)
		}
		return out
	}
	return nil
}

// BoundsPolygon returns the rectangle of b as a CCW polygon.
func BoundsPolygon(b *geom.Bounds) geom.Polygon {
	return geom.Polygon{{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}}
}

// ClipToBounds intersects a polygonal geometry with a rectangle and
// returns the simple polygon parts. An empty result means the geometry
// lies fully outside.
func ClipToBounds(p geom.Polygonal, b *geom.Bounds) []geom.Polygon {
	clipped := p.Intersection(BoundsPolygon(b))
	if clipped == nil {
		return nil
	}
	return PolygonsOf(clipped)
}

// PointInPolygonal reports whether pt lies inside or on the edge of p.
func PointInPolygonal(pt geom.Point, p geom.Polygonal) bool {
	return pt.Within(p) != geom.Outside
}

// RingPerimeter returns the length of a closed ring's boundary.
func RingPerimeter(ring []geom.Point) float64 {
	if len(ring) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < len(ring); i++ {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		sum += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return sum
}

// ResampleRing walks the closed ring and emits points at most maxSpacing
// apart, keeping the original vertices. Used for ground sampling along
// building outlines.
func ResampleRing(ring []geom.Point, maxSpacing float64) []geom.Point {
	if len(ring) < 2 || maxSpacing <= 0 {
		return append([]geom.Point(nil), ring...)
	}
	var out []geom.Point
	for i := 0; i < len(ring); i++ {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		out = append(out, a)
		d := math.Hypot(b.X-a.X, b.Y-a.Y)
		if d <= maxSpacing {
			continue
		}
		steps := int(math.Ceil(d / maxSpacing))
		for s := 1; s < steps; s++ {
			t := float64(s) / float64(steps)
			out = append(out, geom.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
		}
	}
	return out
}

// LineLength returns the polyline length of l.
func LineLength(l geom.LineString) float64 {
	var sum float64
	for i := 1; i < len(l); i++ {
		sum += math.Hypot(l[i].X-l[i-1].X, l[i].Y-l[i-1].Y)
	}
	return sum
}

// PointAlongLine returns the point at arc-length distance d from the
// start of l, clamped to the endpoints.
func PointAlongLine(l geom.LineString, d float64) geom.Point {
	if len(l) == 0 {
		return geom.Point{}
	}
	if d <= 0 {
		return l[0]
	}
	for i := 1; i < len(l); i++ {
		seg := math.Hypot(l[i].X-l[i-1].X, l[i].Y-l[i-1].Y)
		if seg <= 0 {
			continue
		}
		if d <= seg {
			t := d / seg
			return geom.Point{
				X: l[i-1].X + (l[i].X-l[i-1].X)*t,
				Y: l[i-1].Y + (l[i].Y-l[i-1].Y)*t,
			}
		}
		d -= seg
	}
	return l[len(l)-1]
}

// signedRingArea is positive for CCW rings.
func signedRingArea(ring []geom.Point) float64 {
	var sum float64
	for i := 0; i < len(ring); i++ {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// CleanRing drops the closing duplicate point and consecutive
// duplicates. Returns nil when fewer than 3 distinct points remain.
func CleanRing(ring []geom.Point) []geom.Point {
	if len(ring) == 0 {
		return nil
	}
	out := make([]geom.Point, 0, len(ring))
	const eps = 1e-12
	for _, p := range ring {
		if len(out) > 0 {
			last := out[len(out)-1]
			if math.Abs(p.X-last.X) < eps && math.Abs(p.Y-last.Y) < eps {
				continue
			}
		}
		out = append(out, p)
	}
	// Drop an explicit closing point.
	if len(out) > 1 {
		first, last := out[0], out[len(out)-1]
		if math.Abs(first.X-last.X) < eps && math.Abs(first.Y-last.Y) < eps {
			out = out[:len(out)-1]
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// reverseRing reverses ring in place.
func reverseRing(ring []geom.Point) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// NormalizePolygon cleans every ring and orients the exterior CCW and
// holes CW. Degenerate polygons come back nil.
func NormalizePolygon(p geom.Polygon) geom.Polygon {
	var out geom.Polygon
	for ri, ring := range p {
		clean := CleanRing(ring)
		if clean == nil {
			if ri == 0 {
				return nil
			}
			continue
		}
		area := signedRingArea(clean)
		if ri == 0 && area < 0 {
			reverseRing(clean)
		} else if ri > 0 && area > 0 {
			reverseRing(clean)
		}
		out = append(out, clean)
	}
	return out
}
