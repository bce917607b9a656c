package feature

import (
	"math"

	"github.com/ctessum/geom"
)

// bufferArcSegments is the number of segments per full circle used when
// polygonizing round joins and caps.
const bufferArcSegments = 16

// BufferLine buffers a polyline by radius with round joins and caps,
// returning the union of per-segment rectangles and per-vertex disks as
// simple polygons. Degenerate inputs (fewer than 2 points, zero radius)
// yield nil.
func BufferLine(l geom.LineString, radius float64) []geom.Polygon {
	if len(l) < 2 || radius <= 0 {
		return nil
	}

	var acc geom.Polygonal
	add := func(p geom.Polygon) {
		if len(p) == 0 || len(p[0]) < 3 {
			return
		}
		if acc == nil {
			acc = p
			return
		}
		acc = acc.Union(p)
	}

	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		if q := segmentQuad(a, b, radius); q != nil {
			add(q)
		}
	}
	for _, p := range l {
		add(diskPolygon(p, radius))
	}

	if acc == nil {
		return nil
	}
	return PolygonsOf(acc)
}

// segmentQuad returns the rectangle covering a segment offset by radius
// on both sides, or nil for zero-length segments.
func segmentQuad(a, b geom.Point, radius float64) geom.Polygon {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length < 1e-12 {
		return nil
	}
	// Normal of length radius, left of travel direction.
	nx, ny := -dy/length*radius, dx/length*radius
	return geom.Polygon{{
		{X: a.X + nx, Y: a.Y + ny},
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
	}}
}

// diskPolygon returns a CCW regular polygon approximating the disk of
// the given radius around c.
func diskPolygon(c geom.Point, radius float64) geom.Polygon {
	ring := make([]geom.Point, bufferArcSegments)
	for i := 0; i < bufferArcSegments; i++ {
		ang := 2 * math.Pi * float64(i) / bufferArcSegments
		ring[i] = geom.Point{
			X: c.X + radius*math.Cos(ang),
			Y: c.Y + radius*math.Sin(ang),
		}
	}
	return geom.Polygon{ring}
}

// UnionPolygons folds a set of polygons into their union and returns the
// simple parts. The fold order follows the input, so equal inputs give
// equal outputs.
func UnionPolygons(polys []geom.Polygon) []geom.Polygon {
	var acc geom.Polygonal
	for _, p := range polys {
		if len(p) == 0 {
			continue
		}
		if acc == nil {
			acc = p
			continue
		}
		acc = acc.Union(p)
	}
	if acc == nil {
		return nil
	}
	return PolygonsOf(acc)
}
