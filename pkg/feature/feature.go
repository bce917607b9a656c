// Package feature defines the vector inputs of the composition engine:
// polygons, linestrings and points in projected metric coordinates, each
// carrying an OSM-like tag dictionary. It also holds the tag-parsing
// helpers that turn raw tags into heights, road widths and bridge flags.
package feature

import (
	"strings"

	"github.com/ctessum/geom"
)

// Tags is the raw key/value dictionary attached to a feature.
type Tags map[string]string

// Get returns the value for key, or "".
func (t Tags) Get(key string) string {
	if t == nil {
		return ""
	}
	return t[key]
}

// Truthy reports whether the value of key reads as a positive flag the
// way OSM data uses them (bridge=yes, bridge=viaduct, ...).
func (t Tags) Truthy(key string) bool {
	s := strings.ToLower(strings.TrimSpace(t.Get(key)))
	switch s {
	case "yes", "true", "1", "viaduct", "aqueduct":
		return true
	}
	return strings.HasPrefix(s, "viaduct")
}

// Polygon is a planar polygon feature (first ring exterior, the rest
// holes) in projected or local metric coordinates.
type Polygon struct {
	ID   string
	Geom geom.Polygon
	Tags Tags
}

// LineString is an ordered 2D polyline feature.
type LineString struct {
	ID   string
	Geom geom.LineString
	Tags Tags
}

// Point is a point feature (POI markers).
type Point struct {
	ID   string
	Geom geom.Point
	Tags Tags
}

// TransformFunc maps a single coordinate pair; used to shift whole
// feature sets between the projected and local frames.
type TransformFunc func(x, y float64) (float64, float64)

// MapPolygon returns a copy of p with every vertex passed through fn.
func MapPolygon(p Polygon, fn TransformFunc) Polygon {
	out := make(geom.Polygon, len(p.Geom))
	for ri, ring := range p.Geom {
		r := make([]geom.Point, len(ring))
		for i, pt := range ring {
			x, y := fn(pt.X, pt.Y)
			r[i] = geom.Point{X: x, Y: y}
		}
		out[ri] = r
	}
	return Polygon{ID: p.ID, Geom: out, Tags: p.Tags}
}

// MapLineString returns a copy of l with every vertex passed through fn.
func MapLineString(l LineString, fn TransformFunc) LineString {
	out := make(geom.LineString, len(l.Geom))
	for i, pt := range l.Geom {
		x, y := fn(pt.X, pt.Y)
		out[i] = geom.Point{X: x, Y: y}
	}
	return LineString{ID: l.ID, Geom: out, Tags: l.Tags}
}

// MapPoint returns a copy of p with its vertex passed through fn.
func MapPoint(p Point, fn TransformFunc) Point {
	x, y := fn(p.Geom.X, p.Geom.Y)
	return Point{ID: p.ID, Geom: geom.Point{X: x, Y: y}, Tags: p.Tags}
}
