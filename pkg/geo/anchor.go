// Package geo defines the shared coordinate frame for a world region.
//
// All downstream geometry works in "local" coordinates: projected metric
// coordinates relative to a single immutable anchor. Two runs over the
// same world region derive the same anchor, so tiles produced
// independently stitch without seams.
package geo

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/pkg/errors"
)

const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// anchorQuantum is the grid the projected origin is snapped to. Snapping
// makes the anchor reproducible across runs that compute the centroid
// with slightly different floating-point histories.
const anchorQuantum = 1e-6

// GeoBounds is a geographic bounding box in degrees.
type GeoBounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Valid reports whether the bounds describe a non-empty box.
func (b GeoBounds) Valid() bool {
	return b.MaxLat > b.MinLat && b.MaxLon > b.MinLon &&
		b.MinLat >= -90 && b.MaxLat <= 90 &&
		b.MinLon >= -180 && b.MaxLon <= 180
}

// Center returns the centroid of the box.
func (b GeoBounds) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Anchor is the immutable origin of the local metric frame for one world
// region. It records the reference geographic point, the projected metric
// CRS, and the projected origin (X0, Y0). Create it once per world region,
// before any processing, and pass it by reference; it is never mutated.
type Anchor struct {
	Lat, Lon float64 // reference geographic point (bbox centroid)
	CRS      string  // proj4 string of the projected metric CRS
	X0, Y0   float64 // projected origin, snapped to anchorQuantum

	forward proj.Transformer // geographic -> projected
	inverse proj.Transformer // projected -> geographic
}

// NewAnchor derives the anchor for a world region. The projection is the
// UTM zone of the bounding-box centroid; the origin is the projected
// centroid snapped to a fixed grid. The derivation is deterministic:
// equal bounds always produce an identical anchor.
func NewAnchor(b GeoBounds) (*Anchor, error) {
	if !b.Valid() {
		return nil, errors.Wrapf(ErrInvalidInput, "geo: bad bounds %+v", b)
	}
	lat, lon := b.Center()
	crs := utmProj4(lat, lon)

	src, err := proj.Parse(wgs84)
	if err != nil {
		return nil, errors.Wrap(err, "geo: parsing WGS84")
	}
	dst, err := proj.Parse(crs)
	if err != nil {
		return nil, errors.Wrapf(err, "geo: parsing %q", crs)
	}
	fwd, err := src.NewTransform(dst)
	if err != nil {
		return nil, errors.Wrap(err, "geo: building forward transform")
	}
	inv, err := dst.NewTransform(src)
	if err != nil {
		return nil, errors.Wrap(err, "geo: building inverse transform")
	}

	a := &Anchor{Lat: lat, Lon: lon, CRS: crs, forward: fwd, inverse: inv}
	x0, y0, err := a.ToProjected(lat, lon)
	if err != nil {
		return nil, err
	}
	a.X0 = snap(x0)
	a.Y0 = snap(y0)
	return a, nil
}

// utmProj4 returns the proj4 string for the UTM zone containing (lat, lon).
func utmProj4(lat, lon float64) string {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	s := fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
	if lat < 0 {
		s += " +south"
	}
	return s
}

func snap(v float64) float64 {
	return math.Round(v/anchorQuantum) * anchorQuantum
}

// ToProjected converts geographic degrees to projected meters.
func (a *Anchor) ToProjected(lat, lon float64) (x, y float64, err error) {
	p, err := geom.Point{X: lon, Y: lat}.Transform(a.forward)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "geo: projecting (%.6f, %.6f)", lat, lon)
	}
	pt := p.(geom.Point)
	return pt.X, pt.Y, nil
}

// ToGeographic converts projected meters back to geographic degrees.
func (a *Anchor) ToGeographic(x, y float64) (lat, lon float64, err error) {
	p, err := geom.Point{X: x, Y: y}.Transform(a.inverse)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "geo: unprojecting (%.3f, %.3f)", x, y)
	}
	pt := p.(geom.Point)
	return pt.Y, pt.X, nil
}

// ToLocal shifts projected coordinates into the local frame.
func (a *Anchor) ToLocal(x, y float64) (lx, ly float64) {
	return x - a.X0, y - a.Y0
}

// FromLocal shifts local coordinates back to projected.
func (a *Anchor) FromLocal(lx, ly float64) (x, y float64) {
	return lx + a.X0, ly + a.Y0
}

// GeographicFromLocal converts a local point all the way to degrees.
func (a *Anchor) GeographicFromLocal(lx, ly float64) (lat, lon float64, err error) {
	x, y := a.FromLocal(lx, ly)
	return a.ToGeographic(x, y)
}

// LocalBounds projects a geographic box into the local frame. The result
// is the axis-aligned box spanned by the four projected corners.
func (a *Anchor) LocalBounds(b GeoBounds) (minX, minY, maxX, maxY float64, err error) {
	corners := [4][2]float64{
		{b.MinLat, b.MinLon},
		{b.MinLat, b.MaxLon},
		{b.MaxLat, b.MinLon},
		{b.MaxLat, b.MaxLon},
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y, err := a.ToProjected(c[0], c[1])
		if err != nil {
			return 0, 0, 0, 0, err
		}
		lx, ly := a.ToLocal(x, y)
		minX = math.Min(minX, lx)
		minY = math.Min(minY, ly)
		maxX = math.Max(maxX, lx)
		maxY = math.Max(maxY, ly)
	}
	return minX, minY, maxX, maxY, nil
}
