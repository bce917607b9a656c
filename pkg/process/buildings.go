package process

import (
	"context"
	"fmt"
	"math"

	"github.com/ctessum/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"

	"github.com/quarrylabs/terramold/pkg/feature"
	"github.com/quarrylabs/terramold/pkg/mesh"
	"github.com/quarrylabs/terramold/pkg/terrain"
)

const (
	// groundTolerance is how far a vertex may sit below its local
	// ground before the whole building is lifted.
	groundTolerance = 0.05
	// bottomBandFraction bounds the cheap first below-ground pass to
	// the lowest part of the building.
	bottomBandFraction = 0.2
	// Area thresholds steering interior ground-sampling density.
	smallBuildingM2  = 100.0
	mediumBuildingM2 = 1000.0
	// boundarySampleCount resamples the outline at about this many
	// points, spacing proportional to the perimeter.
	boundarySampleCount = 32
	// simplifyToleranceM smooths micro-segments before extrusion.
	simplifyToleranceM = 0.1
)

// Buildings extrudes each building polygon into a vertical prism seated
// on the terrain. Fragments come back in input order; degenerate
// polygons are logged and skipped.
func Buildings(ctx context.Context, polys []feature.Polygon, prov *terrain.Provider, p BuildingParams, log *zap.Logger) ([]*mesh.Mesh, error) {
	if log == nil {
		log = zap.NewNop()
	}
	minX, maxX, minY, maxY := prov.Bounds()
	extent := &geom.Bounds{Min: geom.Point{X: minX, Y: minY}, Max: geom.Point{X: maxX, Y: maxY}}

	frags := make([]*mesh.Mesh, len(polys))
	err := forEach(ctx, len(polys), func(i int) {
		m, err := buildOne(polys[i], extent, prov, p)
		if err != nil {
			log.Warn("building skipped",
				zap.String("stage", "buildings"),
				zap.String("feature", polys[i].ID),
				zap.Error(err))
			return
		}
		frags[i] = m
	})
	if err != nil {
		return nil, err
	}
	return collect(frags), nil
}

func buildOne(f feature.Polygon, extent *geom.Bounds, prov *terrain.Provider, p BuildingParams) (*mesh.Mesh, error) {
	poly := feature.NormalizePolygon(f.Geom)
	if poly == nil {
		return nil, ErrDegenerateFeature
	}
	// Clip to the terrain extent: boundary-crossing buildings keep
	// their inside part, never out-of-extent vertices. Each clipped
	// part seats on its own ground.
	parts := feature.ClipToBounds(poly, extent)
	if len(parts) == 0 {
		return nil, ErrDegenerateFeature
	}

	height := feature.BuildingHeight(f.Tags, p.MinHeightM) * p.HeightMultiplier

	out := &mesh.Mesh{Material: mesh.MaterialBuilding, Name: fmt.Sprintf("building/%s", f.ID)}
	for _, part := range parts {
		part = simplifyPolygon(part, simplifyToleranceM)
		m, err := seatPrism(part, height, prov, p)
		if err != nil {
			continue
		}
		out.Append(m)
	}
	if out.IsEmpty() {
		return nil, ErrDegenerateFeature
	}
	return out, nil
}

// seatPrism extrudes one simple polygon and seats it on the terrain.
func seatPrism(poly geom.Polygon, height float64, prov *terrain.Provider, p BuildingParams) (*mesh.Mesh, error) {
	samples := groundSamples(poly, prov)
	if len(samples) == 0 {
		return nil, ErrDegenerateFeature
	}
	gMin := samples[0]
	for _, g := range samples[1:] {
		if g < gMin {
			gMin = g
		}
	}

	embedM := p.EmbedMM / 1000
	foundationM := p.FoundationMM / 1000
	var baseZ float64
	if embedM > 0 {
		baseZ = gMin - embedM
	} else {
		baseZ = gMin + p.SafetyMarginM
	}
	translateZ := baseZ - foundationM

	m, err := mesh.ExtrudePolygon(poly, height)
	if err != nil {
		return nil, err
	}
	m.Translate(v3.Vec{Z: translateZ})

	// Below-ground correction, two passes: first the bottom band (the
	// only vertices that can realistically be buried), then a full
	// recheck.
	bandTop := translateZ + height*bottomBandFraction
	liftAboveGround(m, prov, bandTop)
	liftAboveGround(m, prov, math.Inf(1))
	return m, nil
}

// liftAboveGround raises the whole mesh so that no vertex with
// z <= maxZ sits more than groundTolerance below its local ground.
func liftAboveGround(m *mesh.Mesh, prov *terrain.Provider, maxZ float64) {
	var lift float64
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		if v.Z > maxZ {
			continue
		}
		g := prov.HeightAt(v.X, v.Y)
		if d := (g - groundTolerance) - v.Z; d > lift {
			lift = d
		}
	}
	if lift > 0 {
		m.Translate(v3.Vec{Z: lift})
	}
}

// groundSamples samples the terrain under a building: the outline at a
// spacing proportional to its perimeter plus an interior grid whose
// density follows the footprint area (centroid only, 3x3, or 5x5).
func groundSamples(poly geom.Polygon, prov *terrain.Provider) []float64 {
	if len(poly) == 0 {
		return nil
	}
	exterior := poly[0]
	perimeter := feature.RingPerimeter(exterior)
	spacing := perimeter / boundarySampleCount
	pts := feature.ResampleRing(exterior, spacing)

	area := poly.Area()
	b := poly.Bounds()
	w, h := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y
	grid := func(n int) {
		for i := 1; i <= n; i++ {
			for j := 1; j <= n; j++ {
				pt := geom.Point{
					X: b.Min.X + w*float64(i)/float64(n+1),
					Y: b.Min.Y + h*float64(j)/float64(n+1),
				}
				if feature.PointInPolygonal(pt, poly) {
					pts = append(pts, pt)
				}
			}
		}
	}
	switch {
	case area < smallBuildingM2:
		pts = append(pts, poly.Centroid())
	case area < mediumBuildingM2:
		grid(3)
		pts = append(pts, poly.Centroid())
	default:
		grid(5)
		pts = append(pts, poly.Centroid())
	}

	out := make([]float64, len(pts))
	for i, pt := range pts {
		out[i] = prov.HeightAt(pt.X, pt.Y)
	}
	return out
}

// simplifier is satisfied by geometries offering topology-preserving
// simplification.
type simplifier interface {
	Simplify(tolerance float64) geom.Geom
}

// simplifyPolygon reduces micro-segments when the geometry library
// offers simplification; otherwise the polygon passes through.
func simplifyPolygon(p geom.Polygon, tol float64) geom.Polygon {
	var g geom.Geom = p
	s, ok := g.(simplifier)
	if !ok {
		return p
	}
	simplified, ok := s.Simplify(tol).(geom.Polygon)
	if !ok || feature.NormalizePolygon(simplified) == nil {
		return p
	}
	return simplified
}
